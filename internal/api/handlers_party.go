package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (h *APIHandler) handleCreateSession(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var cfg models.SessionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess, err := h.party.CreateSession(c.Request.Context(), playerID, cfg)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *APIHandler) handleJoinSession(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p, err := h.party.JoinSession(c.Request.Context(), req.Code, playerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *APIHandler) handleStartSession(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	if err := h.party.StartSession(c.Request.Context(), c.Param("sessionId"), playerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// handleRecordProgress logs one completed round against the
// participant's per-phase counter; RecordProgress itself advances the
// session when every participant is done. The follow-up AdvanceIfReady
// call reports whether a further advance happened, as {"advanced": ...}.
func (h *APIHandler) handleRecordProgress(c *gin.Context) {
	var req struct {
		RoundType models.RoundType `json:"roundType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sessionID, participantID := c.Param("sessionId"), c.Param("participantId")
	if err := h.party.RecordProgress(c.Request.Context(), sessionID, participantID, req.RoundType); err != nil {
		respondErr(c, err)
		return
	}
	advanced, err := h.party.AdvanceIfReady(c.Request.Context(), sessionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": advanced})
}

func (h *APIHandler) handleLeaveSession(c *gin.Context) {
	if err := h.party.LeaveSession(c.Request.Context(), c.Param("sessionId"), c.Param("participantId")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// handlePingHost lets the host nudge lobby participants who haven't
// marked themselves ready (spec.md §4.9's host_ping event); the
// Controller enforces that only the host may trigger it.
func (h *APIHandler) handlePingHost(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	if err := h.party.PingHost(c.Request.Context(), c.Param("sessionId"), playerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pinged"})
}

func (h *APIHandler) handleSessionResults(c *gin.Context) {
	results, err := h.party.ComputeResults(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
