package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/pkg/models"
)

// handleIRRecordResultView marks that the caller has seen setId's
// finalized outcome, idempotently recording the payout their own
// ledger transactions show for it.
func (h *APIHandler) handleIRRecordResultView(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	setID := c.Param("id")
	txs, err := h.store.ListTransactions(c.Request.Context(), nil, playerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	var payout int64
	for _, t := range txs {
		if t.SetID != nil && *t.SetID == setID && t.Kind == models.TxKindPayout {
			payout += t.Amount
		}
	}
	v, err := h.engine.RecordResultView(c.Request.Context(), playerID, nil, &setID, payout)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// handleIRStartEntry picks an eligible backronym set (C6) — or spins up
// a fresh one — and opens an entry round against it in one call.
func (h *APIHandler) handleIRStartEntry(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Mode models.BackronymMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	timer := time.Duration(h.cfg.Timing.IRRapidEntryTimerMinutes) * time.Minute

	set, err := h.matcher.PickBackronymSetForEntry(c.Request.Context(), playerID, req.Mode, timer)
	if err != nil {
		respondErr(c, err)
		return
	}
	r, err := h.ir.StartEntry(c.Request.Context(), playerID, h.cfg.Pricing.IRBackronymEntryCost, set.ID, set.Word)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleIRSubmitEntry(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Words []string `json:"words" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	set, err := h.ir.SubmitEntry(c.Request.Context(), playerID, c.Param("id"), req.Words)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *APIHandler) handleIRStartVote(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		SetID string `json:"setId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	set, err := h.store.GetBackronymSet(c.Request.Context(), nil, req.SetID)
	if err != nil {
		respondErr(c, err)
		return
	}
	r, err := h.ir.StartVote(c.Request.Context(), playerID, h.cfg.Pricing.IRVoteCost, set.ID, set.Word)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleIRSubmitVote(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		EntryID string `json:"entryId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	set, err := h.ir.SubmitVote(c.Request.Context(), playerID, c.Param("id"), req.EntryID, h.cfg.Pricing.IRVoteCost)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}
