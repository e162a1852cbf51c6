package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) handleTLStartGuess(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		PromptID string `json:"promptId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	r, err := h.tl.StartGuess(c.Request.Context(), playerID, req.PromptID, h.cfg.Pricing.TLEntryCost)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleTLSubmitGuess(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Phrase string `json:"phrase" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	outcome, err := h.tl.SubmitGuess(c.Request.Context(), playerID, c.Param("id"), req.Phrase)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
