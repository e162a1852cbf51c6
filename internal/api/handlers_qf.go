package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/pkg/models"
)

// handleQFRecordResultView marks that the caller has seen phrasesetId's
// finalized outcome, idempotently recording the payout their own
// ledger transactions show for it.
func (h *APIHandler) handleQFRecordResultView(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	phrasesetID := c.Param("id")
	txs, err := h.store.ListTransactions(c.Request.Context(), nil, playerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	var payout int64
	for _, t := range txs {
		if t.PhrasesetID != nil && *t.PhrasesetID == phrasesetID && t.Kind == models.TxKindPayout {
			payout += t.Amount
		}
	}
	v, err := h.engine.RecordResultView(c.Request.Context(), playerID, &phrasesetID, nil, payout)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *APIHandler) handleQFStartPrompt(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		PromptText         string  `json:"promptText" binding:"required"`
		PartySessionID     *string `json:"partySessionId,omitempty"`
		PartyParticipantID *string `json:"partyParticipantId,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	r, err := h.qf.StartPrompt(c.Request.Context(), playerID, h.cfg.Pricing.PromptCost, req.PromptText,
		req.PartySessionID, req.PartyParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleQFSubmitPrompt(c *gin.Context) {
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
	ps, err := h.qf.SubmitPrompt(c.Request.Context(), playerID, c.Param("id"), req.Phrase)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// handleQFStartCopy picks the next eligible prompt (C6) and opens a copy
// round against it in a single call — the client never sees/chooses the
// prompt round ID up front, matching how the Work Matcher is meant to be
// the sole dispenser of copy work (spec.md §4.6).
func (h *APIHandler) handleQFStartCopy(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		PartySessionID     *string `json:"partySessionId,omitempty"`
		PartyParticipantID *string `json:"partyParticipantId,omitempty"`
	}
	_ = c.ShouldBindJSON(&req)

	promptRound, err := h.matcher.PickPromptForCopy(c.Request.Context(), playerID, req.PartySessionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	r, err := h.qf.StartCopy(c.Request.Context(), playerID, h.cfg.Pricing.CopyCostNormal,
		promptRound.ID, promptRound.PromptText, req.PartySessionID, req.PartyParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleQFSubmitCopy(c *gin.Context) {
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
	ps, err := h.qf.SubmitCopy(c.Request.Context(), playerID, c.Param("id"), req.Phrase)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *APIHandler) handleQFStartVote(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		PartySessionID     *string `json:"partySessionId,omitempty"`
		PartyParticipantID *string `json:"partyParticipantId,omitempty"`
	}
	_ = c.ShouldBindJSON(&req)

	ps, err := h.matcher.PickPhrasesetForVote(c.Request.Context(), playerID, req.PartySessionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	r, err := h.qf.StartVote(c.Request.Context(), playerID, h.cfg.Pricing.VoteCost,
		ps.ID, ps.PromptText, req.PartySessionID, req.PartyParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *APIHandler) handleQFSubmitVote(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Slot models.VoteSlot `json:"slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ps, err := h.qf.SubmitVote(c.Request.Context(), playerID, c.Param("id"), req.Slot, h.cfg.Pricing.VoteCost)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}
