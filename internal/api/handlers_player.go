package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (h *APIHandler) handleCreateGuest(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p, err := h.players.CreateGuest(c.Request.Context(), req.DisplayName)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *APIHandler) handleRegister(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName" binding:"required"`
		Email       string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p, err := h.players.Register(c.Request.Context(), req.DisplayName, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *APIHandler) handleGetPlayer(c *gin.Context) {
	p, err := h.players.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *APIHandler) handleGetWallet(c *gin.Context) {
	game := models.GameType(c.DefaultQuery("game", string(models.GameQF)))
	data, err := h.players.GetGameData(c.Request.Context(), c.Param("id"), game)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *APIHandler) handleGetStats(c *gin.Context) {
	stats, err := store.ComputeStats(c.Request.Context(), h.store, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) handleClaimDailyBonus(c *gin.Context) {
	game := models.GameType(c.DefaultQuery("game", string(models.GameQF)))
	amount, err := h.ledger.ClaimDailyBonus(c.Request.Context(), c.Param("id"), game, h.cfg.Economy)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amountCredited": amount})
}
