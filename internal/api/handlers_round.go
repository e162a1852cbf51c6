package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (h *APIHandler) handleGetRound(c *gin.Context) {
	r, err := h.engine.GetRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *APIHandler) handleAbandonRound(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}
	roundID := c.Param("id")

	r, err := h.engine.GetRound(c.Request.Context(), roundID)
	if err != nil {
		respondErr(c, err)
		return
	}
	penalty := penaltyFor(h, r.Game)

	out, err := h.engine.Abandon(c.Request.Context(), playerID, roundID, penalty)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func penaltyFor(h *APIHandler, game models.GameType) int64 {
	switch game {
	case models.GameIR:
		return h.cfg.AbandonPenalty.IR
	case models.GameTL:
		return h.cfg.AbandonPenalty.TL
	default:
		return h.cfg.AbandonPenalty.QF
	}
}
