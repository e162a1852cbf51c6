package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/logging"
)

var log = logging.New("API")

// kindStatus maps the coordinator's typed error taxonomy (spec.md §7) onto
// HTTP status codes, so every handler gets consistent, reason-ful error
// bodies instead of hand-picking a status per call site.
var kindStatus = map[coordinator.Kind]int{
	coordinator.KindInsufficientBalance:   http.StatusPaymentRequired,
	coordinator.KindInvalidPhrase:         http.StatusUnprocessableEntity,
	coordinator.KindNoEligibleWork:        http.StatusNotFound,
	coordinator.KindAlreadyInRound:        http.StatusConflict,
	coordinator.KindAlreadyVoted:          http.StatusConflict,
	coordinator.KindAlreadyInSession:      http.StatusConflict,
	coordinator.KindSessionFull:           http.StatusConflict,
	coordinator.KindSessionAlreadyStarted: http.StatusConflict,
	coordinator.KindNotHost:               http.StatusForbidden,
	coordinator.KindNotEnoughPlayers:      http.StatusConflict,
	coordinator.KindWrongPhase:            http.StatusConflict,
	coordinator.KindRoundExpired:          http.StatusGone,
	coordinator.KindLockTimeout:           http.StatusServiceUnavailable,
	coordinator.KindAIGenerationFailed:    http.StatusBadGateway,
	coordinator.KindProviderUnavailable:   http.StatusBadGateway,
	coordinator.KindVoteLockout:           http.StatusForbidden,
	coordinator.KindNotFound:              http.StatusNotFound,
}

// respondErr writes err as a JSON error body, translating a *coordinator.Error
// into {error: kind, reason, details} with the mapped status, and falling
// back to 500 for anything the taxonomy doesn't name.
func respondErr(c *gin.Context, err error) {
	var ce *coordinator.Error
	if errors.As(err, &ce) {
		status, ok := kindStatus[ce.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": string(ce.Kind), "reason": ce.Reason, "details": ce.Details})
		return
	}
	log.Printf("unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal", "reason": err.Error()})
}

// requirePlayerID reads X-Player-ID, writing a 401 and returning ok=false
// if absent.
func requirePlayerID(c *gin.Context) (string, bool) {
	id, ok := playerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "reason": "missing X-Player-ID header"})
		return "", false
	}
	return id, true
}
