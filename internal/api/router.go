package api

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sheegaon/quipengine/internal/ai"
	"github.com/sheegaon/quipengine/internal/broadcaster"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/matcher"
	"github.com/sheegaon/quipengine/internal/party"
	"github.com/sheegaon/quipengine/internal/player"
	"github.com/sheegaon/quipengine/internal/round"
	"github.com/sheegaon/quipengine/internal/store"
)

// APIHandler is the thin Gin adapter in front of the coordinator's
// service layer. Transport/auth is out of scope per spec.md §1; this
// struct exists so the coordinator has a concrete, testable caller, the
// same way the teacher's APIHandler calls into internal/heuristics.
type APIHandler struct {
	players *player.Service
	qf      *round.QFService
	ir      *round.IRService
	tl      *round.TLService
	engine  *round.Engine
	matcher *matcher.Matcher
	party   *party.Controller
	ai      *ai.Orchestrator
	hub     *broadcaster.Hub
	store   store.Store
	ledger  *ledger.Service
	cfg     config.Config
}

// SetupRouter wires every operation named in spec.md §4 onto a route,
// grounded on the teacher's SetupRouter: a CORS middleware reading
// ALLOWED_ORIGINS, a public group, and a protected group chaining bearer
// auth + a per-IP rate limiter.
func SetupRouter(players *player.Service, qf *round.QFService, ir *round.IRService, tl *round.TLService,
	engine *round.Engine, m *matcher.Matcher, partyCtl *party.Controller, orchestrator *ai.Orchestrator,
	hub *broadcaster.Hub, st store.Store, ldg *ledger.Service, cfg config.Config) *gin.Engine {

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Player-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h := &APIHandler{players: players, qf: qf, ir: ir, tl: tl, engine: engine, matcher: m,
		party: partyCtl, ai: orchestrator, hub: hub, store: st, ledger: ldg, cfg: cfg}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.POST("/players/guest", h.handleCreateGuest)
		pub.POST("/players/register", h.handleRegister)
		pub.GET("/sessions/:sessionId/stream", h.handleSubscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(60, 10).Middleware())
	{
		auth.GET("/players/:id", h.handleGetPlayer)
		auth.GET("/players/:id/wallet", h.handleGetWallet)
		auth.GET("/players/:id/stats", h.handleGetStats)
		auth.POST("/players/:id/daily-bonus", h.handleClaimDailyBonus)

		auth.POST("/rounds/:id/abandon", h.handleAbandonRound)
		auth.GET("/rounds/:id", h.handleGetRound)

		qfGroup := auth.Group("/qf")
		{
			qfGroup.POST("/prompt", h.handleQFStartPrompt)
			qfGroup.POST("/rounds/:id/prompt", h.handleQFSubmitPrompt)
			qfGroup.POST("/copy", h.handleQFStartCopy)
			qfGroup.POST("/rounds/:id/copy", h.handleQFSubmitCopy)
			qfGroup.POST("/vote", h.handleQFStartVote)
			qfGroup.POST("/rounds/:id/vote", h.handleQFSubmitVote)
			qfGroup.POST("/phrasesets/:id/view", h.handleQFRecordResultView)
		}

		irGroup := auth.Group("/ir")
		{
			irGroup.POST("/entry", h.handleIRStartEntry)
			irGroup.POST("/rounds/:id/entry", h.handleIRSubmitEntry)
			irGroup.POST("/vote", h.handleIRStartVote)
			irGroup.POST("/rounds/:id/vote", h.handleIRSubmitVote)
			irGroup.POST("/sets/:id/view", h.handleIRRecordResultView)
		}

		tlGroup := auth.Group("/tl")
		{
			tlGroup.POST("/guess", h.handleTLStartGuess)
			tlGroup.POST("/rounds/:id/guess", h.handleTLSubmitGuess)
		}

		sessGroup := auth.Group("/sessions")
		{
			sessGroup.POST("", h.handleCreateSession)
			sessGroup.POST("/join", h.handleJoinSession)
			sessGroup.POST("/:sessionId/start", h.handleStartSession)
			sessGroup.POST("/:sessionId/participants/:participantId/progress", h.handleRecordProgress)
			sessGroup.DELETE("/:sessionId/participants/:participantId", h.handleLeaveSession)
			sessGroup.GET("/:sessionId/results", h.handleSessionResults)
			sessGroup.POST("/:sessionId/ping", h.handlePingHost)
		}
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "operational", "service": "quipengine coordinator"})
}
