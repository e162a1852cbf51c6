// Package party implements C7, the Party Session Controller: joining,
// phase progression, last-player-leaves cascade, and RESULTS-phase
// aggregate computation for a synchronized multi-player QF match.
package party

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/broadcaster"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/logging"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var log = logging.New("Party")

// AIFiller is invoked synchronously on every phase transition so AI
// participants in the new phase can be backfilled before human
// players see it (spec.md §4.7 step 5). The AI Orchestrator (C8)
// implements this; Controller only depends on the interface, avoiding
// an import cycle.
type AIFiller interface {
	FillPhase(ctx context.Context, sessionID string, phase models.Phase) error
}

// Controller drives one session's phase state machine. One Controller
// instance serves every session in the process; all per-session state
// lives in the store.
type Controller struct {
	store     store.Store
	ledger    *ledger.Service
	locks     lockqueue.LockService
	clock     coordinator.Clock
	broadcast *broadcaster.Hub
	ai        AIFiller
}

func New(st store.Store, ldg *ledger.Service, locks lockqueue.LockService, clock coordinator.Clock, hub *broadcaster.Hub, ai AIFiller) *Controller {
	return &Controller{store: st, ledger: ldg, locks: locks, clock: clock, broadcast: hub, ai: ai}
}

// SetAIFiller binds the AI Orchestrator after construction. The two
// components' constructors each need the other as a collaborator
// (Controller fills AI seats through ai.Orchestrator, the Orchestrator
// re-checks phase advancement through Controller), so main wires one
// side with a nil/placeholder and closes the cycle here once both
// concrete values exist.
func (c *Controller) SetAIFiller(ai AIFiller) {
	c.ai = ai
}

// CreateSession opens a new LOBBY session hosted by playerID.
func (c *Controller) CreateSession(ctx context.Context, playerID string, cfg models.SessionConfig) (*models.PartySession, error) {
	active, err := c.store.GetActiveSessionForPlayer(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, coordinator.New(coordinator.KindAlreadyInSession, "player is already in a non-terminal session")
	}

	now := c.clock.Now()
	s := &models.PartySession{
		ID: uuid.NewString(), Code: generateCode(), HostPlayerID: playerID,
		Config: cfg, Status: models.SessionOpen, CurrentPhase: models.PhaseLobby,
		PhaseStartedAt: now, CreatedAt: now,
	}
	if err := c.store.CreateSession(ctx, nil, s); err != nil {
		return nil, err
	}
	p := &models.PartyParticipant{
		ID: uuid.NewString(), SessionID: s.ID, PlayerID: playerID,
		Status: models.ParticipantJoined, IsHost: true, JoinedAt: now,
	}
	if err := c.store.CreateParticipant(ctx, nil, p); err != nil {
		return nil, err
	}
	return s, nil
}

// JoinSession adds playerID to an OPEN session, rejecting a full
// session or a player already in another non-terminal session.
func (c *Controller) JoinSession(ctx context.Context, code, playerID string) (*models.PartyParticipant, error) {
	active, err := c.store.GetActiveSessionForPlayer(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, coordinator.New(coordinator.KindAlreadyInSession, "player is already in a non-terminal session")
	}
	s, err := c.store.GetSessionByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Status != models.SessionOpen {
		return nil, coordinator.New(coordinator.KindWrongPhase, "session is not open for joining")
	}
	participants, err := c.store.ListParticipants(ctx, nil, s.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) >= s.Config.MaxPlayers {
		return nil, coordinator.New(coordinator.KindSessionFull, "session has reached max_players")
	}

	p := &models.PartyParticipant{
		ID: uuid.NewString(), SessionID: s.ID, PlayerID: playerID,
		Status: models.ParticipantJoined, JoinedAt: c.clock.Now(),
	}
	if err := c.store.CreateParticipant(ctx, nil, p); err != nil {
		return nil, err
	}
	if c.broadcast != nil {
		c.broadcast.Broadcast(s.ID, broadcaster.Message{Type: "player_joined", Payload: p}, "")
	}
	return p, nil
}

// StartSession transitions LOBBY -> PROMPT. Only the host may start,
// and only once participant_count >= min_players.
func (c *Controller) StartSession(ctx context.Context, sessionID, playerID string) error {
	s, err := c.store.GetSession(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	if s.HostPlayerID != playerID {
		return coordinator.New(coordinator.KindNotHost, "only the host can start the session")
	}
	if s.Status != models.SessionOpen {
		return coordinator.New(coordinator.KindSessionAlreadyStarted, "session has already started")
	}
	participants, err := c.store.ListParticipants(ctx, nil, s.ID)
	if err != nil {
		return err
	}
	if len(participants) < s.Config.MinPlayers {
		return coordinator.New(coordinator.KindNotEnoughPlayers, "session has fewer than min_players participants")
	}
	for i := range participants {
		participants[i].Status = models.ParticipantActive
		if err := c.store.UpdateParticipant(ctx, nil, &participants[i]); err != nil {
			return err
		}
	}
	s.Status = models.SessionInProgress
	if err := c.store.UpdateSession(ctx, nil, s); err != nil {
		return err
	}
	if c.broadcast != nil {
		c.broadcast.Broadcast(s.ID, broadcaster.Message{Type: "session_started", Payload: s}, "")
	}
	return c.transitionTo(ctx, s, models.PhasePrompt)
}

// HandleConnect runs C9's connect-side participant bookkeeping: in
// LOBBY, a JOINED participant becomes READY; reconnecting mid-game
// restores a DISCONNECTED participant to ACTIVE. Called by the
// websocket transport on every successful upgrade, before registering
// the connection with the Hub.
func (c *Controller) HandleConnect(ctx context.Context, sessionID, playerID string) error {
	return lockqueue.WithLock(ctx, c.locks, lockqueue.LockClassPhase, sessionID, 10*time.Second, func() error {
		s, err := c.store.GetSession(ctx, nil, sessionID)
		if err != nil {
			return err
		}
		p, err := c.store.GetParticipantByPlayer(ctx, nil, sessionID, playerID)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		switch {
		case s.CurrentPhase == models.PhaseLobby && p.Status == models.ParticipantJoined:
			p.Status = models.ParticipantReady
			if err := c.store.UpdateParticipant(ctx, nil, p); err != nil {
				return err
			}
			if c.broadcast != nil {
				c.broadcast.Broadcast(sessionID, broadcaster.Message{Type: "player_ready", Payload: p}, "")
				c.broadcastPresence(ctx, sessionID)
			}
		case p.Status == models.ParticipantDisconnected:
			p.Status = models.ParticipantActive
			if err := c.store.UpdateParticipant(ctx, nil, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// HandleDisconnect is HandleConnect's reverse: in LOBBY, READY reverts
// to JOINED; mid-game, ACTIVE becomes DISCONNECTED so a reconnect can
// restore it. Per spec.md §8's round-trip law, a connect right after
// an otherwise-untouched disconnect restores the prior status exactly,
// since each side only flips the status it itself is responsible for.
func (c *Controller) HandleDisconnect(ctx context.Context, sessionID, playerID string) error {
	return lockqueue.WithLock(ctx, c.locks, lockqueue.LockClassPhase, sessionID, 10*time.Second, func() error {
		s, err := c.store.GetSession(ctx, nil, sessionID)
		if err != nil {
			return err
		}
		p, err := c.store.GetParticipantByPlayer(ctx, nil, sessionID, playerID)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		switch {
		case s.CurrentPhase == models.PhaseLobby && p.Status == models.ParticipantReady:
			p.Status = models.ParticipantJoined
			if err := c.store.UpdateParticipant(ctx, nil, p); err != nil {
				return err
			}
			if c.broadcast != nil {
				c.broadcastPresence(ctx, sessionID)
			}
		case p.Status == models.ParticipantActive:
			p.Status = models.ParticipantDisconnected
			if err := c.store.UpdateParticipant(ctx, nil, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// broadcastPresence sends the session's full participant list as
// lobby_presence_changed, so a client who just joined sees everyone's
// current JOINED/READY state rather than only the one status flip
// that triggered the broadcast.
func (c *Controller) broadcastPresence(ctx context.Context, sessionID string) {
	participants, err := c.store.ListParticipants(ctx, nil, sessionID)
	if err != nil {
		log.Printf("session=%s list participants for presence broadcast: %v", sessionID, err)
		return
	}
	c.broadcast.Broadcast(sessionID, broadcaster.Message{Type: "lobby_presence_changed", Payload: participants}, "")
}

// PingHost lets the host nudge every other connected participant while
// still in LOBBY, broadcasting host_ping (e.g. "ready up") — the one
// C9 event spec.md §4.9 names that no state transition triggers on its
// own.
func (c *Controller) PingHost(ctx context.Context, sessionID, playerID string) error {
	s, err := c.store.GetSession(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	if s.HostPlayerID != playerID {
		return coordinator.New(coordinator.KindNotHost, "only the host can send host_ping")
	}
	if c.broadcast != nil {
		c.broadcast.Broadcast(sessionID, broadcaster.Message{Type: "host_ping", Payload: map[string]any{
			"sessionId": sessionID,
		}}, playerID)
	}
	return nil
}

// RecordProgress increments participantID's counter for roundType and
// re-evaluates all-done for the session's current phase, advancing if
// every ACTIVE participant has met the phase's required count.
func (c *Controller) RecordProgress(ctx context.Context, sessionID, participantID string, roundType models.RoundType) error {
	return lockqueue.WithLock(ctx, c.locks, lockqueue.LockClassPhase, sessionID, 10*time.Second, func() error {
		s, err := c.store.GetSession(ctx, nil, sessionID)
		if err != nil {
			return err
		}
		p, err := c.store.GetParticipant(ctx, nil, participantID)
		if err != nil {
			return err
		}
		switch roundType {
		case models.RoundPrompt:
			p.PromptsSubmitted++
		case models.RoundCopy:
			p.CopiesSubmitted++
		case models.RoundVote:
			p.VotesSubmitted++
		}
		if err := c.store.UpdateParticipant(ctx, nil, p); err != nil {
			return err
		}
		if c.broadcast != nil {
			c.broadcast.Broadcast(s.ID, broadcaster.Message{Type: "progress_update", Payload: p}, "")
		}

		allDone, err := c.allDone(ctx, s)
		if err != nil {
			return err
		}
		if !allDone {
			return nil
		}
		return c.transitionTo(ctx, s, s.CurrentPhase.Next())
	})
}

// AdvanceIfReady re-evaluates all-done for sessionID's current phase and
// advances it if every ACTIVE participant has met the requirement. It is
// the hook the AI Orchestrator (C8) calls after filling a phase's AI
// seats, so AI-only sessions still progress without a human submission
// to trigger RecordProgress.
func (c *Controller) AdvanceIfReady(ctx context.Context, sessionID string) (bool, error) {
	advanced := false
	err := lockqueue.WithLock(ctx, c.locks, lockqueue.LockClassPhase, sessionID, 10*time.Second, func() error {
		s, err := c.store.GetSession(ctx, nil, sessionID)
		if err != nil {
			return err
		}
		ready, err := c.allDone(ctx, s)
		if err != nil {
			return err
		}
		if !ready {
			return nil
		}
		advanced = true
		return c.transitionTo(ctx, s, s.CurrentPhase.Next())
	})
	return advanced, err
}

// allDone reports whether every ACTIVE participant has submitted at
// least the current phase's required count for its round type.
func (c *Controller) allDone(ctx context.Context, s *models.PartySession) (bool, error) {
	required, roundType, ok := requirementFor(s.CurrentPhase, s.Config)
	if !ok {
		return false, nil
	}
	participants, err := c.store.ListParticipants(ctx, nil, s.ID)
	if err != nil {
		return false, err
	}
	for _, p := range participants {
		if p.Status != models.ParticipantActive {
			continue
		}
		if progressFor(p, roundType) < required {
			return false, nil
		}
	}
	return true, nil
}

func requirementFor(phase models.Phase, cfg models.SessionConfig) (required int, roundType models.RoundType, ok bool) {
	switch phase {
	case models.PhasePrompt:
		return cfg.PromptsPerPlayer, models.RoundPrompt, true
	case models.PhaseCopy:
		return cfg.CopiesPerPlayer, models.RoundCopy, true
	case models.PhaseVote:
		return cfg.VotesPerPlayer, models.RoundVote, true
	default:
		return 0, "", false
	}
}

func progressFor(p models.PartyParticipant, roundType models.RoundType) int {
	switch roundType {
	case models.RoundPrompt:
		return p.PromptsSubmitted
	case models.RoundCopy:
		return p.CopiesSubmitted
	case models.RoundVote:
		return p.VotesSubmitted
	default:
		return 0
	}
}

// transitionTo moves s to next, flipping linked phrasesets available
// for voting when entering VOTE, stamping completed_at/status on
// RESULTS/COMPLETED, broadcasting, and synchronously backfilling AI
// participants for the new phase (spec.md §4.7).
func (c *Controller) transitionTo(ctx context.Context, s *models.PartySession, next models.Phase) error {
	now := c.clock.Now()
	s.CurrentPhase = next
	s.PhaseStartedAt = now

	if next == models.PhaseVote {
		if err := c.openVotingForSession(ctx, s.ID); err != nil {
			return err
		}
	}
	if next == models.PhaseResults {
		s.CompletedAt = &now
	}
	if next == models.PhaseCompleted {
		s.Status = models.SessionCompleted
	}
	if err := c.store.UpdateSession(ctx, nil, s); err != nil {
		return err
	}

	log.Printf("session=%s phase -> %s", s.ID, next)
	if c.broadcast != nil {
		c.broadcast.Broadcast(s.ID, broadcaster.Message{Type: "phase_transition", Payload: map[string]any{
			"sessionId": s.ID, "phase": next,
		}}, "")
		if next == models.PhaseCompleted {
			c.broadcast.Broadcast(s.ID, broadcaster.Message{Type: "session_completed", Payload: s}, "")
		}
	}

	if c.ai != nil {
		if err := c.ai.FillPhase(ctx, s.ID, next); err != nil {
			log.Printf("session=%s AI fill for phase %s failed: %v", s.ID, next, err)
		}
	}
	return nil
}

func (c *Controller) openVotingForSession(ctx context.Context, sessionID string) error {
	open, err := c.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetOpen)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	for i := range open {
		ps := &open[i]
		if ps.PartySessionID == nil || *ps.PartySessionID != sessionID {
			continue
		}
		ps.Status = models.PhrasesetVoting
		ps.AvailableForVoting = true
		ps.VotingStartedAt = &now
		if err := c.store.UpdatePhraseset(ctx, nil, ps); err != nil {
			return err
		}
	}
	return nil
}

// LeaveSession removes participantID from its session. If it was the
// last participant, the session (and its rounds/phrasesets) is
// deleted; if the departing participant was host, the earliest-joined
// remaining participant becomes host.
func (c *Controller) LeaveSession(ctx context.Context, sessionID, participantID string) error {
	participants, err := c.store.ListParticipants(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	var leaving *models.PartyParticipant
	remaining := make([]models.PartyParticipant, 0, len(participants))
	for i := range participants {
		if participants[i].ID == participantID {
			p := participants[i]
			leaving = &p
			continue
		}
		remaining = append(remaining, participants[i])
	}
	if leaving == nil {
		return coordinator.New(coordinator.KindNotFound, "participant not found in session")
	}
	if err := c.store.DeleteParticipant(ctx, nil, participantID); err != nil {
		return err
	}

	if len(remaining) == 0 {
		return c.store.DeleteSession(ctx, nil, sessionID)
	}

	if c.broadcast != nil {
		c.broadcast.Broadcast(sessionID, broadcaster.Message{Type: "player_left", Payload: map[string]any{
			"participantId": participantID,
		}}, "")
	}

	if !leaving.IsHost {
		return nil
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].JoinedAt.Before(remaining[j].JoinedAt) })
	newHost := remaining[0]
	newHost.IsHost = true
	if err := c.store.UpdateParticipant(ctx, nil, &newHost); err != nil {
		return err
	}
	if c.broadcast != nil {
		c.broadcast.Broadcast(sessionID, broadcaster.Message{Type: "session_update", Payload: map[string]any{
			"sessionId": sessionID, "hostParticipantId": newHost.ID,
		}}, "")
	}
	return nil
}

// ComputeResults builds RESULTS-phase aggregates for every participant
// in sessionID: spent/earned/net from the ledger, vote accuracy from
// phraseset votes, awards, and rank by net descending.
func (c *Controller) ComputeResults(ctx context.Context, sessionID string) ([]models.ParticipantResult, error) {
	participants, err := c.store.ListParticipants(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]models.ParticipantResult, len(participants))
	for i, p := range participants {
		rounds, err := c.store.ListRoundsByPlayerAndParty(ctx, nil, sessionID, p.PlayerID)
		if err != nil {
			return nil, err
		}
		roundIDs := make(map[string]bool, len(rounds))
		for _, r := range rounds {
			roundIDs[r.ID] = true
		}

		txs, err := c.store.ListTransactions(ctx, nil, p.PlayerID)
		if err != nil {
			return nil, err
		}
		var spent, earned int64
		for _, t := range txs {
			if t.RoundID == nil || !roundIDs[*t.RoundID] {
				continue
			}
			if t.Amount < 0 {
				spent += -t.Amount
			} else {
				earned += t.Amount
			}
		}

		votesOnOriginals, votesFooled, accuracy := c.voteStats(ctx, sessionID, p.PlayerID)
		results[i] = models.ParticipantResult{
			ParticipantID: p.ID, Spent: spent, Earned: earned, Net: earned - spent,
			VotesOnOriginals: votesOnOriginals, VotesFooled: votesFooled, VoteAccuracy: accuracy,
		}
	}

	assignAwards(results)

	sort.Slice(results, func(i, j int) bool { return results[i].Net > results[j].Net })
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// voteStats scans every phraseset authored or copied by playerID in
// sessionID for votes_on_originals / votes_fooled, and every
// phraseset playerID voted on for their vote accuracy.
func (c *Controller) voteStats(ctx context.Context, sessionID, playerID string) (votesOnOriginals, votesFooled int, accuracy float64) {
	finalized, err := c.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetFinalized)
	if err != nil {
		return 0, 0, 0
	}
	var correct, totalVotesCast int
	for _, ps := range finalized {
		if ps.PartySessionID == nil || *ps.PartySessionID != sessionID {
			continue
		}
		if ps.AuthorID == playerID {
			votesOnOriginals += ps.VotesOriginal
		}
		if ps.Copy1PlayerID == playerID {
			votesFooled += ps.VotesCopy1
		}
		if ps.Copy2PlayerID != nil && *ps.Copy2PlayerID == playerID {
			votesFooled += ps.VotesCopy2
		}

		votes, err := c.store.ListPhrasesetVotes(ctx, nil, ps.ID)
		if err != nil {
			continue
		}
		for _, v := range votes {
			if v.VoterID != playerID {
				continue
			}
			totalVotesCast++
			if v.ChoiceSlot == models.VoteOriginal {
				correct++
			}
		}
	}
	if totalVotesCast == 0 {
		return votesOnOriginals, votesFooled, 0
	}
	return votesOnOriginals, votesFooled, float64(correct) / float64(totalVotesCast)
}

// assignAwards sets best_writer (max votes_on_originals), top_impostor
// (max votes_fooled), and sharpest_voter (max accuracy among
// participants whose accuracy is above zero), each awarded to exactly
// one participant (first encountered on ties). When every participant's
// accuracy is zero, no sharpest_voter is awarded.
func assignAwards(results []models.ParticipantResult) {
	bestWriter, topImpostor, sharpestVoter := -1, -1, -1
	for i, r := range results {
		if bestWriter == -1 || r.VotesOnOriginals > results[bestWriter].VotesOnOriginals {
			bestWriter = i
		}
		if topImpostor == -1 || r.VotesFooled > results[topImpostor].VotesFooled {
			topImpostor = i
		}
		if r.VoteAccuracy > 0 && (sharpestVoter == -1 || r.VoteAccuracy > results[sharpestVoter].VoteAccuracy) {
			sharpestVoter = i
		}
	}
	if bestWriter >= 0 {
		results[bestWriter].Awards = append(results[bestWriter].Awards, models.AwardBestWriter)
	}
	if topImpostor >= 0 {
		results[topImpostor].Awards = append(results[topImpostor].Awards, models.AwardTopImpostor)
	}
	if sharpestVoter >= 0 {
		results[sharpestVoter].Awards = append(results[sharpestVoter].Awards, models.AwardSharpestVoter)
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // ambiguous chars excluded

// generateCode mints an 8-char uppercase alnum session code.
func generateCode() string {
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			// crypto/rand.Reader failing is not a condition callers can
			// usefully recover from; fall back to a fixed position rather
			// than propagating an error through every session creation.
			b[i] = codeAlphabet[0]
			continue
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b)
}
