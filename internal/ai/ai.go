// Package ai implements C8, the AI Orchestrator: it keeps content moving
// when no human is available — filling a stalled phraseset's missing
// copy, casting backup votes, racing a backronym entry — and fills an
// entire party phase's AI seats in parallel when a phase transition
// needs it (spec.md §4.8).
package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/cache"
	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/round"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// PhaseAdvancer is the subset of party.Controller the Orchestrator needs
// to re-check and advance a session's phase after filling AI seats. It
// is expressed as an interface here, rather than importing internal/party
// directly, so C7 can in turn depend on an Orchestrator without a cycle.
type PhaseAdvancer interface {
	AdvanceIfReady(ctx context.Context, sessionID string) (bool, error)
}

// Orchestrator owns the AI account pool and drives AI submissions
// through the same QFService/IRService entry points a human client uses.
type Orchestrator struct {
	store     store.Store
	ledger    *ledger.Service
	qf        *round.QFService
	ir        *round.IRService
	llm       collaborators.LLMProvider
	validator collaborators.PhraseValidator
	cache     *cache.Service
	cfg       *config.Config
	advancer  PhaseAdvancer
}

func New(st store.Store, ldg *ledger.Service, qf *round.QFService, ir *round.IRService, llm collaborators.LLMProvider, validator collaborators.PhraseValidator, contentCache *cache.Service, cfg *config.Config, advancer PhaseAdvancer) *Orchestrator {
	return &Orchestrator{store: st, ledger: ldg, qf: qf, ir: ir, llm: llm, validator: validator, cache: contentCache, cfg: cfg, advancer: advancer}
}

// promptBank seeds a brand-new AI-authored prompt round when no
// existing prompt round is stalled — there is no "fill the missing
// prompt" case otherwise, since a prompt round is the start of the
// pipeline, not content waiting on someone else.
var promptBank = []string{
	"Describe your morning in exactly five words.",
	"Invent a new holiday and its tradition.",
	"What would your pet say if it could talk?",
	"Name a superpower nobody would actually want.",
	"Finish the sentence: the robot finally admitted...",
	"Describe the worst possible pizza topping.",
	"Write a one-line review of Monday mornings.",
	"Invent a conspiracy theory about houseplants.",
}

func randomPrompt() string {
	return promptBank[rand.Intn(len(promptBank))]
}

// retry wraps fn with spec.md §4.8's retry_with_backoff: up to
// cfg.AIMaxRetries attempts, exponential backoff between cfg.AIRetryBaseMs
// and cfg.AIRetryMaxMs with full jitter, retrying only transient
// coordinator errors (lock timeouts and provider unavailability) — a
// validation failure or insufficient balance fails fast instead of
// burning retries on an error that will never resolve itself.
func (o *Orchestrator) retry(ctx context.Context, fn func() error) error {
	base := time.Duration(o.cfg.AIOrchestration.AIRetryBaseMs) * time.Millisecond
	max := time.Duration(o.cfg.AIOrchestration.AIRetryMaxMs) * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < o.cfg.AIOrchestration.AIMaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		delay := base << attempt
		if delay > max {
			delay = max
		}
		delay = time.Duration(rand.Int63n(int64(delay) + 1)) // full jitter
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func isTransient(err error) bool {
	return coordinator.Is(err, coordinator.KindLockTimeout) || coordinator.Is(err, coordinator.KindProviderUnavailable)
}

// stalenessCutoff is now minus the configured AI backup delay.
func (o *Orchestrator) stalenessCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(o.cfg.AIOrchestration.AIBackupDelayMinutes) * time.Minute)
}

// RunStallSweep is the Timer Sweeper's (C10) per-tick hook: it finds
// stalled solo (non-party) content across QF and IR and assigns each
// item one AI action, up to ai_backup_batch_size per category. A still-
// stalled item picks up another AI action on the next tick, so partial
// progress (one of two copies, one of five entries) accumulates tick by
// tick rather than needing every slot filled at once.
func (o *Orchestrator) RunStallSweep(ctx context.Context, now time.Time) error {
	cutoff := o.stalenessCutoff(now)
	batch := o.cfg.AIOrchestration.AIBackupBatchSize

	if err := o.fillStalledCopies(ctx, cutoff, batch); err != nil {
		return fmt.Errorf("ai stall sweep: fill copies: %w", err)
	}
	if err := o.fillStalledVotes(ctx, cutoff, batch); err != nil {
		return fmt.Errorf("ai stall sweep: fill votes: %w", err)
	}
	if err := o.fillStalledEntries(ctx, cutoff, batch); err != nil {
		return fmt.Errorf("ai stall sweep: fill ir entries: %w", err)
	}
	if err := o.fillStalledIRVotes(ctx, cutoff, batch); err != nil {
		return fmt.Errorf("ai stall sweep: fill ir votes: %w", err)
	}
	if err := o.maintainPromptSupply(ctx); err != nil {
		return fmt.Errorf("ai stall sweep: maintain prompt supply: %w", err)
	}
	return nil
}

// maintainPromptSupply is distinct from the other fill* passes: a prompt
// round has nothing to stall on (it is the start of the pipeline, not
// content waiting on someone else), so rather than reacting to staleness
// it keeps the global copy queue stocked whenever it runs low, using the
// QF_QUIP pool role dedicated to proactive prompt authorship.
func (o *Orchestrator) maintainPromptSupply(ctx context.Context) error {
	open, err := o.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetOpen)
	if err != nil {
		return err
	}
	awaitingCopy := 0
	for _, ps := range open {
		if ps.PartySessionID == nil && !ps.HasBothCopies() {
			awaitingCopy++
		}
	}
	if awaitingCopy >= minPromptSupply {
		return nil
	}
	player, err := o.pickOrCreateAIPlayer(ctx, models.AIRoleQFQuip, models.GameQF, o.cfg.Pricing.PromptCost, nil)
	if err != nil {
		return err
	}
	return o.retry(ctx, func() error {
		r, err := o.qf.StartPrompt(ctx, player.ID, o.cfg.Pricing.PromptCost, randomPrompt(), nil, nil)
		if err != nil {
			return err
		}
		phrase, err := o.generateQuipPhrase(ctx, r.PromptText)
		if err != nil {
			return err
		}
		_, err = o.qf.SubmitPrompt(ctx, player.ID, r.ID, phrase)
		return err
	})
}

// minPromptSupply is the floor of open (awaiting-copy) prompts the AI
// orchestrator tries to keep in circulation so the Work Matcher's global
// copy queue never runs dry for human copiers.
const minPromptSupply = 3

func (o *Orchestrator) fillStalledCopies(ctx context.Context, cutoff time.Time, batch int) error {
	open, err := o.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetOpen)
	if err != nil {
		return err
	}
	filled := 0
	for _, ps := range open {
		if filled >= batch {
			return nil
		}
		if ps.PartySessionID != nil || ps.HasBothCopies() || ps.CreatedAt.After(cutoff) {
			continue
		}
		if err := o.fillOneCopy(ctx, &ps); err != nil {
			return err
		}
		filled++
	}
	return nil
}

func (o *Orchestrator) fillOneCopy(ctx context.Context, ps *models.Phraseset) error {
	exclude := map[string]bool{ps.AuthorID: true}
	if ps.Copy1RoundID != "" {
		exclude[ps.Copy1PlayerID] = true
	}
	player, err := o.pickOrCreateAIPlayer(ctx, models.AIRoleQFImpostor, models.GameQF, o.cfg.Pricing.CopyCostNormal, exclude)
	if err != nil {
		return err
	}
	return o.retry(ctx, func() error {
		r, err := o.qf.StartCopy(ctx, player.ID, o.cfg.Pricing.CopyCostNormal, ps.PromptRoundID, ps.PromptText, nil, nil)
		if err != nil {
			return err
		}
		other := ps.Copy1Phrase
		phrase, err := o.generateCopyPhrase(ctx, ps.PromptRoundID, ps.PromptText, other)
		if err != nil {
			return err
		}
		_, err = o.qf.SubmitCopy(ctx, player.ID, r.ID, phrase)
		return err
	})
}

func (o *Orchestrator) fillStalledVotes(ctx context.Context, cutoff time.Time, batch int) error {
	voting, err := o.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetVoting)
	if err != nil {
		return err
	}
	filled := 0
	for _, ps := range voting {
		if filled >= batch {
			return nil
		}
		if ps.PartySessionID != nil {
			continue
		}
		lastActivity := ps.CreatedAt
		if ps.VotingStartedAt != nil {
			lastActivity = *ps.VotingStartedAt
		}
		if lastActivity.After(cutoff) {
			continue
		}
		if err := o.fillOneVote(ctx, &ps); err != nil {
			return err
		}
		filled++
	}
	return nil
}

func (o *Orchestrator) fillOneVote(ctx context.Context, ps *models.Phraseset) error {
	exclude := map[string]bool{ps.AuthorID: true, ps.Copy1PlayerID: true}
	if ps.Copy2PlayerID != nil {
		exclude[*ps.Copy2PlayerID] = true
	}
	alreadyVoted := func(playerID string) (bool, error) {
		return o.store.HasVoted(ctx, nil, ps.ID, playerID)
	}
	player, err := o.pickOrCreateAIPlayerFiltered(ctx, models.AIRoleQFVoter, models.GameQF, o.cfg.Pricing.VoteCost, exclude, alreadyVoted)
	if err != nil {
		return err
	}
	return o.retry(ctx, func() error {
		r, err := o.qf.StartVote(ctx, player.ID, o.cfg.Pricing.VoteCost, ps.ID, ps.PromptText, nil, nil)
		if err != nil {
			return err
		}
		_, err = o.qf.SubmitVote(ctx, player.ID, r.ID, randomVoteSlot(ps), o.cfg.Pricing.VoteCost)
		return err
	})
}

func randomVoteSlot(ps *models.Phraseset) models.VoteSlot {
	slots := []models.VoteSlot{models.VoteOriginal, models.VoteCopy1}
	if ps.Copy2RoundID != nil {
		slots = append(slots, models.VoteCopy2)
	}
	return slots[rand.Intn(len(slots))]
}

func (o *Orchestrator) fillStalledEntries(ctx context.Context, cutoff time.Time, batch int) error {
	open, err := o.store.ListBackronymSetsByStatus(ctx, nil, models.SetOpen)
	if err != nil {
		return err
	}
	filled := 0
	for _, set := range open {
		if filled >= batch {
			return nil
		}
		if set.EntryCount() >= 5 || lastIRSetActivity(&set).After(cutoff) {
			continue
		}
		if err := o.fillOneEntry(ctx, &set); err != nil {
			return err
		}
		filled++
	}
	return nil
}

func lastIRSetActivity(set *models.BackronymSet) time.Time {
	last := set.CreatedAt
	for _, e := range set.Entries {
		if e.CreatedAt.After(last) {
			last = e.CreatedAt
		}
	}
	for _, v := range set.Votes {
		if v.CreatedAt.After(last) {
			last = v.CreatedAt
		}
	}
	return last
}

func (o *Orchestrator) fillOneEntry(ctx context.Context, set *models.BackronymSet) error {
	exclude := make(map[string]bool, len(set.Entries))
	for _, e := range set.Entries {
		exclude[e.PlayerID] = true
	}
	player, err := o.pickOrCreateAIPlayer(ctx, models.AIRoleIRPlayer, models.GameIR, o.cfg.Pricing.IRBackronymEntryCost, exclude)
	if err != nil {
		return err
	}
	return o.retry(ctx, func() error {
		r, err := o.ir.StartEntry(ctx, player.ID, o.cfg.Pricing.IRBackronymEntryCost, set.ID, set.Word)
		if err != nil {
			return err
		}
		words, err := o.generateBackronymWords(ctx, set.Word)
		if err != nil {
			return err
		}
		_, err = o.ir.SubmitEntry(ctx, player.ID, r.ID, words)
		return err
	})
}

func (o *Orchestrator) fillStalledIRVotes(ctx context.Context, cutoff time.Time, batch int) error {
	voting, err := o.store.ListBackronymSetsByStatus(ctx, nil, models.SetVoting)
	if err != nil {
		return err
	}
	filled := 0
	for _, set := range voting {
		if filled >= batch {
			return nil
		}
		if lastIRSetActivity(&set).After(cutoff) {
			continue
		}
		if err := o.fillOneIRVote(ctx, &set); err != nil {
			return err
		}
		filled++
	}
	return nil
}

func (o *Orchestrator) fillOneIRVote(ctx context.Context, set *models.BackronymSet) error {
	voted := make(map[string]bool, len(set.Votes))
	for _, v := range set.Votes {
		voted[v.VoterID] = true
	}
	alreadyActed := func(playerID string) (bool, error) { return voted[playerID], nil }
	player, err := o.pickOrCreateAIPlayerFiltered(ctx, models.AIRoleIRPlayer, models.GameIR, o.cfg.Pricing.IRVoteCost, nil, alreadyActed)
	if err != nil {
		return err
	}
	entryID := set.Entries[rand.Intn(len(set.Entries))].ID
	return o.retry(ctx, func() error {
		r, err := o.ir.StartVote(ctx, player.ID, o.cfg.Pricing.IRVoteCost, set.ID, set.Word)
		if err != nil {
			return err
		}
		_, err = o.ir.SubmitVote(ctx, player.ID, r.ID, entryID, o.cfg.Pricing.IRVoteCost)
		return err
	})
}

// FillPhase backfills every ACTIVE AI participant in sessionID that has
// not yet met the current phase's requirement, one submission each, all
// in parallel — each in its own per-player unit of work via the
// QFService call chain, which itself acquires the per-player lock
// (spec.md §4.8's "own unit of work... per-player named lock"). Once
// every task finishes it re-checks phase advance and, each time the
// session advances, recurses into the next phase.
func (o *Orchestrator) FillPhase(ctx context.Context, sessionID string, phase models.Phase) error {
	participants, err := o.store.ListParticipants(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	session, err := o.store.GetSession(ctx, nil, sessionID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range participants {
		p := participants[i]
		if !p.IsAI || p.Status != models.ParticipantActive {
			continue
		}
		if phaseSatisfied(p, phase, session.Config) {
			continue
		}
		g.Go(func() error {
			return o.fillParticipantPhase(gctx, session, &p, phase)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if o.advancer == nil {
		return nil
	}
	advanced, err := o.advancer.AdvanceIfReady(ctx, sessionID)
	if err != nil || !advanced {
		return err
	}
	next, err := o.store.GetSession(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	return o.FillPhase(ctx, sessionID, next.CurrentPhase)
}

func phaseSatisfied(p models.PartyParticipant, phase models.Phase, cfg models.SessionConfig) bool {
	switch phase {
	case models.PhasePrompt:
		return p.PromptsSubmitted >= cfg.PromptsPerPlayer
	case models.PhaseCopy:
		return p.CopiesSubmitted >= cfg.CopiesPerPlayer
	case models.PhaseVote:
		return p.VotesSubmitted >= cfg.VotesPerPlayer
	default:
		return true
	}
}

func (o *Orchestrator) fillParticipantPhase(ctx context.Context, session *models.PartySession, p *models.PartyParticipant, phase models.Phase) error {
	switch phase {
	case models.PhasePrompt:
		return o.retry(ctx, func() error {
			r, err := o.qf.StartPrompt(ctx, p.PlayerID, o.cfg.Pricing.PromptCost, randomPrompt(), &session.ID, &p.ID)
			if err != nil {
				return err
			}
			phrase, err := o.generateQuipPhrase(ctx, r.PromptText)
			if err != nil {
				return err
			}
			_, err = o.qf.SubmitPrompt(ctx, p.PlayerID, r.ID, phrase)
			return err
		})
	case models.PhaseCopy:
		target, err := o.pickPartyPromptForCopy(ctx, session.ID, p.PlayerID)
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}
		ps := target
		return o.retry(ctx, func() error {
			r, err := o.qf.StartCopy(ctx, p.PlayerID, o.cfg.Pricing.CopyCostNormal, ps.PromptRoundID, ps.PromptText, &session.ID, &p.ID)
			if err != nil {
				return err
			}
			phrase, err := o.generateCopyPhrase(ctx, ps.PromptRoundID, ps.PromptText, ps.Copy1Phrase)
			if err != nil {
				return err
			}
			_, err = o.qf.SubmitCopy(ctx, p.PlayerID, r.ID, phrase)
			return err
		})
	case models.PhaseVote:
		target, err := o.pickPartyPhrasesetForVote(ctx, session.ID, p.PlayerID)
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}
		ps := target
		return o.retry(ctx, func() error {
			r, err := o.qf.StartVote(ctx, p.PlayerID, o.cfg.Pricing.VoteCost, ps.ID, ps.PromptText, &session.ID, &p.ID)
			if err != nil {
				return err
			}
			_, err = o.qf.SubmitVote(ctx, p.PlayerID, r.ID, randomVoteSlot(ps), o.cfg.Pricing.VoteCost)
			return err
		})
	default:
		return nil
	}
}

func (o *Orchestrator) pickPartyPromptForCopy(ctx context.Context, sessionID, playerID string) (*models.Phraseset, error) {
	rounds, err := o.store.ListRoundsByPartySession(ctx, nil, sessionID, models.RoundPrompt)
	if err != nil {
		return nil, err
	}
	for _, r := range rounds {
		if r.Status != models.RoundSubmitted || r.PlayerID == playerID {
			continue
		}
		ps, err := o.store.GetPhrasesetByPromptRound(ctx, nil, r.ID)
		if err != nil || ps == nil || ps.HasBothCopies() {
			continue
		}
		if ps.Copy1PlayerID == playerID {
			continue
		}
		return ps, nil
	}
	return nil, nil
}

func (o *Orchestrator) pickPartyPhrasesetForVote(ctx context.Context, sessionID, playerID string) (*models.Phraseset, error) {
	votable, err := o.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetVoting)
	if err != nil {
		return nil, err
	}
	for _, ps := range votable {
		if ps.PartySessionID == nil || *ps.PartySessionID != sessionID {
			continue
		}
		if ps.AuthorID == playerID || ps.Copy1PlayerID == playerID ||
			(ps.Copy2PlayerID != nil && *ps.Copy2PlayerID == playerID) {
			continue
		}
		voted, err := o.store.HasVoted(ctx, nil, ps.ID, playerID)
		if err != nil {
			return nil, err
		}
		if !voted {
			pp := ps
			return &pp, nil
		}
	}
	return nil, nil
}

// pickOrCreateAIPlayer is pickOrCreateAIPlayerFiltered with "has not
// already acted" always false (the caller already filtered by exclude).
func (o *Orchestrator) pickOrCreateAIPlayer(ctx context.Context, role models.AIRole, game models.GameType, minWallet int64, exclude map[string]bool) (*models.Player, error) {
	return o.pickOrCreateAIPlayerFiltered(ctx, role, game, minWallet, exclude, func(string) (bool, error) { return false, nil })
}

// pickOrCreateAIPlayerFiltered implements spec.md §4.8's AI player
// selection: a pool member not in a conflicting active round, with
// sufficient wallet, that has not already acted on this content item; if
// none qualifies, a fresh AI account is created for the role.
func (o *Orchestrator) pickOrCreateAIPlayerFiltered(ctx context.Context, role models.AIRole, game models.GameType, minWallet int64, exclude map[string]bool, alreadyActed func(playerID string) (bool, error)) (*models.Player, error) {
	pool, err := o.store.ListAIPool(ctx, nil, role)
	if err != nil {
		return nil, err
	}
	for _, candidate := range pool {
		if exclude[candidate.ID] {
			continue
		}
		active, err := o.store.GetActiveRound(ctx, nil, candidate.ID, game)
		if err != nil {
			return nil, err
		}
		if active != nil {
			continue
		}
		wallet, _, err := o.ledger.Balance(ctx, nil, candidate.ID, game)
		if err != nil {
			return nil, err
		}
		if wallet < minWallet {
			continue
		}
		acted, err := alreadyActed(candidate.ID)
		if err != nil {
			return nil, err
		}
		if acted {
			continue
		}
		c := candidate
		return &c, nil
	}
	return o.createAIAccount(ctx, role, game)
}

// createAIAccount mints a fresh AI account bound to role, with a
// collision-checked random username and a starting wallet sized for at
// least a handful of rounds.
func (o *Orchestrator) createAIAccount(ctx context.Context, role models.AIRole, game models.GameType) (*models.Player, error) {
	var canonical, display string
	for attempt := 0; attempt < 10; attempt++ {
		display = randomAIName(role)
		canonical = strings.ToLower(display)
		exists, err := o.store.UsernameExists(ctx, nil, canonical)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	p := &models.Player{
		ID: uuid.NewString(), DisplayName: display, CanonicalName: canonical,
		IsAI: true, AIRole: role,
	}
	data := &models.PlayerGameData{PlayerID: p.ID, Game: game, Wallet: startingWallet(o.cfg, game)}
	if err := o.store.CreatePlayer(ctx, nil, p, data); err != nil {
		return nil, err
	}
	return p, nil
}

func startingWallet(cfg *config.Config, game models.GameType) int64 {
	switch game {
	case models.GameIR:
		return cfg.Economy.IRInitialBalance
	case models.GameTL:
		return cfg.Economy.TLStartingBalance
	default:
		return cfg.Economy.QFStartingWallet
	}
}

var aiAdjectives = []string{"Quick", "Quiet", "Clever", "Witty", "Sly", "Bold", "Calm", "Sharp", "Dizzy", "Jolly"}
var aiNouns = []string{"Otter", "Falcon", "Maple", "Comet", "Pixel", "Ember", "Quartz", "Willow", "Cipher", "Lantern"}

func randomAIName(role models.AIRole) string {
	adj := aiAdjectives[rand.Intn(len(aiAdjectives))]
	noun := aiNouns[rand.Intn(len(aiNouns))]
	suffix := rand.Intn(10000)
	return fmt.Sprintf("%s%s%s%04d", adj, noun, string(role[:2]), suffix)
}

// generateQuipPhrase draws a short funny answer to promptText from the
// Content Cache's quip pool (C3), keyed by the normalized prompt text so
// every AI author of the same prompt shares one generated batch.
func (o *Orchestrator) generateQuipPhrase(ctx context.Context, promptText string) (string, error) {
	return o.cache.Consume(ctx, cache.Request{
		Kind:       cache.KindQuip,
		PromptKey:  cache.NormalizeKey(promptText),
		PromptText: promptText,
	})
}

// generateCopyPhrase draws a decoy answer meant to pass as the original,
// distinct from any other copy already submitted, from the Content
// Cache's impostor pool (C3), keyed by the prompt round so regeneration
// triggered by the first human copy only affects that round's batch.
func (o *Orchestrator) generateCopyPhrase(ctx context.Context, promptRoundID, promptText, otherCopy string) (string, error) {
	var other *string
	if otherCopy != "" {
		other = &otherCopy
	}
	return o.cache.Consume(ctx, cache.Request{
		Kind:       cache.KindImpostor,
		PromptKey:  promptRoundID,
		PromptText: promptText,
		OtherCopy:  other,
	})
}

// generateBackronymWords asks the LLM for one word per letter of word,
// then falls back to the letters themselves if parsing yields too few.
func (o *Orchestrator) generateBackronymWords(ctx context.Context, word string) ([]string, error) {
	prompt := fmt.Sprintf("Write a backronym: one real word for each letter in %q, in order, forming a funny phrase. Reply with only the words, space separated.", word)
	resp, err := o.llm.GenerateResponse(ctx, prompt, o.cfg.AIOrchestration.AIModel, o.cfg.AIOrchestration.AITimeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("generate backronym words: %w", err)
	}
	words := strings.Fields(strings.TrimSpace(resp))
	if len(words) < len(word) {
		words = make([]string, len(word))
		for i, letter := range word {
			words[i] = string(letter)
		}
	}
	return words[:len(word)], nil
}
