// Package matcher implements C6, the Work Matcher: given a player and
// a needed round type, it picks the next eligible work item (a
// submitted prompt round, a voteable phraseset, or an open backronym
// set), honoring the exclusions and tie-break rules spec.md §4.6
// spells out because they affect tests.
package matcher

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/round"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// Matcher is stateless aside from its Store/QueueService dependencies;
// all eligibility state lives in the store.
type Matcher struct {
	store store.Store
	queue lockqueue.QueueService
	clock coordinator.Clock
}

func New(st store.Store, q lockqueue.QueueService, clock coordinator.Clock) *Matcher {
	return &Matcher{store: st, queue: q, clock: clock}
}

// PickPromptForCopy returns a prompt round playerID may copy: not
// previously copied by them, not authored by them, and — in a party —
// not authored by anyone in the party. In a party session whose phase
// is COPY, it scans the party's own prompt rounds in created_at
// ascending order; otherwise it pops from the global FIFO prompt
// queue, holding aside and requeuing ineligible picks so a slow picker
// never loses its place behind a recently-popped item it should still
// see (spec.md §4.6).
func (m *Matcher) PickPromptForCopy(ctx context.Context, playerID string, partySessionID *string) (*models.Round, error) {
	var excludeAuthors map[string]bool
	if partySessionID != nil {
		rounds, err := m.store.ListRoundsByPartySession(ctx, nil, *partySessionID, models.RoundPrompt)
		if err != nil {
			return nil, err
		}
		partyAuthors, err := m.partyAuthorSet(ctx, *partySessionID)
		if err != nil {
			return nil, err
		}
		excludeAuthors = partyAuthors
		for _, r := range rounds {
			if r.Status != models.RoundSubmitted {
				continue
			}
			if partyAuthors[r.PlayerID] {
				continue
			}
			copied, err := m.playerCopiedPrompt(ctx, playerID, r.ID)
			if err != nil {
				return nil, err
			}
			if copied {
				continue
			}
			rr := r
			return &rr, nil
		}
		// No eligible prompt among the party's own rounds: fall back to
		// the global queue, still excluding anything authored by a party
		// member (spec.md §4.6's boundary scenario for a party member
		// who must look outside the party).
	}

	var held []lockqueue.QueueItem
	defer func() {
		for _, item := range held {
			_ = m.queue.Push(ctx, round.PromptQueueName, item)
		}
	}()

	for {
		item, ok, err := m.queue.Pop(ctx, round.PromptQueueName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, coordinator.New(coordinator.KindNoEligibleWork, "no prompts available")
		}
		promptRoundID := item["promptRoundId"]
		r, err := m.store.GetRound(ctx, nil, promptRoundID)
		if err != nil {
			held = append(held, item)
			continue
		}
		eligible, err := m.promptEligibleForCopy(ctx, playerID, r, excludeAuthors)
		if err != nil {
			return nil, err
		}
		if !eligible {
			held = append(held, item)
			continue
		}
		if err := m.queue.Push(ctx, round.PromptQueueName, item); err != nil {
			return nil, err
		}
		return r, nil
	}
}

func (m *Matcher) promptEligibleForCopy(ctx context.Context, playerID string, r *models.Round, excludeAuthors map[string]bool) (bool, error) {
	if r.Status != models.RoundSubmitted {
		return false, nil
	}
	if r.PlayerID == playerID {
		return false, nil
	}
	if excludeAuthors[r.PlayerID] {
		return false, nil
	}
	cooldown, err := m.store.GetAbandonCooldown(ctx, nil, playerID, r.ID)
	if err != nil {
		return false, err
	}
	if cooldown != nil {
		return false, nil
	}
	copied, err := m.playerCopiedPrompt(ctx, playerID, r.ID)
	if err != nil {
		return false, err
	}
	return !copied, nil
}

func (m *Matcher) playerCopiedPrompt(ctx context.Context, playerID, promptRoundID string) (bool, error) {
	ps, err := m.store.GetPhrasesetByPromptRound(ctx, nil, promptRoundID)
	if err != nil {
		return false, err
	}
	if ps == nil {
		return false, nil
	}
	return ps.Copy1PlayerID == playerID || (ps.Copy2PlayerID != nil && *ps.Copy2PlayerID == playerID), nil
}

func (m *Matcher) partyAuthorSet(ctx context.Context, sessionID string) (map[string]bool, error) {
	participants, err := m.store.ListParticipants(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(participants))
	for _, p := range participants {
		set[p.PlayerID] = true
	}
	return set, nil
}

// PickPhrasesetForVote is PickPromptForCopy's analogue for voting:
// exclusions are "contributed to (prompt or either copy)" and
// "already voted on".
func (m *Matcher) PickPhrasesetForVote(ctx context.Context, playerID string, partySessionID *string) (*models.Phraseset, error) {
	var excludeContributors map[string]bool
	if partySessionID != nil {
		votable, err := m.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetVoting)
		if err != nil {
			return nil, err
		}
		partyAuthors, err := m.partyAuthorSet(ctx, *partySessionID)
		if err != nil {
			return nil, err
		}
		excludeContributors = partyAuthors
		for _, ps := range votable {
			if ps.PartySessionID == nil || *ps.PartySessionID != *partySessionID {
				continue
			}
			eligible, err := m.phrasesetEligibleForVote(ctx, playerID, &ps, nil)
			if err != nil {
				return nil, err
			}
			if eligible {
				pp := ps
				return &pp, nil
			}
		}
		// No eligible phraseset among the party's own sets: fall back to
		// the global queue, excluding anything contributed to by a party
		// member, symmetric with PickPromptForCopy's fallback.
	}

	var held []lockqueue.QueueItem
	defer func() {
		for _, item := range held {
			_ = m.queue.Push(ctx, round.PhrasesetQueueName, item)
		}
	}()

	for {
		item, ok, err := m.queue.Pop(ctx, round.PhrasesetQueueName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, coordinator.New(coordinator.KindNoEligibleWork, "no phrasesets available")
		}
		ps, err := m.store.GetPhraseset(ctx, nil, item["phrasesetId"])
		if err != nil {
			held = append(held, item)
			continue
		}
		eligible, err := m.phrasesetEligibleForVote(ctx, playerID, ps, excludeContributors)
		if err != nil {
			return nil, err
		}
		if !eligible {
			held = append(held, item)
			continue
		}
		if err := m.queue.Push(ctx, round.PhrasesetQueueName, item); err != nil {
			return nil, err
		}
		return ps, nil
	}
}

func (m *Matcher) phrasesetEligibleForVote(ctx context.Context, playerID string, ps *models.Phraseset, excludeContributors map[string]bool) (bool, error) {
	if ps.Status != models.PhrasesetVoting && ps.Status != models.PhrasesetClosing {
		return false, nil
	}
	if ps.AuthorID == playerID || ps.Copy1PlayerID == playerID ||
		(ps.Copy2PlayerID != nil && *ps.Copy2PlayerID == playerID) {
		return false, nil
	}
	if excludeContributors[ps.AuthorID] || excludeContributors[ps.Copy1PlayerID] ||
		(ps.Copy2PlayerID != nil && excludeContributors[*ps.Copy2PlayerID]) {
		return false, nil
	}
	voted, err := m.store.HasVoted(ctx, nil, ps.ID, playerID)
	if err != nil {
		return false, err
	}
	return !voted, nil
}

// wordBank is curated 3-5 letter backronym seeds, grounded on the
// original IR word service's hand-picked list.
var wordBank = []string{
	"CAT", "DOG", "BAT", "HAT", "SAT", "FIT", "BOX", "FOX", "BUS", "TOP",
	"ART", "EAR", "AIR", "ARM", "FAN", "RED", "BIG", "FUN", "CUP", "CUT",
	"JAM", "DAY", "WAY", "ABLE", "BACK", "BALL", "BAND", "BANK", "BASE",
	"BEAM", "BEAN", "BEAR", "BEAT", "BELL", "BELT", "BIKE", "BIRD", "BLUE",
	"BOAT", "BODY", "BOOK", "BOOT", "BURN", "CAGE", "CAKE", "CALL", "CAMP",
	"CARD", "CARE", "CASE", "CITY", "CLAY", "CLUB", "COAT", "CODE", "COLD",
	"CORE", "CORN", "CREW", "CROP", "CUBE", "DARE", "DARK", "DATE", "DAWN",
	"DEAL", "DEEP", "DESK", "DIAL", "DIRT", "DISH", "DOCK", "DOOR", "DOWN",
	"DRAW", "DROP", "DRUM", "DUCK", "DUSK", "DUTY", "ABOUT", "ADAPT", "ADMIT",
	"ADOPT", "ADULT", "AFTER", "AGAIN", "AGENT", "AGREE", "ALARM", "ALBUM",
	"ALERT", "ALIEN", "ALIGN", "ALIKE", "ALIVE", "ALLOW", "ALONE", "ALONG",
	"ANGEL", "ANGER", "ANGLE", "ANGRY", "APART", "APPLE", "ARENA", "ARGUE",
	"ARISE", "ARMOR", "AROMA", "ARRAY", "ARROW", "ASIDE", "ASSET", "ATLAS",
	"AUDIO", "AUDIT", "AVOID", "AWAKE", "AWARD", "AWARE",
}

func randomWord() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(wordBank))))
	if err != nil {
		return "", err
	}
	return wordBank[n.Int64()], nil
}

// PickBackronymSetForEntry picks the most recently created open set
// with entry_count < 5 where playerID has no entry; if none exists it
// creates a fresh set with a word not used in the last 30 minutes.
func (m *Matcher) PickBackronymSetForEntry(ctx context.Context, playerID string, mode models.BackronymMode, entryTimerDuration time.Duration) (*models.BackronymSet, error) {
	candidates, err := m.store.ListMostRecentOpenNotEntered(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.EntryCount() < 5 {
			cc := c
			return &cc, nil
		}
	}

	const maxAttempts = 10
	cutoff := m.clock.Now().Add(-30 * time.Minute)
	var word string
	for i := 0; i < maxAttempts; i++ {
		w, err := randomWord()
		if err != nil {
			return nil, err
		}
		used, err := m.store.WordUsedWithin(ctx, nil, w, cutoff)
		if err != nil {
			return nil, err
		}
		if !used {
			word = w
			break
		}
	}
	if word == "" {
		w, err := randomWord()
		if err != nil {
			return nil, err
		}
		word = w
	}

	now := m.clock.Now()
	set := &models.BackronymSet{
		ID:                    uuid.NewString(),
		Word:                  word,
		Mode:                  mode,
		Status:                models.SetOpen,
		CreatedAt:             now,
		TransitionsToVotingAt: now.Add(entryTimerDuration),
	}
	if err := m.store.CreateBackronymSet(ctx, nil, set); err != nil {
		return nil, err
	}
	return set, nil
}
