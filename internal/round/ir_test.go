package round

import (
	"context"
	"testing"
	"time"

	"github.com/sheegaon/quipengine/internal/broadcaster"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/pkg/models"
)

func newTestIRService(t *testing.T, lockoutThreshold, lockoutHours int) (*IRService, *memstore.Store, *coordinator.FakeClock) {
	t.Helper()
	st := memstore.New()
	clock := coordinator.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ldg := ledger.New(st, clock)
	locks := lockqueue.NewMemoryService()

	cfg := config.Load()
	cfg.AntiAbuse.GuestVoteLockoutThreshold = lockoutThreshold
	cfg.AntiAbuse.GuestVoteLockoutHours = lockoutHours

	engine := New(st, ldg, locks, stubValidator{}, clock, cfg, broadcaster.NewHub())
	ir := NewIRService(engine, st, ldg)
	return ir, st, clock
}

// TestGuestVoteLockoutAfterConsecutiveIncorrect drives Finalize twice
// against two sets where the guest voter picks the losing entry both
// times, and checks the lockout engages once the threshold is hit and
// SubmitVote then refuses a fresh vote round.
func TestGuestVoteLockoutAfterConsecutiveIncorrect(t *testing.T) {
	ir, st, clock := newTestIRService(t, 2, 24)
	ctx := context.Background()

	guestID := "guest1"
	winnerID, loserID := "p_winner", "p_loser"
	seedTestPlayer(t, st, clock, guestID, true)
	seedTestPlayer(t, st, clock, winnerID, false)
	seedTestPlayer(t, st, clock, loserID, false)

	finalizeWithGuestVotingLoser := func(setID string) {
		set := &models.BackronymSet{
			ID: setID, Word: "CAT", Mode: models.ModeStandard, Status: models.SetVoting,
			Entries: []models.BackronymEntry{
				{ID: setID + "-e-win", SetID: setID, PlayerID: winnerID, RoundID: setID + "-r-win", Words: []string{"Calm", "Able", "Tame"}},
				{ID: setID + "-e-lose", SetID: setID, PlayerID: loserID, RoundID: setID + "-r-lose", Words: []string{"Cold", "Angry", "Tired"}},
			},
			Votes: []models.BackronymVote{
				{ID: setID + "-v1", SetID: setID, VoterID: winnerID, EntryID: setID + "-e-win", IsParticipant: true},
				{ID: setID + "-v2", SetID: setID, VoterID: loserID, EntryID: setID + "-e-win", IsParticipant: true},
				{ID: setID + "-v3", SetID: setID, VoterID: guestID, EntryID: setID + "-e-lose", IsParticipant: false},
			},
			PrizePool: 100,
		}
		if err := st.CreateBackronymSet(ctx, nil, set); err != nil {
			t.Fatalf("CreateBackronymSet: %v", err)
		}
		if err := ir.Finalize(ctx, setID, 0.1, 20); err != nil {
			t.Fatalf("Finalize %s: %v", setID, err)
		}
	}

	finalizeWithGuestVotingLoser("set1")
	data, err := st.GetPlayerGameData(ctx, nil, guestID, models.GameIR)
	if err != nil {
		t.Fatalf("GetPlayerGameData: %v", err)
	}
	if data.ConsecutiveIncorrectVote != 1 {
		t.Fatalf("ConsecutiveIncorrectVote after 1 wrong vote = %d, want 1", data.ConsecutiveIncorrectVote)
	}
	if data.VoteLockoutUntil != nil {
		t.Fatalf("guest should not be locked out after only 1 wrong vote")
	}

	finalizeWithGuestVotingLoser("set2")
	data, err = st.GetPlayerGameData(ctx, nil, guestID, models.GameIR)
	if err != nil {
		t.Fatalf("GetPlayerGameData: %v", err)
	}
	if data.ConsecutiveIncorrectVote != 2 {
		t.Fatalf("ConsecutiveIncorrectVote after 2 wrong votes = %d, want 2", data.ConsecutiveIncorrectVote)
	}
	if data.VoteLockoutUntil == nil {
		t.Fatalf("guest should be locked out after reaching the threshold of 2 wrong votes")
	}

	r, err := ir.StartVote(ctx, guestID, 5, "set3", "CAT")
	if err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	_, err = ir.SubmitVote(ctx, guestID, r.ID, "set3-e-win", 5)
	if !coordinator.Is(err, coordinator.KindVoteLockout) {
		t.Fatalf("err = %v, want KindVoteLockout", err)
	}
}
