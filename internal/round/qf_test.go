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

func newTestQFService(t *testing.T, maxOutstanding, guestMaxOutstanding int) (*QFService, *memstore.Store, coordinator.Clock) {
	t.Helper()
	st := memstore.New()
	clock := coordinator.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ldg := ledger.New(st, clock)
	locks := lockqueue.NewMemoryService()
	queue := lockqueue.NewMemoryService()

	cfg := config.Load()
	cfg.AntiAbuse.MaxOutstandingQuips = maxOutstanding
	cfg.AntiAbuse.GuestMaxOutstandingQuips = guestMaxOutstanding

	engine := New(st, ldg, locks, stubValidator{}, clock, cfg, broadcaster.NewHub())
	qf := NewQFService(engine, st, ldg, queue, nil)
	return qf, st, clock
}

type stubValidator struct{}

func (stubValidator) Validate(ctx context.Context, phrase string) (bool, string, error) {
	return true, "", nil
}
func (stubValidator) ValidatePromptPhrase(ctx context.Context, phrase, promptText string) (bool, string, error) {
	return true, "", nil
}
func (stubValidator) ValidateCopy(ctx context.Context, phrase, originalPhrase string, otherCopyPhrase, promptText *string) (bool, string, error) {
	return true, "", nil
}
func (stubValidator) ValidateBackronymWords(ctx context.Context, words []string, expectedLetters []byte) (bool, string, error) {
	return true, "", nil
}

func seedTestPlayer(t *testing.T, st *memstore.Store, clock coordinator.Clock, playerID string, isGuest bool) {
	t.Helper()
	player := &models.Player{ID: playerID, DisplayName: "Ada", CanonicalName: playerID, IsGuest: isGuest, CreatedAt: clock.Now()}
	data := &models.PlayerGameData{PlayerID: playerID, Game: models.GameQF, Wallet: 1000}
	if err := st.CreatePlayer(context.Background(), nil, player, data); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	for _, game := range []models.GameType{models.GameIR, models.GameTL} {
		gd := &models.PlayerGameData{PlayerID: playerID, Game: game, Wallet: 1000}
		if err := st.UpdatePlayerGameData(context.Background(), nil, gd); err != nil {
			t.Fatalf("seed %s game data: %v", game, err)
		}
	}
}

func seedOutstandingPhraseset(t *testing.T, st *memstore.Store, id, authorID string) {
	t.Helper()
	ps := &models.Phraseset{
		ID:            id,
		PromptRoundID: id + "-round",
		AuthorID:      authorID,
		PromptText:    "test prompt",
		Status:        models.PhrasesetOpen,
	}
	if err := st.CreatePhraseset(context.Background(), nil, ps); err != nil {
		t.Fatalf("CreatePhraseset: %v", err)
	}
}

func TestCheckOutstandingCapAllowsBelowLimit(t *testing.T) {
	qf, st, clock := newTestQFService(t, 2, 1)
	seedTestPlayer(t, st, clock, "p1", false)
	seedOutstandingPhraseset(t, st, "ps1", "p1")

	if _, err := qf.StartPrompt(context.Background(), "p1", 10, "prompt text", nil, nil); err != nil {
		t.Fatalf("StartPrompt should succeed with one outstanding of two allowed: %v", err)
	}
}

func TestCheckOutstandingCapRejectsAtLimit(t *testing.T) {
	qf, st, clock := newTestQFService(t, 1, 1)
	seedTestPlayer(t, st, clock, "p1", false)
	seedOutstandingPhraseset(t, st, "ps1", "p1")

	_, err := qf.StartPrompt(context.Background(), "p1", 10, "prompt text", nil, nil)
	if !coordinator.Is(err, coordinator.KindOutstandingCapReached) {
		t.Fatalf("err = %v, want KindOutstandingCapReached", err)
	}
}

func TestCheckOutstandingCapUsesGuestLimit(t *testing.T) {
	qf, st, clock := newTestQFService(t, 5, 1)
	seedTestPlayer(t, st, clock, "g1", true)
	seedOutstandingPhraseset(t, st, "ps1", "g1")

	_, err := qf.StartPrompt(context.Background(), "g1", 10, "prompt text", nil, nil)
	if !coordinator.Is(err, coordinator.KindOutstandingCapReached) {
		t.Fatalf("err = %v, want KindOutstandingCapReached (guest limit of 1 already reached)", err)
	}
}

func TestCheckOutstandingCapIgnoresFinalized(t *testing.T) {
	qf, st, clock := newTestQFService(t, 1, 1)
	seedTestPlayer(t, st, clock, "p1", false)
	ps := &models.Phraseset{
		ID: "ps1", PromptRoundID: "ps1-round", AuthorID: "p1",
		PromptText: "test prompt", Status: models.PhrasesetFinalized,
	}
	if err := st.CreatePhraseset(context.Background(), nil, ps); err != nil {
		t.Fatalf("CreatePhraseset: %v", err)
	}

	if _, err := qf.StartPrompt(context.Background(), "p1", 10, "prompt text", nil, nil); err != nil {
		t.Fatalf("StartPrompt should ignore finalized phrasesets: %v", err)
	}
}
