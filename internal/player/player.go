// Package player covers identity lifecycle: guest auto-creation,
// registration, lookup, and soft-anonymization (spec.md §3 "Player").
// Grounded on the teacher's own account-minting shape in
// internal/ai.Orchestrator.createAIAccount — collision-checked canonical
// name, one PlayerGameData row seeded per game at that game's starting
// balance.
package player

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var allGames = []models.GameType{models.GameQF, models.GameIR, models.GameTL}

type Service struct {
	store store.Store
	clock coordinator.Clock
	cfg   config.Config
}

func New(st store.Store, clock coordinator.Clock, cfg config.Config) *Service {
	return &Service{store: st, clock: clock, cfg: cfg}
}

func startingWallet(cfg config.Config, game models.GameType) int64 {
	switch game {
	case models.GameIR:
		return cfg.Economy.IRInitialBalance
	case models.GameTL:
		return cfg.Economy.TLStartingBalance
	default:
		return cfg.Economy.QFStartingWallet
	}
}

// CreateGuest mints a new guest account with no email, seeded with a
// starting wallet in every game so the player can immediately enter any
// of them.
func (s *Service) CreateGuest(ctx context.Context, displayName string) (*models.Player, error) {
	return s.create(ctx, displayName, nil, true)
}

// Register mints a non-guest account bound to email. A canonical name
// that is already taken is rejected with KindInvalidPhrase by the
// UsernameExists check in create; only a concurrent registration that
// slips past that check surfaces the store's own CreatePlayer error.
func (s *Service) Register(ctx context.Context, displayName, email string) (*models.Player, error) {
	return s.create(ctx, displayName, &email, false)
}

func (s *Service) create(ctx context.Context, displayName string, email *string, isGuest bool) (*models.Player, error) {
	canonical := strings.ToLower(strings.TrimSpace(displayName))
	if canonical == "" {
		return nil, coordinator.New(coordinator.KindInvalidPhrase, "display name required")
	}
	exists, err := s.store.UsernameExists(ctx, nil, canonical)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, coordinator.New(coordinator.KindInvalidPhrase, "display name already taken")
	}

	p := &models.Player{
		ID: uuid.NewString(), DisplayName: displayName, CanonicalName: canonical,
		Email: email, IsGuest: isGuest, CreatedAt: s.clock.Now(),
	}
	// First game seeds the player row itself; the rest get their own
	// PlayerGameData rows via UpdatePlayerGameData's upsert path.
	data := &models.PlayerGameData{PlayerID: p.ID, Game: allGames[0], Wallet: startingWallet(s.cfg, allGames[0])}
	if err := s.store.CreatePlayer(ctx, nil, p, data); err != nil {
		return nil, err
	}
	for _, game := range allGames[1:] {
		gd := &models.PlayerGameData{PlayerID: p.ID, Game: game, Wallet: startingWallet(s.cfg, game)}
		if err := s.store.UpdatePlayerGameData(ctx, nil, gd); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Player, error) {
	return s.store.GetPlayer(ctx, nil, id)
}

func (s *Service) GetGameData(ctx context.Context, id string, game models.GameType) (*models.PlayerGameData, error) {
	return s.store.GetPlayerGameData(ctx, nil, id, game)
}

// Anonymize soft-retires an inactive account: the player row is kept
// (rounds/transactions it authored remain intact) but stripped of
// identifying fields at the store layer.
func (s *Service) Anonymize(ctx context.Context, id string) error {
	return s.store.AnonymizePlayer(ctx, nil, id, s.clock.Now())
}

// SweepInactiveGuests retires guest accounts untouched since olderThan.
// Intended to be called from a daily cron job (C10), not the per-tick
// sweep loop.
func (s *Service) SweepInactiveGuests(ctx context.Context, olderThan time.Time) (int, error) {
	guests, err := s.store.ListInactiveGuests(ctx, nil, olderThan)
	if err != nil {
		return 0, err
	}
	for _, g := range guests {
		if err := s.Anonymize(ctx, g.ID); err != nil {
			return 0, err
		}
	}
	return len(guests), nil
}
