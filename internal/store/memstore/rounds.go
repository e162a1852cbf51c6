package memstore

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateRound(_ context.Context, tx store.Tx, r *models.Round) error {
	defer s.lockIfNeeded(tx)()
	s.rounds[r.ID] = *r
	return nil
}

func (s *Store) GetRound(_ context.Context, tx store.Tx, id string) (*models.Round, error) {
	defer s.lockIfNeeded(tx)()
	r, ok := s.rounds[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "round %s not found", id)
	}
	return &r, nil
}

func (s *Store) GetActiveRound(_ context.Context, tx store.Tx, playerID string, game models.GameType) (*models.Round, error) {
	defer s.lockIfNeeded(tx)()
	for _, r := range s.rounds {
		if r.PlayerID == playerID && r.Game == game && r.Status == models.RoundActive {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateRound(_ context.Context, tx store.Tx, r *models.Round) error {
	defer s.lockIfNeeded(tx)()
	s.rounds[r.ID] = *r
	return nil
}

func (s *Store) ListExpiredActive(_ context.Context, tx store.Tx, game models.GameType, cutoff time.Time) ([]models.Round, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Round
	for _, r := range s.rounds {
		if r.Game == game && r.Status == models.RoundActive && r.ExpiresAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListRoundsByPartySession(_ context.Context, tx store.Tx, sessionID string, roundType models.RoundType) ([]models.Round, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Round
	for _, r := range s.rounds {
		if r.PartySessionID != nil && *r.PartySessionID == sessionID && r.RoundType == roundType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListRoundsByPlayerAndParty(_ context.Context, tx store.Tx, sessionID, playerID string) ([]models.Round, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Round
	for _, r := range s.rounds {
		if r.PartySessionID != nil && *r.PartySessionID == sessionID && r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetAbandonCooldown(_ context.Context, tx store.Tx, playerID, promptRoundID string) (*time.Time, error) {
	defer s.lockIfNeeded(tx)()
	var latest *time.Time
	for _, r := range s.rounds {
		if r.PlayerID == playerID && r.SourcePromptRoundID != nil && *r.SourcePromptRoundID == promptRoundID &&
			r.Status == models.RoundAbandoned && r.AbandonedAt != nil {
			if latest == nil || r.AbandonedAt.After(*latest) {
				t := *r.AbandonedAt
				latest = &t
			}
		}
	}
	return latest, nil
}
