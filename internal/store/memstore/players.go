package memstore

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func gameDataKey(playerID string, game models.GameType) string {
	return playerID + "|" + string(game)
}

func (s *Store) CreatePlayer(_ context.Context, tx store.Tx, p *models.Player, data *models.PlayerGameData) error {
	defer s.lockIfNeeded(tx)()
	if _, exists := s.canonicalIndex[p.CanonicalName]; exists {
		return coordinator.New(coordinator.KindNotFound, "canonical name already registered")
	}
	s.players[p.ID] = *p
	s.canonicalIndex[p.CanonicalName] = p.ID
	s.playerGameData[gameDataKey(p.ID, data.Game)] = *data
	return nil
}

func (s *Store) GetPlayer(_ context.Context, tx store.Tx, id string) (*models.Player, error) {
	defer s.lockIfNeeded(tx)()
	p, ok := s.players[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "player %s not found", id)
	}
	return &p, nil
}

func (s *Store) GetPlayerByCanonicalName(_ context.Context, tx store.Tx, canonicalName string) (*models.Player, error) {
	defer s.lockIfNeeded(tx)()
	id, ok := s.canonicalIndex[canonicalName]
	if !ok {
		return nil, coordinator.New(coordinator.KindNotFound, "player not found")
	}
	p := s.players[id]
	return &p, nil
}

func (s *Store) GetPlayerGameData(_ context.Context, tx store.Tx, playerID string, game models.GameType) (*models.PlayerGameData, error) {
	defer s.lockIfNeeded(tx)()
	d, ok := s.playerGameData[gameDataKey(playerID, game)]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "game data for %s/%s not found", playerID, game)
	}
	return &d, nil
}

func (s *Store) UpdatePlayerGameData(_ context.Context, tx store.Tx, data *models.PlayerGameData) error {
	defer s.lockIfNeeded(tx)()
	s.playerGameData[gameDataKey(data.PlayerID, data.Game)] = *data
	return nil
}

func (s *Store) AnonymizePlayer(_ context.Context, tx store.Tx, id string, at time.Time) error {
	defer s.lockIfNeeded(tx)()
	p, ok := s.players[id]
	if !ok {
		return coordinator.Newf(coordinator.KindNotFound, "player %s not found", id)
	}
	delete(s.canonicalIndex, p.CanonicalName)
	p.DisplayName = "deleted-user"
	p.CanonicalName = "deleted-" + p.ID
	p.Email = nil
	p.AnonymizedAt = &at
	s.players[id] = p
	return nil
}

func (s *Store) ListInactiveGuests(_ context.Context, tx store.Tx, olderThan time.Time) ([]models.Player, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Player
	for _, p := range s.players {
		if p.IsGuest && p.AnonymizedAt == nil && p.CreatedAt.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListAIPool(_ context.Context, tx store.Tx, role models.AIRole) ([]models.Player, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Player
	for _, p := range s.players {
		if p.IsAI && p.AIRole == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UsernameExists(_ context.Context, tx store.Tx, canonicalName string) (bool, error) {
	defer s.lockIfNeeded(tx)()
	_, ok := s.canonicalIndex[canonicalName]
	return ok, nil
}
