package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateBackronymSet(_ context.Context, tx store.Tx, set *models.BackronymSet) error {
	defer s.lockIfNeeded(tx)()
	s.backronymSets[set.ID] = *set
	return nil
}

func (s *Store) GetBackronymSet(_ context.Context, tx store.Tx, id string) (*models.BackronymSet, error) {
	defer s.lockIfNeeded(tx)()
	set, ok := s.backronymSets[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "backronym set %s not found", id)
	}
	return &set, nil
}

func (s *Store) UpdateBackronymSet(_ context.Context, tx store.Tx, set *models.BackronymSet) error {
	defer s.lockIfNeeded(tx)()
	s.backronymSets[set.ID] = *set
	return nil
}

func (s *Store) ListBackronymSetsByStatus(_ context.Context, tx store.Tx, status models.SetStatus) ([]models.BackronymSet, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.BackronymSet
	for _, set := range s.backronymSets {
		if set.Status == status {
			out = append(out, set)
		}
	}
	return out, nil
}

func (s *Store) ListMostRecentOpenNotEntered(_ context.Context, tx store.Tx, playerID string) ([]models.BackronymSet, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.BackronymSet
	for _, set := range s.backronymSets {
		if set.Status != models.SetOpen {
			continue
		}
		entered := false
		for _, e := range set.Entries {
			if e.PlayerID == playerID {
				entered = true
				break
			}
		}
		if !entered && len(set.Entries) < 5 {
			out = append(out, set)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) WordUsedWithin(_ context.Context, tx store.Tx, word string, after time.Time) (bool, error) {
	defer s.lockIfNeeded(tx)()
	for _, set := range s.backronymSets {
		if set.Word == word && set.CreatedAt.After(after) {
			return true, nil
		}
	}
	return false, nil
}
