package memstore

import (
	"context"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateCluster(_ context.Context, tx store.Tx, c *models.Cluster) error {
	defer s.lockIfNeeded(tx)()
	s.clusters[c.ID] = *c
	return nil
}

func (s *Store) GetCluster(_ context.Context, tx store.Tx, id string) (*models.Cluster, error) {
	defer s.lockIfNeeded(tx)()
	c, ok := s.clusters[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "cluster %s not found", id)
	}
	return &c, nil
}

func (s *Store) UpdateCluster(_ context.Context, tx store.Tx, c *models.Cluster) error {
	defer s.lockIfNeeded(tx)()
	s.clusters[c.ID] = *c
	return nil
}

func (s *Store) ListClustersByPrompt(_ context.Context, tx store.Tx, promptID string) ([]models.Cluster, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Cluster
	for _, c := range s.clusters {
		if c.PromptID == promptID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateAnswer(_ context.Context, tx store.Tx, a *models.TLAnswer) error {
	defer s.lockIfNeeded(tx)()
	s.answers[a.ID] = *a
	return nil
}

func (s *Store) GetAnswer(_ context.Context, tx store.Tx, id string) (*models.TLAnswer, error) {
	defer s.lockIfNeeded(tx)()
	a, ok := s.answers[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "answer %s not found", id)
	}
	return &a, nil
}

func (s *Store) ListActiveAnswersByPrompt(_ context.Context, tx store.Tx, promptID string) ([]models.TLAnswer, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.TLAnswer
	for _, a := range s.answers {
		if a.PromptID == promptID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) UpdateAnswer(_ context.Context, tx store.Tx, a *models.TLAnswer) error {
	defer s.lockIfNeeded(tx)()
	s.answers[a.ID] = *a
	return nil
}

func (s *Store) CountActiveAnswers(_ context.Context, tx store.Tx, promptID string) (int, error) {
	defer s.lockIfNeeded(tx)()
	count := 0
	for _, a := range s.answers {
		if a.PromptID == promptID && a.Active {
			count++
		}
	}
	return count, nil
}
