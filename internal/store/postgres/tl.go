package postgres

import (
	"context"
	"encoding/json"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateCluster(ctx context.Context, t store.Tx, c *models.Cluster) error {
	centroid, err := json.Marshal(c.Centroid)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO clusters (id, prompt_id, centroid, size, example_member)
		VALUES ($1, $2, $3, $4, $5)`, c.ID, c.PromptID, centroid, c.Size, c.ExampleMember)
	return err
}

func (s *Store) GetCluster(ctx context.Context, t store.Tx, id string) (*models.Cluster, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, prompt_id, centroid, size, example_member FROM clusters WHERE id = $1`, id)
	return scanCluster(row)
}

func (s *Store) UpdateCluster(ctx context.Context, t store.Tx, c *models.Cluster) error {
	centroid, err := json.Marshal(c.Centroid)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		UPDATE clusters SET centroid = $2, size = $3, example_member = $4 WHERE id = $1`,
		c.ID, centroid, c.Size, c.ExampleMember)
	return err
}

func (s *Store) ListClustersByPrompt(ctx context.Context, t store.Tx, promptID string) ([]models.Cluster, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, prompt_id, centroid, size, example_member FROM clusters WHERE prompt_id = $1`, promptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCluster(row interface {
	Scan(dest ...any) error
}) (*models.Cluster, error) {
	var c models.Cluster
	var centroid []byte
	if err := row.Scan(&c.ID, &c.PromptID, &centroid, &c.Size, &c.ExampleMember); err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "cluster not found")
		}
		return nil, err
	}
	if err := json.Unmarshal(centroid, &c.Centroid); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateAnswer(ctx context.Context, t store.Tx, a *models.TLAnswer) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO tl_answers (id, prompt_id, cluster_id, text, weight, shows, contributed_matches, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.PromptID, a.ClusterID, a.Text, a.Weight, a.Shows, a.ContributedMatches, a.Active)
	return err
}

func (s *Store) GetAnswer(ctx context.Context, t store.Tx, id string) (*models.TLAnswer, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, prompt_id, cluster_id, text, weight, shows, contributed_matches, active
		FROM tl_answers WHERE id = $1`, id)
	return scanAnswer(row)
}

func (s *Store) ListActiveAnswersByPrompt(ctx context.Context, t store.Tx, promptID string) ([]models.TLAnswer, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, prompt_id, cluster_id, text, weight, shows, contributed_matches, active
		FROM tl_answers WHERE prompt_id = $1 AND active`, promptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TLAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAnswer(ctx context.Context, t store.Tx, a *models.TLAnswer) error {
	_, err := s.q(t).Exec(ctx, `
		UPDATE tl_answers SET weight = $2, shows = $3, contributed_matches = $4, active = $5 WHERE id = $1`,
		a.ID, a.Weight, a.Shows, a.ContributedMatches, a.Active)
	return err
}

func (s *Store) CountActiveAnswers(ctx context.Context, t store.Tx, promptID string) (int, error) {
	var count int
	err := s.q(t).QueryRow(ctx, `
		SELECT COUNT(*) FROM tl_answers WHERE prompt_id = $1 AND active`, promptID).Scan(&count)
	return count, err
}

func scanAnswer(row interface {
	Scan(dest ...any) error
}) (*models.TLAnswer, error) {
	var a models.TLAnswer
	if err := row.Scan(&a.ID, &a.PromptID, &a.ClusterID, &a.Text, &a.Weight, &a.Shows, &a.ContributedMatches, &a.Active); err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "answer not found")
		}
		return nil, err
	}
	return &a, nil
}
