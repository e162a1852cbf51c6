package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

const backronymSetSelect = `
	SELECT id, word, mode, status, entries, votes, prize_pool, created_at,
		transitions_to_voting_at, voting_finalized_at, finalized_at
	FROM backronym_sets`

func (s *Store) CreateBackronymSet(ctx context.Context, t store.Tx, set *models.BackronymSet) error {
	entries, votes, err := marshalEntriesVotes(set)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO backronym_sets (id, word, mode, status, entries, votes, prize_pool, created_at,
			transitions_to_voting_at, voting_finalized_at, finalized_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		set.ID, set.Word, string(set.Mode), string(set.Status), entries, votes, set.PrizePool, set.CreatedAt,
		set.TransitionsToVotingAt, set.VotingFinalizedAt, set.FinalizedAt)
	return err
}

func (s *Store) GetBackronymSet(ctx context.Context, t store.Tx, id string) (*models.BackronymSet, error) {
	row := s.q(t).QueryRow(ctx, backronymSetSelect+` WHERE id = $1`, id)
	return scanBackronymSet(row)
}

func (s *Store) UpdateBackronymSet(ctx context.Context, t store.Tx, set *models.BackronymSet) error {
	entries, votes, err := marshalEntriesVotes(set)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		UPDATE backronym_sets SET status = $2, entries = $3, votes = $4, prize_pool = $5,
			transitions_to_voting_at = $6, voting_finalized_at = $7, finalized_at = $8
		WHERE id = $1`,
		set.ID, string(set.Status), entries, votes, set.PrizePool,
		set.TransitionsToVotingAt, set.VotingFinalizedAt, set.FinalizedAt)
	return err
}

func (s *Store) ListBackronymSetsByStatus(ctx context.Context, t store.Tx, status models.SetStatus) ([]models.BackronymSet, error) {
	rows, err := s.q(t).Query(ctx, backronymSetSelect+` WHERE status = $1`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBackronymSets(rows)
}

func (s *Store) ListMostRecentOpenNotEntered(ctx context.Context, t store.Tx, playerID string) ([]models.BackronymSet, error) {
	rows, err := s.q(t).Query(ctx, backronymSetSelect+`
		WHERE status = 'open' AND NOT EXISTS (
			SELECT 1 FROM jsonb_array_elements(entries) e WHERE e->>'playerId' = $1
		)
		ORDER BY created_at DESC`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBackronymSets(rows)
}

func (s *Store) WordUsedWithin(ctx context.Context, t store.Tx, word string, after time.Time) (bool, error) {
	var exists bool
	err := s.q(t).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM backronym_sets WHERE word = $1 AND created_at > $2)`,
		word, after).Scan(&exists)
	return exists, err
}

func marshalEntriesVotes(set *models.BackronymSet) ([]byte, []byte, error) {
	entries, err := json.Marshal(set.Entries)
	if err != nil {
		return nil, nil, err
	}
	votes, err := json.Marshal(set.Votes)
	if err != nil {
		return nil, nil, err
	}
	return entries, votes, nil
}

func scanBackronymSet(row interface {
	Scan(dest ...any) error
}) (*models.BackronymSet, error) {
	var set models.BackronymSet
	var mode, status string
	var entries, votes []byte
	err := row.Scan(&set.ID, &set.Word, &mode, &status, &entries, &votes, &set.PrizePool, &set.CreatedAt,
		&set.TransitionsToVotingAt, &set.VotingFinalizedAt, &set.FinalizedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "backronym set not found")
		}
		return nil, err
	}
	set.Mode = models.BackronymMode(mode)
	set.Status = models.SetStatus(status)
	if err := json.Unmarshal(entries, &set.Entries); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(votes, &set.Votes); err != nil {
		return nil, err
	}
	return &set, nil
}

func scanBackronymSets(rows rowsScanner) ([]models.BackronymSet, error) {
	var out []models.BackronymSet
	for rows.Next() {
		set, err := scanBackronymSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *set)
	}
	return out, rows.Err()
}
