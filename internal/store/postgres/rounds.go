package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateRound(ctx context.Context, t store.Tx, r *models.Round) error {
	snapshotIDs, err := json.Marshal(r.SnapshotAnswerIDs)
	if err != nil {
		return err
	}
	matched, err := json.Marshal(r.MatchedClusters)
	if err != nil {
		return err
	}
	embeddings, err := json.Marshal(r.GuessEmbeddings)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO rounds (id, player_id, game, round_type, status, cost, created_at, expires_at, submitted_at,
			prompt_text, submitted_phrase, copy_phrase, chosen_entry_id, source_prompt_round_id, source_set_id,
			party_session_id, party_participant_id, snapshot_answer_ids, matched_clusters, strikes,
			final_coverage, gross_payout, guess_embeddings, abandoned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		r.ID, r.PlayerID, string(r.Game), string(r.RoundType), string(r.Status), r.Cost, r.CreatedAt, r.ExpiresAt, r.SubmittedAt,
		r.PromptText, r.SubmittedPhrase, r.CopyPhrase, r.ChosenEntryID, r.SourcePromptRoundID, r.SourceSetID,
		r.PartySessionID, r.PartyParticipantID, snapshotIDs, matched, r.Strikes,
		r.FinalCoverage, r.GrossPayout, embeddings, r.AbandonedAt)
	return err
}

func (s *Store) GetRound(ctx context.Context, t store.Tx, id string) (*models.Round, error) {
	row := s.q(t).QueryRow(ctx, roundSelect+` WHERE id = $1`, id)
	return scanRound(row)
}

func (s *Store) GetActiveRound(ctx context.Context, t store.Tx, playerID string, game models.GameType) (*models.Round, error) {
	row := s.q(t).QueryRow(ctx, roundSelect+` WHERE player_id = $1 AND game = $2 AND status = 'active'`, playerID, string(game))
	r, err := scanRound(row)
	if err != nil {
		if coordinator.Is(err, coordinator.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateRound(ctx context.Context, t store.Tx, r *models.Round) error {
	snapshotIDs, err := json.Marshal(r.SnapshotAnswerIDs)
	if err != nil {
		return err
	}
	matched, err := json.Marshal(r.MatchedClusters)
	if err != nil {
		return err
	}
	embeddings, err := json.Marshal(r.GuessEmbeddings)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		UPDATE rounds SET status = $2, submitted_at = $3, submitted_phrase = $4, copy_phrase = $5,
			chosen_entry_id = $6, snapshot_answer_ids = $7, matched_clusters = $8, strikes = $9,
			final_coverage = $10, gross_payout = $11, guess_embeddings = $12, abandoned_at = $13
		WHERE id = $1`,
		r.ID, string(r.Status), r.SubmittedAt, r.SubmittedPhrase, r.CopyPhrase,
		r.ChosenEntryID, snapshotIDs, matched, r.Strikes, r.FinalCoverage, r.GrossPayout, embeddings, r.AbandonedAt)
	return err
}

func (s *Store) ListExpiredActive(ctx context.Context, t store.Tx, game models.GameType, cutoff time.Time) ([]models.Round, error) {
	rows, err := s.q(t).Query(ctx, roundSelect+` WHERE game = $1 AND status = 'active' AND expires_at < $2`, string(game), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRounds(rows)
}

func (s *Store) ListRoundsByPartySession(ctx context.Context, t store.Tx, sessionID string, roundType models.RoundType) ([]models.Round, error) {
	rows, err := s.q(t).Query(ctx, roundSelect+` WHERE party_session_id = $1 AND round_type = $2`, sessionID, string(roundType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRounds(rows)
}

func (s *Store) ListRoundsByPlayerAndParty(ctx context.Context, t store.Tx, sessionID, playerID string) ([]models.Round, error) {
	rows, err := s.q(t).Query(ctx, roundSelect+` WHERE party_session_id = $1 AND player_id = $2`, sessionID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRounds(rows)
}

func (s *Store) GetAbandonCooldown(ctx context.Context, t store.Tx, playerID, promptRoundID string) (*time.Time, error) {
	var abandonedAt *time.Time
	err := s.q(t).QueryRow(ctx, `
		SELECT abandoned_at FROM rounds
		WHERE player_id = $1 AND source_prompt_round_id = $2 AND abandoned_at IS NOT NULL
		ORDER BY abandoned_at DESC LIMIT 1`, playerID, promptRoundID).Scan(&abandonedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return abandonedAt, nil
}

const roundSelect = `
	SELECT id, player_id, game, round_type, status, cost, created_at, expires_at, submitted_at,
		prompt_text, submitted_phrase, copy_phrase, chosen_entry_id, source_prompt_round_id, source_set_id,
		party_session_id, party_participant_id, snapshot_answer_ids, matched_clusters, strikes,
		final_coverage, gross_payout, guess_embeddings, abandoned_at
	FROM rounds`

func scanRound(row interface {
	Scan(dest ...any) error
}) (*models.Round, error) {
	var r models.Round
	var game, roundType, status string
	var snapshotIDs, matched, embeddings []byte
	err := row.Scan(&r.ID, &r.PlayerID, &game, &roundType, &status, &r.Cost, &r.CreatedAt, &r.ExpiresAt, &r.SubmittedAt,
		&r.PromptText, &r.SubmittedPhrase, &r.CopyPhrase, &r.ChosenEntryID, &r.SourcePromptRoundID, &r.SourceSetID,
		&r.PartySessionID, &r.PartyParticipantID, &snapshotIDs, &matched, &r.Strikes,
		&r.FinalCoverage, &r.GrossPayout, &embeddings, &r.AbandonedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "round not found")
		}
		return nil, err
	}
	r.Game = models.GameType(game)
	r.RoundType = models.RoundType(roundType)
	r.Status = models.RoundStatus(status)
	if err := json.Unmarshal(snapshotIDs, &r.SnapshotAnswerIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matched, &r.MatchedClusters); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(embeddings, &r.GuessEmbeddings); err != nil {
		return nil, err
	}
	return &r, nil
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRounds(rows rowsScanner) ([]models.Round, error) {
	var out []models.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
