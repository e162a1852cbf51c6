package postgres

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreatePlayer(ctx context.Context, t store.Tx, p *models.Player, data *models.PlayerGameData) error {
	q := s.q(t)
	_, err := q.Exec(ctx, `
		INSERT INTO players (id, display_name, canonical_name, email, is_guest, is_ai, ai_role, created_at, anonymized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.DisplayName, p.CanonicalName, p.Email, p.IsGuest, p.IsAI, string(p.AIRole), p.CreatedAt, p.AnonymizedAt)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO player_game_data (player_id, game, wallet, vault, tutorial_progress, consecutive_incorrect_vote, vote_lockout_until, last_daily_bonus_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		data.PlayerID, string(data.Game), data.Wallet, data.Vault, data.TutorialProgress,
		data.ConsecutiveIncorrectVote, data.VoteLockoutUntil, data.LastDailyBonusAt)
	return err
}

func (s *Store) GetPlayer(ctx context.Context, t store.Tx, id string) (*models.Player, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, display_name, canonical_name, email, is_guest, is_ai, ai_role, created_at, anonymized_at
		FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (s *Store) GetPlayerByCanonicalName(ctx context.Context, t store.Tx, canonicalName string) (*models.Player, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, display_name, canonical_name, email, is_guest, is_ai, ai_role, created_at, anonymized_at
		FROM players WHERE canonical_name = $1`, canonicalName)
	return scanPlayer(row)
}

func scanPlayer(row interface {
	Scan(dest ...any) error
}) (*models.Player, error) {
	var p models.Player
	var aiRole string
	if err := row.Scan(&p.ID, &p.DisplayName, &p.CanonicalName, &p.Email, &p.IsGuest, &p.IsAI, &aiRole, &p.CreatedAt, &p.AnonymizedAt); err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "player not found")
		}
		return nil, err
	}
	p.AIRole = models.AIRole(aiRole)
	return &p, nil
}

func (s *Store) GetPlayerGameData(ctx context.Context, t store.Tx, playerID string, game models.GameType) (*models.PlayerGameData, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT player_id, game, wallet, vault, tutorial_progress, consecutive_incorrect_vote, vote_lockout_until, last_daily_bonus_at
		FROM player_game_data WHERE player_id = $1 AND game = $2`, playerID, string(game))
	var d models.PlayerGameData
	var g string
	if err := row.Scan(&d.PlayerID, &g, &d.Wallet, &d.Vault, &d.TutorialProgress, &d.ConsecutiveIncorrectVote, &d.VoteLockoutUntil, &d.LastDailyBonusAt); err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "game data not found")
		}
		return nil, err
	}
	d.Game = models.GameType(g)
	return &d, nil
}

func (s *Store) UpdatePlayerGameData(ctx context.Context, t store.Tx, data *models.PlayerGameData) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO player_game_data (player_id, game, wallet, vault, tutorial_progress, consecutive_incorrect_vote, vote_lockout_until, last_daily_bonus_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (player_id, game) DO UPDATE SET wallet = EXCLUDED.wallet, vault = EXCLUDED.vault,
			tutorial_progress = EXCLUDED.tutorial_progress, consecutive_incorrect_vote = EXCLUDED.consecutive_incorrect_vote,
			vote_lockout_until = EXCLUDED.vote_lockout_until, last_daily_bonus_at = EXCLUDED.last_daily_bonus_at`,
		data.PlayerID, string(data.Game), data.Wallet, data.Vault, data.TutorialProgress,
		data.ConsecutiveIncorrectVote, data.VoteLockoutUntil, data.LastDailyBonusAt)
	return err
}

func (s *Store) AnonymizePlayer(ctx context.Context, t store.Tx, id string, at time.Time) error {
	_, err := s.q(t).Exec(ctx, `
		UPDATE players SET display_name = 'Deleted Player', canonical_name = id, email = NULL, anonymized_at = $2
		WHERE id = $1`, id, at)
	return err
}

func (s *Store) ListInactiveGuests(ctx context.Context, t store.Tx, olderThan time.Time) ([]models.Player, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, display_name, canonical_name, email, is_guest, is_ai, ai_role, created_at, anonymized_at
		FROM players WHERE is_guest AND anonymized_at IS NULL AND created_at < $1`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) ListAIPool(ctx context.Context, t store.Tx, role models.AIRole) ([]models.Player, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, display_name, canonical_name, email, is_guest, is_ai, ai_role, created_at, anonymized_at
		FROM players WHERE is_ai AND ai_role = $1`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UsernameExists(ctx context.Context, t store.Tx, canonicalName string) (bool, error) {
	var exists bool
	err := s.q(t).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM players WHERE canonical_name = $1)`, canonicalName).Scan(&exists)
	return exists, err
}
