package postgres

import (
	"context"

	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) AppendTransaction(ctx context.Context, t store.Tx, tr *models.Transaction) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO transactions (id, player_id, game, account, amount, balance_after, kind, round_id, set_id, phraseset_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tr.ID, tr.PlayerID, string(tr.Game), string(tr.Account), tr.Amount, tr.BalanceAfter, string(tr.Kind),
		tr.RoundID, tr.SetID, tr.PhrasesetID, tr.CreatedAt)
	return err
}

func (s *Store) SumTransactions(ctx context.Context, t store.Tx, playerID string, game models.GameType, account models.AccountKind) (int64, error) {
	var sum *int64
	err := s.q(t).QueryRow(ctx, `
		SELECT SUM(amount) FROM transactions WHERE player_id = $1 AND game = $2 AND account = $3`,
		playerID, string(game), string(account)).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (s *Store) ListTransactions(ctx context.Context, t store.Tx, playerID string) ([]models.Transaction, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, player_id, game, account, amount, balance_after, kind, round_id, set_id, phraseset_id, created_at
		FROM transactions WHERE player_id = $1 ORDER BY created_at ASC`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		var tr models.Transaction
		var game, account, kind string
		if err := rows.Scan(&tr.ID, &tr.PlayerID, &game, &account, &tr.Amount, &tr.BalanceAfter, &kind,
			&tr.RoundID, &tr.SetID, &tr.PhrasesetID, &tr.CreatedAt); err != nil {
			return nil, err
		}
		tr.Game = models.GameType(game)
		tr.Account = models.AccountKind(account)
		tr.Kind = models.TransactionKind(kind)
		out = append(out, tr)
	}
	return out, rows.Err()
}
