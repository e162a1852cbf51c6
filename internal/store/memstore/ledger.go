package memstore

import (
	"context"

	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) AppendTransaction(_ context.Context, tx store.Tx, t *models.Transaction) error {
	defer s.lockIfNeeded(tx)()
	s.transactions = append(s.transactions, *t)
	return nil
}

func (s *Store) SumTransactions(_ context.Context, tx store.Tx, playerID string, game models.GameType, account models.AccountKind) (int64, error) {
	defer s.lockIfNeeded(tx)()
	var sum int64
	for _, t := range s.transactions {
		if t.PlayerID == playerID && t.Game == game && t.Account == account {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) ListTransactions(_ context.Context, tx store.Tx, playerID string) ([]models.Transaction, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.PlayerID == playerID {
			out = append(out, t)
		}
	}
	return out, nil
}
