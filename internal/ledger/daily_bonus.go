package ledger

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/pkg/models"
)

// ClaimDailyBonus credits playerID's game wallet once per calendar day,
// gated by PlayerGameData.LastDailyBonusAt the same way the original
// per-user "already claimed today" check worked. Returns the amount
// credited, or 0 with no error if today's bonus was already claimed —
// callers can treat 0 as "nothing to do" rather than a failure.
func (s *Service) ClaimDailyBonus(ctx context.Context, playerID string, game models.GameType, cfg config.Economy) (int64, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	if data.LastDailyBonusAt != nil && sameDay(*data.LastDailyBonusAt, now) {
		return 0, nil
	}

	amount := bonusAmountFor(game, cfg)
	if amount > 0 {
		data.Wallet += amount
	}
	data.LastDailyBonusAt = &now
	if err := s.store.UpdatePlayerGameData(ctx, tx, data); err != nil {
		return 0, err
	}
	if amount > 0 {
		if err := s.append(ctx, tx, playerID, game, models.AccountWallet, amount, data.Wallet, models.TxKindDailyBonus, nil, nil, nil); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return amount, nil
}

func bonusAmountFor(game models.GameType, cfg config.Economy) int64 {
	switch game {
	case models.GameIR:
		return cfg.IRDailyBonusAmount
	case models.GameTL:
		return cfg.TLDailyBonusAmount
	default:
		return cfg.DailyBonusAmount
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
