package models

import "time"

// TransactionKind tags the reason for a ledger entry. Kept as a string
// enum (not an int bitmask, unlike the teacher's HeuristicFlags) because
// the coordinator's transaction kinds are read by operators and tests far
// more often than they are bit-tested.
type TransactionKind string

const (
	TxKindRoundDebit     TransactionKind = "round_debit"
	TxKindRoundRefund    TransactionKind = "round_refund"
	TxKindVoteCost       TransactionKind = "vote_cost"
	TxKindPayout         TransactionKind = "payout"
	TxKindVaultRake      TransactionKind = "vault_rake"
	TxKindDailyBonus     TransactionKind = "daily_bonus"
	TxKindStartingWallet TransactionKind = "starting_wallet"
)

// AccountKind distinguishes which balance a Transaction affects.
type AccountKind string

const (
	AccountWallet AccountKind = "wallet"
	AccountVault  AccountKind = "vault"
)

// Transaction is one atomic ledger entry. balance_after forms a gap-free
// monotonic sequence per (player, account) — spec.md §5 ordering guarantee.
type Transaction struct {
	ID            string          `json:"id"`
	PlayerID      string          `json:"playerId"`
	Game          GameType        `json:"game"`
	Account       AccountKind     `json:"account"`
	Amount        int64           `json:"amount"` // signed
	BalanceAfter  int64           `json:"balanceAfter"`
	Kind          TransactionKind `json:"kind"`
	RoundID       *string         `json:"roundId,omitempty"`
	SetID         *string         `json:"setId,omitempty"`
	PhrasesetID   *string         `json:"phrasesetId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// PhraseCacheEntry (C3) is the per-prompt store of pre-validated
// candidate phrases. At most one cache exists per prompt-round key.
type PhraseCacheEntry struct {
	ID               string    `json:"id"`
	PromptKey        string    `json:"promptKey"` // prompt-round ID or normalized prompt text
	Phrases          []string  `json:"phrases"`
	UsageIndex       int       `json:"usageIndex"` // round-robin cursor for least-used order
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	CreatedAt        time.Time `json:"createdAt"`
	UsedForHint      bool      `json:"usedForHint"`
	UsedForBackupCopy bool     `json:"usedForBackupCopy"`
}
