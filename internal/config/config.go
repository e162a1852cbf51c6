// Package config loads the coordinator's tunables the same way
// cmd/engine/main.go reads DATABASE_URL/BTC_RPC_*: required env vars for
// security-sensitive values (none here, since storage credentials are an
// external collaborator's concern per spec.md §1), getEnvOrDefault-style
// fallbacks for every tuning knob. Configuration loading itself is
// explicitly out of scope (spec.md §1), so this package stays a single
// flat Load() rather than growing a layered config library.
package config

import (
	"os"
	"strconv"
	"time"
)

// Economy holds starting balances and daily bonuses per game.
type Economy struct {
	QFStartingWallet  int64
	IRInitialBalance  int64
	TLStartingBalance int64
	DailyBonusAmount   int64
	IRDailyBonusAmount int64
	TLDailyBonusAmount int64
}

// Pricing holds per-round costs.
type Pricing struct {
	PromptCost       int64
	CopyCostNormal   int64
	CopyCostDiscount int64
	VoteCost         int64
	HintCost         int64
	IRBackronymEntryCost int64
	IRVoteCost       int64
	TLEntryCost      int64
}

// Payouts holds prize-pool and payout-shape tunables.
type Payouts struct {
	PrizePoolBase        int64
	IRVoteRewardCorrect  int64
	TLMaxPayout          int64
	TLPayoutExponent     float64
	TLVaultRakePercent   float64
	IRVaultRakePercent   float64
	QFVaultRakePercent   float64
}

// Timing holds round/phase durations.
type Timing struct {
	PromptRoundSeconds          int
	CopyRoundSeconds            int
	VoteRoundSeconds            int
	GracePeriodSeconds          int
	IRRapidEntryTimerMinutes    int
	IRRapidVotingTimerMinutes   int
	IRStandardVotingTimerMinutes int
	SweepIntervalSeconds        int
}

// VoteFinalization holds QF's three-threshold vote-closing policy.
type VoteFinalization struct {
	VoteMaxVotes            int
	VoteMinimumThreshold    int
	VoteMinimumWindowMinutes int
	VoteClosingThreshold    int
	VoteClosingWindowMinutes int
}

// AIOrchestration holds C8/C10 tunables.
type AIOrchestration struct {
	AIBackupDelayMinutes      int
	AIBackupBatchSize         int
	AIBackupSleepMinutes      int
	AIStaleThresholdDays      int
	AIStaleCheckIntervalHours int
	AITimeoutSeconds          int
	AIModel                   string
	AIMaxRetries              int
	AIRetryBaseMs             int
	AIRetryMaxMs              int
}

// Concurrency holds lock/retry tunables.
type Concurrency struct {
	RoundLockTimeoutSeconds int
	CopyRoundMaxAttempts    int
}

// TLMatching holds the TL embedding/clustering thresholds.
type TLMatching struct {
	MatchThreshold           float64
	ClusterJoinThreshold     float64
	ClusterDuplicateThreshold float64
	TopicThreshold           float64
	SelfSimilarityThreshold  float64
	ActiveCorpusCap          int
	EmbeddingModel           string
	EmbeddingProviderName    string
}

// AntiAbuse holds outstanding-round and lockout limits.
type AntiAbuse struct {
	MaxOutstandingQuips          int
	GuestMaxOutstandingQuips     int
	GuestVoteLockoutThreshold    int
	GuestVoteLockoutHours        int
	AbandonedPromptCooldownHours int
}

// ContentCache holds C3's per-prompt generation tunables.
type ContentCache struct {
	LockTimeoutSeconds     int
	MaxGenerationAttempts  int
	CorpusPath             string
}

// AbandonPenalty is the per-game coin penalty deducted from the refund
// when a round is abandoned (spec.md §9 open-question decision: the
// penalty is configurable per game, defaulting to 5).
type AbandonPenalty struct {
	QF int64
	IR int64
	TL int64
}

// Config is the coordinator's full tunable surface (spec.md §6).
type Config struct {
	Economy          Economy
	Pricing          Pricing
	Payouts          Payouts
	Timing           Timing
	VoteFinalization VoteFinalization
	AIOrchestration  AIOrchestration
	Concurrency      Concurrency
	TLMatching       TLMatching
	AntiAbuse        AntiAbuse
	AbandonPenalty   AbandonPenalty
	ContentCache     ContentCache

	AIProvider string // "openai" | "gemini" | "none"
}

// Load reads every tunable from the environment, falling back to the
// spec-documented defaults. No third-party config library is used; see
// SPEC_FULL.md's AMBIENT STACK note.
func Load() Config {
	return Config{
		Economy: Economy{
			QFStartingWallet:   envInt64("QF_STARTING_WALLET", 500),
			IRInitialBalance:   envInt64("IR_INITIAL_BALANCE", 500),
			TLStartingBalance:  envInt64("TL_STARTING_BALANCE", 500),
			DailyBonusAmount:   envInt64("DAILY_BONUS_AMOUNT", 50),
			IRDailyBonusAmount: envInt64("IR_DAILY_BONUS_AMOUNT", 50),
			TLDailyBonusAmount: envInt64("TL_DAILY_BONUS_AMOUNT", 50),
		},
		Pricing: Pricing{
			PromptCost:           envInt64("PROMPT_COST", 20),
			CopyCostNormal:       envInt64("COPY_COST_NORMAL", 15),
			CopyCostDiscount:     envInt64("COPY_COST_DISCOUNT", 10),
			VoteCost:             envInt64("VOTE_COST", 5),
			HintCost:             envInt64("HINT_COST", 10),
			IRBackronymEntryCost: envInt64("IR_BACKRONYM_ENTRY_COST", 100),
			IRVoteCost:           envInt64("IR_VOTE_COST", 10),
			TLEntryCost:          envInt64("TL_ENTRY_COST", 100),
		},
		Payouts: Payouts{
			PrizePoolBase:       envInt64("PRIZE_POOL_BASE", 0),
			IRVoteRewardCorrect: envInt64("IR_VOTE_REWARD_CORRECT", 20),
			TLMaxPayout:         envInt64("TL_MAX_PAYOUT", 300),
			TLPayoutExponent:    envFloat("TL_PAYOUT_EXPONENT", 1.5),
			TLVaultRakePercent:  envFloat("TL_VAULT_RAKE_PERCENT", 0.30),
			IRVaultRakePercent:  envFloat("IR_VAULT_RAKE_PERCENT", 0.30),
			QFVaultRakePercent:  envFloat("QF_VAULT_RAKE_PERCENT", 0.30),
		},
		Timing: Timing{
			PromptRoundSeconds:           envInt("PROMPT_ROUND_SECONDS", 180),
			CopyRoundSeconds:             envInt("COPY_ROUND_SECONDS", 180),
			VoteRoundSeconds:             envInt("VOTE_ROUND_SECONDS", 60),
			GracePeriodSeconds:           envInt("GRACE_PERIOD_SECONDS", 5),
			IRRapidEntryTimerMinutes:     envInt("IR_RAPID_ENTRY_TIMER_MINUTES", 2),
			IRRapidVotingTimerMinutes:    envInt("IR_RAPID_VOTING_TIMER_MINUTES", 2),
			IRStandardVotingTimerMinutes: envInt("IR_STANDARD_VOTING_TIMER_MINUTES", 10),
			SweepIntervalSeconds:        envInt("SWEEP_INTERVAL_SECONDS", 5),
		},
		VoteFinalization: VoteFinalization{
			VoteMaxVotes:             envInt("VOTE_MAX_VOTES", 20),
			VoteMinimumThreshold:     envInt("VOTE_MINIMUM_THRESHOLD", 3),
			VoteMinimumWindowMinutes: envInt("VOTE_MINIMUM_WINDOW_MINUTES", 30),
			VoteClosingThreshold:     envInt("VOTE_CLOSING_THRESHOLD", 10),
			VoteClosingWindowMinutes: envInt("VOTE_CLOSING_WINDOW_MINUTES", 5),
		},
		AIOrchestration: AIOrchestration{
			AIBackupDelayMinutes:      envInt("AI_BACKUP_DELAY_MINUTES", 5),
			AIBackupBatchSize:         envInt("AI_BACKUP_BATCH_SIZE", 10),
			AIBackupSleepMinutes:      envInt("AI_BACKUP_SLEEP_MINUTES", 1),
			AIStaleThresholdDays:      envInt("AI_STALE_THRESHOLD_DAYS", 30),
			AIStaleCheckIntervalHours: envInt("AI_STALE_CHECK_INTERVAL_HOURS", 24),
			AITimeoutSeconds:          envInt("AI_TIMEOUT_SECONDS", 30),
			AIModel:                   getEnvOrDefault("AI_MODEL", "gpt-4o-mini"),
			AIMaxRetries:              envInt("AI_MAX_RETRIES", 3),
			AIRetryBaseMs:             envInt("AI_RETRY_BASE_MS", 500),
			AIRetryMaxMs:              envInt("AI_RETRY_MAX_MS", 5000),
		},
		Concurrency: Concurrency{
			RoundLockTimeoutSeconds: envInt("ROUND_LOCK_TIMEOUT_SECONDS", 10),
			CopyRoundMaxAttempts:    envInt("COPY_ROUND_MAX_ATTEMPTS", 3),
		},
		TLMatching: TLMatching{
			MatchThreshold:            envFloat("TL_MATCH_THRESHOLD", 0.55),
			ClusterJoinThreshold:      envFloat("TL_CLUSTER_JOIN_THRESHOLD", 0.75),
			ClusterDuplicateThreshold: envFloat("TL_CLUSTER_DUPLICATE_THRESHOLD", 0.90),
			TopicThreshold:            envFloat("TL_TOPIC_THRESHOLD", 0.40),
			SelfSimilarityThreshold:   envFloat("TL_SELF_SIMILARITY_THRESHOLD", 0.80),
			ActiveCorpusCap:           envInt("TL_ACTIVE_CORPUS_CAP", 1000),
			EmbeddingModel:            getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingProviderName:     getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
		},
		AntiAbuse: AntiAbuse{
			MaxOutstandingQuips:          envInt("MAX_OUTSTANDING_QUIPS", 10),
			GuestMaxOutstandingQuips:     envInt("GUEST_MAX_OUTSTANDING_QUIPS", 3),
			GuestVoteLockoutThreshold:    envInt("GUEST_VOTE_LOCKOUT_THRESHOLD", 5),
			GuestVoteLockoutHours:        envInt("GUEST_VOTE_LOCKOUT_HOURS", 24),
			AbandonedPromptCooldownHours: envInt("ABANDONED_PROMPT_COOLDOWN_HOURS", 24),
		},
		AbandonPenalty: AbandonPenalty{
			QF: envInt64("QF_ABANDON_PENALTY", 5),
			IR: envInt64("IR_ABANDON_PENALTY", 5),
			TL: envInt64("TL_ABANDON_PENALTY", 5),
		},
		ContentCache: ContentCache{
			LockTimeoutSeconds:    envInt("CONTENT_CACHE_LOCK_TIMEOUT_SECONDS", 10),
			MaxGenerationAttempts: envInt("CONTENT_CACHE_MAX_GENERATION_ATTEMPTS", 5),
			CorpusPath:            getEnvOrDefault("CONTENT_CACHE_CORPUS_PATH", ""),
		},
		AIProvider: getEnvOrDefault("AI_PROVIDER", "none"),
	}
}

// PromptRoundTTL, CopyRoundTTL, VoteRoundTTL return each round type's
// time-to-live as time.Duration. The shared grace period is not
// included; GracePeriod returns it separately.
func (c Config) PromptRoundTTL() time.Duration {
	return time.Duration(c.Timing.PromptRoundSeconds) * time.Second
}

func (c Config) CopyRoundTTL() time.Duration {
	return time.Duration(c.Timing.CopyRoundSeconds) * time.Second
}

func (c Config) VoteRoundTTL() time.Duration {
	return time.Duration(c.Timing.VoteRoundSeconds) * time.Second
}

func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.Timing.GracePeriodSeconds) * time.Second
}

// RoundLockTimeout is how long a caller waits to acquire a per-player
// lock before giving up with KindLockTimeout.
func (c Config) RoundLockTimeout() time.Duration {
	return time.Duration(c.Concurrency.RoundLockTimeoutSeconds) * time.Second
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
