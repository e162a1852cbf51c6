// Package cache implements C3, the Content Cache: a per-prompt store of
// AI-generated, pre-validated candidate phrases that the AI Orchestrator
// (C8) draws from instead of calling the LLM on every backfill. Grounded
// on internal/lockqueue for the per-key mutex spec.md §4.3 requires
// around generation, and on the teacher's narrow external-collaborator
// interfaces (internal/bitcoin.Client) for the LLM/validator boundary.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

const minCandidates = 3

// Kind distinguishes the two cache flavors spec.md §4.3 names: the quip
// cache (AI-authored prompt answers, keyed by normalized prompt text) and
// the impostor cache (AI decoy copies, keyed by prompt-round ID).
type Kind int

const (
	KindQuip Kind = iota
	KindImpostor
)

// Request describes the phrase a caller needs, and the context the
// validator needs to judge it.
type Request struct {
	Kind       Kind
	PromptKey  string // normalized prompt text (quip) or prompt round ID (impostor)
	PromptText string
	OtherCopy  *string // impostor only: the sibling copy already on record, if any
}

// Service owns the per-prompt lock, the validated-candidate store, and
// the corpus/LLM fallback chain spec.md §4.3 describes.
type Service struct {
	store     store.Store
	locks     lockqueue.LockService
	llm       collaborators.LLMProvider
	validator collaborators.PhraseValidator
	clock     coordinator.Clock
	corpus    map[string][]string // normalized prompt text -> static candidate phrases
	cfg       config.ContentCache
	aiCfg     config.AIOrchestration
	provider  string
}

func New(st store.Store, locks lockqueue.LockService, llm collaborators.LLMProvider, validator collaborators.PhraseValidator,
	clock coordinator.Clock, corpus map[string][]string, cfg config.ContentCache, aiCfg config.AIOrchestration, provider string) *Service {
	if corpus == nil {
		corpus = map[string][]string{}
	}
	return &Service{store: st, locks: locks, llm: llm, validator: validator, clock: clock, corpus: corpus, cfg: cfg, aiCfg: aiCfg, provider: provider}
}

// NormalizeKey lowercases/trims prompt text into the quip cache's key
// space, so "Describe your morning" and "describe your morning " share
// one cache entry.
func NormalizeKey(promptText string) string {
	return strings.ToLower(strings.TrimSpace(promptText))
}

// Consume returns the next candidate phrase for req, generating and
// caching a fresh batch under req's lock if none exists yet. Phrases are
// served round-robin / least-used; the entry itself is never removed on
// consumption (spec.md §4.3).
func (s *Service) Consume(ctx context.Context, req Request) (string, error) {
	var phrase string
	err := lockqueue.WithLock(ctx, s.locks, lockqueue.LockClassContent, lockKey(req.Kind, req.PromptKey), s.lockTimeout(), func() error {
		entry, found, err := s.store.GetCache(ctx, nil, req.PromptKey)
		if err != nil {
			return err
		}
		if !found || len(entry.Phrases) == 0 {
			entry, err = s.generate(ctx, req)
			if err != nil {
				return err
			}
		}
		idx := entry.UsageIndex % len(entry.Phrases)
		phrase = entry.Phrases[idx]
		entry.UsageIndex = (idx + 1) % len(entry.Phrases)
		if req.Kind == KindImpostor {
			entry.UsedForBackupCopy = true
		} else {
			entry.UsedForHint = true
		}
		return s.store.PutCache(ctx, nil, entry)
	})
	return phrase, err
}

// ReverifyOnFirstCopy re-checks an impostor cache's phrases against the
// first human copy now on record: any cached phrase that no longer
// passes ValidateCopy against otherCopy is dropped; if fewer than three
// survive, the entry is deleted so the next consumer regenerates from
// scratch (spec.md §4.3).
func (s *Service) ReverifyOnFirstCopy(ctx context.Context, promptRoundID, otherCopy, promptText string) error {
	return lockqueue.WithLock(ctx, s.locks, lockqueue.LockClassContent, lockKey(KindImpostor, promptRoundID), s.lockTimeout(), func() error {
		entry, found, err := s.store.GetCache(ctx, nil, promptRoundID)
		if err != nil || !found {
			return err
		}
		var survivors []string
		for _, p := range entry.Phrases {
			ok, _, verr := s.validator.ValidateCopy(ctx, p, promptText, &otherCopy, &promptText)
			if verr == nil && ok {
				survivors = append(survivors, p)
			}
		}
		if len(survivors) < minCandidates {
			return s.store.DeleteCache(ctx, nil, promptRoundID)
		}
		entry.Phrases = survivors
		entry.UsageIndex = entry.UsageIndex % len(survivors)
		return s.store.PutCache(ctx, nil, entry)
	})
}

// generate must be called with req's lock already held. It consults the
// static corpus first, falls back to the LLM provider for the shortfall,
// and persists whatever validated set results.
func (s *Service) generate(ctx context.Context, req Request) (*models.PhraseCacheEntry, error) {
	used := map[string]bool{}
	if req.OtherCopy != nil {
		used[strings.ToLower(*req.OtherCopy)] = true
	}

	var valid []string
	for _, p := range s.corpus[NormalizeKey(req.PromptText)] {
		if used[strings.ToLower(p)] {
			continue
		}
		if ok, _, err := s.validateOne(ctx, req, p); err == nil && ok {
			valid = append(valid, p)
			used[strings.ToLower(p)] = true
		}
	}

	attempts := 0
	for len(valid) < minCandidates && attempts < s.cfg.MaxGenerationAttempts {
		attempts++
		resp, err := s.llm.GenerateResponse(ctx, s.llmPrompt(req), s.aiCfg.AIModel, s.aiCfg.AITimeoutSeconds)
		if err != nil {
			continue
		}
		candidate := strings.TrimSpace(resp)
		if candidate == "" || used[strings.ToLower(candidate)] {
			continue
		}
		if ok, _, verr := s.validateOne(ctx, req, candidate); verr == nil && ok {
			valid = append(valid, candidate)
			used[strings.ToLower(candidate)] = true
		}
	}

	if len(valid) < minCandidates {
		return nil, coordinator.Newf(coordinator.KindAIGenerationFailed,
			"content cache: only %d valid candidates for %q after %d generation attempts", len(valid), req.PromptKey, attempts)
	}

	entry := &models.PhraseCacheEntry{
		ID:        uuid.NewString(),
		PromptKey: req.PromptKey,
		Phrases:   valid,
		Provider:  s.provider,
		Model:     s.aiCfg.AIModel,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.PutCache(ctx, nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) validateOne(ctx context.Context, req Request, phrase string) (bool, string, error) {
	if req.Kind == KindImpostor {
		return s.validator.ValidateCopy(ctx, phrase, req.PromptText, req.OtherCopy, &req.PromptText)
	}
	return s.validator.ValidatePromptPhrase(ctx, phrase, req.PromptText)
}

func (s *Service) llmPrompt(req Request) string {
	if req.Kind == KindImpostor {
		p := fmt.Sprintf("Write a short, funny, single-sentence answer to %q that could pass as someone else's genuine answer.", req.PromptText)
		if req.OtherCopy != nil {
			p += fmt.Sprintf(" Make it clearly different from this other answer: %q.", *req.OtherCopy)
		}
		return p + " Reply with only the answer."
	}
	return fmt.Sprintf("Give a short, funny, single-sentence answer to this prompt: %q. Reply with only the answer.", req.PromptText)
}

func (s *Service) lockTimeout() time.Duration {
	return time.Duration(s.cfg.LockTimeoutSeconds) * time.Second
}

func lockKey(kind Kind, promptKey string) string {
	if kind == KindImpostor {
		return "impostor:" + promptKey
	}
	return "quip:" + promptKey
}
