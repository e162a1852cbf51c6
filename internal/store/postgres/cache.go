package postgres

import (
	"context"
	"encoding/json"

	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) GetCache(ctx context.Context, t store.Tx, promptKey string) (*models.PhraseCacheEntry, bool, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT prompt_key, phrases, usage_index, provider, model, created_at, used_for_hint, used_for_backup_copy
		FROM phrase_cache WHERE prompt_key = $1`, promptKey)
	var e models.PhraseCacheEntry
	var phrases []byte
	if err := row.Scan(&e.PromptKey, &phrases, &e.UsageIndex, &e.Provider, &e.Model, &e.CreatedAt, &e.UsedForHint, &e.UsedForBackupCopy); err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	e.ID = e.PromptKey
	if err := json.Unmarshal(phrases, &e.Phrases); err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

func (s *Store) PutCache(ctx context.Context, t store.Tx, e *models.PhraseCacheEntry) error {
	phrases, err := json.Marshal(e.Phrases)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO phrase_cache (prompt_key, phrases, usage_index, provider, model, created_at, used_for_hint, used_for_backup_copy)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (prompt_key) DO UPDATE SET
			phrases = EXCLUDED.phrases, usage_index = EXCLUDED.usage_index, provider = EXCLUDED.provider,
			model = EXCLUDED.model, used_for_hint = EXCLUDED.used_for_hint, used_for_backup_copy = EXCLUDED.used_for_backup_copy`,
		e.PromptKey, phrases, e.UsageIndex, e.Provider, e.Model, e.CreatedAt, e.UsedForHint, e.UsedForBackupCopy)
	return err
}

func (s *Store) DeleteCache(ctx context.Context, t store.Tx, promptKey string) error {
	_, err := s.q(t).Exec(ctx, `DELETE FROM phrase_cache WHERE prompt_key = $1`, promptKey)
	return err
}

// ListUsedPhrases pulls the phrases cached under prompt_key =
// normalizedPrompt. phrase_cache has no normalized-prompt column of its
// own (prompt_key is the round ID or literal prompt text depending on
// caller), so only the entry keyed by the literal normalized prompt is
// read — the same exact-key match the in-memory store uses.
func (s *Store) ListUsedPhrases(ctx context.Context, t store.Tx, normalizedPrompt string) ([]string, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT phrases FROM phrase_cache WHERE prompt_key = $1`, normalizedPrompt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var phrases []string
		if err := json.Unmarshal(raw, &phrases); err != nil {
			return nil, err
		}
		out = append(out, phrases...)
	}
	return out, rows.Err()
}

func (s *Store) GetEmbedding(ctx context.Context, t store.Tx, phrase, model, provider string) (*models.EmbeddingCacheEntry, bool, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT phrase, model, provider, embedding FROM embedding_cache WHERE phrase = $1 AND model = $2 AND provider = $3`,
		phrase, model, provider)
	var e models.EmbeddingCacheEntry
	var embedding []byte
	if err := row.Scan(&e.Phrase, &e.Model, &e.Provider, &embedding); err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := json.Unmarshal(embedding, &e.Embedding); err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

func (s *Store) PutEmbedding(ctx context.Context, t store.Tx, e *models.EmbeddingCacheEntry) error {
	embedding, err := json.Marshal(e.Embedding)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO embedding_cache (phrase, model, provider, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (phrase, model, provider) DO UPDATE SET embedding = EXCLUDED.embedding`,
		e.Phrase, e.Model, e.Provider, embedding)
	return err
}
