package memstore

import (
	"context"

	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) GetCache(_ context.Context, tx store.Tx, promptKey string) (*models.PhraseCacheEntry, bool, error) {
	defer s.lockIfNeeded(tx)()
	e, ok := s.cache[promptKey]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *Store) PutCache(_ context.Context, tx store.Tx, e *models.PhraseCacheEntry) error {
	defer s.lockIfNeeded(tx)()
	s.cache[e.PromptKey] = *e
	return nil
}

func (s *Store) DeleteCache(_ context.Context, tx store.Tx, promptKey string) error {
	defer s.lockIfNeeded(tx)()
	delete(s.cache, promptKey)
	return nil
}

// ListUsedPhrases flattens the phrase lists of the cache entries whose
// key equals normalizedPrompt, so the phrase selector can exclude text
// already shown for this prompt. Keys are compared exactly; entries
// cached under a prompt-round ID are not matched.
func (s *Store) ListUsedPhrases(_ context.Context, tx store.Tx, normalizedPrompt string) ([]string, error) {
	defer s.lockIfNeeded(tx)()
	var out []string
	for key, e := range s.cache {
		if key == normalizedPrompt || e.PromptKey == normalizedPrompt {
			out = append(out, e.Phrases...)
		}
	}
	return out, nil
}

func embeddingKey(phrase, model, provider string) string {
	return phrase + "|" + model + "|" + provider
}

func (s *Store) GetEmbedding(_ context.Context, tx store.Tx, phrase, model, provider string) (*models.EmbeddingCacheEntry, bool, error) {
	defer s.lockIfNeeded(tx)()
	e, ok := s.embeddings[embeddingKey(phrase, model, provider)]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *Store) PutEmbedding(_ context.Context, tx store.Tx, e *models.EmbeddingCacheEntry) error {
	defer s.lockIfNeeded(tx)()
	s.embeddings[embeddingKey(e.Phrase, e.Model, e.Provider)] = *e
	return nil
}
