// Package embedding implements C4's two-tier embedding cache: a
// process-local map, then the persistent store (store.Embeddings),
// then the external embedding API — exactly the order spec.md §4.4
// prescribes, with the API call as the single root method.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// Service is the two-tier cache in front of an EmbeddingProvider.
type Service struct {
	store    store.Store
	provider collaborators.EmbeddingProvider

	mu    sync.Mutex
	local map[string][]float64 // key: phrase|model|provider
}

func New(st store.Store, provider collaborators.EmbeddingProvider) *Service {
	return &Service{store: st, provider: provider, local: make(map[string][]float64)}
}

func key(phrase, model, providerName string) string {
	return phrase + "|" + model + "|" + providerName
}

// Get returns the embedding for (phrase, model), generating and
// caching it at both tiers on a miss. providerName tags which
// provider produced the vector, for cache-key disambiguation when a
// deployment switches providers mid-corpus.
func (s *Service) Get(ctx context.Context, tx store.Tx, phrase, model, providerName string) ([]float64, error) {
	k := key(phrase, model, providerName)

	s.mu.Lock()
	if v, ok := s.local[k]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	entry, ok, err := s.store.GetEmbedding(ctx, tx, phrase, model, providerName)
	if err != nil {
		return nil, fmt.Errorf("get embedding from store: %w", err)
	}
	if ok {
		s.mu.Lock()
		s.local[k] = entry.Embedding
		s.mu.Unlock()
		return entry.Embedding, nil
	}

	vec, err := s.provider.GenerateEmbedding(ctx, phrase, model)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if err := s.store.PutEmbedding(ctx, tx, &models.EmbeddingCacheEntry{
		Phrase:    phrase,
		Model:     model,
		Provider:  providerName,
		Embedding: vec,
	}); err != nil {
		return nil, fmt.Errorf("put embedding into store: %w", err)
	}
	s.mu.Lock()
	s.local[k] = vec
	s.mu.Unlock()
	return vec, nil
}

// CosineSimilarity clamps to [0, 1] per spec.md §4.4: the semantic
// model never benefits from opposite-direction matches, so a negative
// dot product is treated as zero rather than as a meaningful signal.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// BatchCosineSimilarity returns the clamped similarity of query against
// every vector in corpus, in order — the "vectorized" batch form
// spec.md §4.4 calls for, expressed as a simple loop since this module
// carries no matrix library (the pack offers none for this domain).
func BatchCosineSimilarity(query []float64, corpus [][]float64) []float64 {
	out := make([]float64, len(corpus))
	for i, v := range corpus {
		out[i] = CosineSimilarity(query, v)
	}
	return out
}
