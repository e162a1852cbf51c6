// Package matching implements C4: TL cluster assignment and corpus
// pruning on top of the embedding package's two-tier cache and cosine
// similarity helpers.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/embedding"
	"github.com/sheegaon/quipengine/internal/logging"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var log = logging.New("Matching")

// Service assigns answers to clusters and prunes each prompt's active
// corpus back down to the configured cap.
type Service struct {
	store      store.Store
	embeddings *embedding.Service
	cfg        config.TLMatching
}

func New(st store.Store, emb *embedding.Service, cfg config.TLMatching) *Service {
	return &Service{store: st, embeddings: emb, cfg: cfg}
}

// AssignResult reports which cluster an embedding landed in and
// whether it was flagged a near-duplicate of an existing member.
type AssignResult struct {
	Cluster     *models.Cluster
	Created     bool
	NearDuplicate bool
	BestSimilarity float64
}

// AssignCluster computes similarity against every existing cluster
// centroid for promptID and either joins the best match (running-mean
// centroid update) or creates a new singleton cluster, per spec.md §4.4.
func (s *Service) AssignCluster(ctx context.Context, tx store.Tx, promptID string, emb []float64, exampleMember string) (*AssignResult, error) {
	clusters, err := s.store.ListClustersByPrompt(ctx, tx, promptID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	best := -1
	bestSim := 0.0
	for i, c := range clusters {
		sim := embedding.CosineSimilarity(emb, c.Centroid)
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}

	if best >= 0 && bestSim >= s.cfg.ClusterJoinThreshold {
		c := clusters[best]
		n := float64(c.Size)
		updated := make([]float64, len(c.Centroid))
		for i := range c.Centroid {
			updated[i] = (c.Centroid[i]*n + emb[i]) / (n + 1)
		}
		c.Centroid = updated
		c.Size++
		if err := s.store.UpdateCluster(ctx, tx, &c); err != nil {
			return nil, fmt.Errorf("update cluster: %w", err)
		}
		return &AssignResult{
			Cluster:        &c,
			NearDuplicate:  bestSim >= s.cfg.ClusterDuplicateThreshold,
			BestSimilarity: bestSim,
		}, nil
	}

	c := &models.Cluster{
		ID:            uuid.NewString(),
		PromptID:      promptID,
		Centroid:      emb,
		Size:          1,
		ExampleMember: exampleMember,
	}
	if err := s.store.CreateCluster(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("create cluster: %w", err)
	}
	return &AssignResult{Cluster: c, Created: true, BestSimilarity: bestSim}, nil
}

// PruneCorpus scores every active answer for promptID by usefulness and
// deactivates the lowest-scoring ones until active_count <= cap,
// except it never removes the last active answer of any cluster
// (spec.md §4.4 — preserves cluster diversity).
func (s *Service) PruneCorpus(ctx context.Context, tx store.Tx, promptID string, corpusCap int) (pruned int, err error) {
	answers, err := s.store.ListActiveAnswersByPrompt(ctx, tx, promptID)
	if err != nil {
		return 0, fmt.Errorf("list active answers: %w", err)
	}
	if len(answers) <= corpusCap {
		return 0, nil
	}

	clusterCounts := make(map[string]int)
	for _, a := range answers {
		clusterCounts[a.ClusterID]++
	}

	sort.Slice(answers, func(i, j int) bool {
		return answers[i].Usefulness() < answers[j].Usefulness()
	})

	need := len(answers) - corpusCap
	for i := range answers {
		if need == 0 {
			break
		}
		a := answers[i]
		if clusterCounts[a.ClusterID] <= 1 {
			continue // last member of its cluster: never pruned
		}
		a.Active = false
		if err := s.store.UpdateAnswer(ctx, tx, &a); err != nil {
			return pruned, fmt.Errorf("deactivate answer: %w", err)
		}
		clusterCounts[a.ClusterID]--
		pruned++
		need--
	}
	if need > 0 {
		log.Printf("prompt=%s could not prune down to cap=%d: %d answers protected as last-of-cluster", promptID, corpusCap, need)
	}
	return pruned, nil
}
