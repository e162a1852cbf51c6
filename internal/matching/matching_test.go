package matching

import (
	"context"
	"testing"

	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/embedding"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/pkg/models"
)

type fakeEmbeddingProvider struct{}

func (fakeEmbeddingProvider) GenerateEmbedding(_ context.Context, _, _ string) ([]float64, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	emb := embedding.New(st, fakeEmbeddingProvider{})
	cfg := config.TLMatching{
		MatchThreshold:            0.55,
		ClusterJoinThreshold:      0.75,
		ClusterDuplicateThreshold: 0.90,
	}
	return New(st, emb, cfg), st
}

func TestAssignClusterCreatesSingleton(t *testing.T) {
	svc, _ := newTestService(t)
	result, err := svc.AssignCluster(context.Background(), nil, "prompt-1", []float64{1, 0, 0}, "first")
	if err != nil {
		t.Fatalf("AssignCluster: %v", err)
	}
	if !result.Created || result.Cluster.Size != 1 {
		t.Fatalf("expected new singleton cluster, got %+v", result)
	}
}

func TestAssignClusterJoinsAboveThreshold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.AssignCluster(ctx, nil, "prompt-1", []float64{1, 0, 0}, "first")
	if err != nil {
		t.Fatalf("AssignCluster(first): %v", err)
	}

	second, err := svc.AssignCluster(ctx, nil, "prompt-1", []float64{0.9, 0.1, 0}, "second")
	if err != nil {
		t.Fatalf("AssignCluster(second): %v", err)
	}
	if second.Created {
		t.Fatalf("expected second embedding to join existing cluster, got a new one")
	}
	if second.Cluster.ID != first.Cluster.ID {
		t.Fatalf("joined cluster id %s, want %s", second.Cluster.ID, first.Cluster.ID)
	}
	if second.Cluster.Size != 2 {
		t.Fatalf("cluster size = %d, want 2", second.Cluster.Size)
	}
}

func TestAssignClusterCreatesNewBelowThreshold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.AssignCluster(ctx, nil, "prompt-1", []float64{1, 0, 0}, "first")
	if err != nil {
		t.Fatalf("AssignCluster(first): %v", err)
	}

	second, err := svc.AssignCluster(ctx, nil, "prompt-1", []float64{0, 1, 0}, "second")
	if err != nil {
		t.Fatalf("AssignCluster(second): %v", err)
	}
	if !second.Created {
		t.Fatalf("expected orthogonal embedding to create a new cluster")
	}
	if second.Cluster.ID == first.Cluster.ID {
		t.Fatalf("expected a distinct cluster id")
	}
}

func TestPruneCorpusNeverRemovesLastOfCluster(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	mkAnswer := func(id, clusterID string, contributedMatches, shows int) models.TLAnswer {
		return models.TLAnswer{
			ID: id, PromptID: "prompt-1", ClusterID: clusterID,
			Text: id, Active: true, ContributedMatches: contributedMatches, Shows: shows,
		}
	}
	// cluster "a" has 2 members, cluster "b" has 1 — with cap=2 the
	// single prune target must be a2, the least useful member of a
	// multi-member cluster; b1 is protected as the last of its cluster.
	a1 := mkAnswer("a1", "a", 10, 0)   // usefulness 10/(0+1) = 10
	a2 := mkAnswer("a2", "a", 0, 1000) // usefulness 0/(1000+1) = 0, lowest (tied with b1)
	b1 := mkAnswer("b1", "b", 0, 10)   // usefulness 0/(10+1) = 0, but last of its cluster
	for _, a := range []models.TLAnswer{a1, a2, b1} {
		if err := st.CreateAnswer(ctx, nil, &a); err != nil {
			t.Fatalf("CreateAnswer: %v", err)
		}
	}

	pruned, err := svc.PruneCorpus(ctx, nil, "prompt-1", 2)
	if err != nil {
		t.Fatalf("PruneCorpus: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}

	got, err := st.GetAnswer(ctx, nil, "a2")
	if err != nil {
		t.Fatalf("GetAnswer(a2): %v", err)
	}
	if got.Active {
		t.Fatalf("expected a2 (lowest usefulness, not last-of-cluster) to be pruned")
	}
	b1Got, err := st.GetAnswer(ctx, nil, "b1")
	if err != nil {
		t.Fatalf("GetAnswer(b1): %v", err)
	}
	if !b1Got.Active {
		t.Fatalf("expected b1 (last member of cluster b) to remain active")
	}
}
