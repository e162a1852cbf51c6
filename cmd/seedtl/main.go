// seedtl is the admin CLI for TL's answer corpora: it seeds a prompt's
// active answer pool from a flat text file (one candidate answer per
// line), clustering each new answer via C4's matching.Service (live
// guess rounds never add answers), and can separately prune a prompt's
// corpus back down to its configured cap.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/embedding"
	"github.com/sheegaon/quipengine/internal/llm"
	"github.com/sheegaon/quipengine/internal/matching"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/internal/store/postgres"
	"github.com/sheegaon/quipengine/pkg/models"
)

func main() {
	promptID := flag.String("prompt-id", "", "TL prompt ID to seed/prune (required)")
	seedFile := flag.String("seed-file", "", "path to a newline-delimited file of candidate answers to add")
	prune := flag.Bool("prune", false, "prune the prompt's active corpus down to -cap after seeding")
	capFlag := flag.Int("cap", 0, "active corpus cap for -prune (0 uses the configured default)")
	flag.Parse()

	if *promptID == "" {
		fmt.Fprintln(os.Stderr, "seedtl: -prompt-id is required")
		os.Exit(1)
	}

	cfg := config.Load()
	st := connectStore()
	_, embedProvider := connectProviders(cfg)

	emb := embedding.New(st, embedProvider)
	m := matching.New(st, emb, cfg.TLMatching)

	ctx := context.Background()

	if *seedFile != "" {
		added, err := seed(ctx, st, m, emb, cfg, *promptID, *seedFile)
		if err != nil {
			log.Fatalf("seedtl: seed failed: %v", err)
		}
		log.Printf("seeded %d answers into prompt %s", added, *promptID)
	}

	if *prune {
		cap := *capFlag
		if cap == 0 {
			cap = cfg.TLMatching.ActiveCorpusCap
		}
		pruned, err := m.PruneCorpus(ctx, nil, *promptID, cap)
		if err != nil {
			log.Fatalf("seedtl: prune failed: %v", err)
		}
		log.Printf("pruned %d answers from prompt %s (cap=%d)", pruned, *promptID, cap)
	}
}

func seed(ctx context.Context, st store.Store, m *matching.Service, emb *embedding.Service, cfg config.Config, promptID, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	model, provider := cfg.TLMatching.EmbeddingModel, cfg.TLMatching.EmbeddingProviderName
	added := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		vec, err := emb.Get(ctx, nil, text, model, provider)
		if err != nil {
			return added, fmt.Errorf("embed %q: %w", text, err)
		}
		assign, err := m.AssignCluster(ctx, nil, promptID, vec, text)
		if err != nil {
			return added, fmt.Errorf("assign cluster for %q: %w", text, err)
		}
		answer := &models.TLAnswer{
			ID:        uuid.NewString(),
			PromptID:  promptID,
			ClusterID: assign.Cluster.ID,
			Text:      text,
			Weight:    1,
			Active:    true,
		}
		if err := st.CreateAnswer(ctx, nil, answer); err != nil {
			return added, fmt.Errorf("create answer %q: %w", text, err)
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("read seed file: %w", err)
	}
	return added, nil
}

func connectStore() store.Store {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("DATABASE_URL not set, using in-memory store")
		return memstore.New()
	}
	pg, err := postgres.Connect(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("seedtl: failed to connect to PostgreSQL: %v", err)
	}
	return pg
}

func connectProviders(cfg config.Config) (collaborators.LLMProvider, collaborators.EmbeddingProvider) {
	var llmProvider collaborators.LLMProvider
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.AIProvider == "openai" {
		llmProvider = llm.NewOpenAIProvider(key)
	} else {
		llmProvider = llm.NoneProvider{}
	}

	var embedProvider collaborators.EmbeddingProvider
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedProvider = llm.NewOpenAIProvider(key)
	} else {
		embedProvider = llm.NoneProvider{}
	}
	return llmProvider, embedProvider
}
