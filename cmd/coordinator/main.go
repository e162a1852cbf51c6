package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sheegaon/quipengine/internal/ai"
	"github.com/sheegaon/quipengine/internal/api"
	"github.com/sheegaon/quipengine/internal/broadcaster"
	"github.com/sheegaon/quipengine/internal/cache"
	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/embedding"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/llm"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/matcher"
	"github.com/sheegaon/quipengine/internal/party"
	"github.com/sheegaon/quipengine/internal/player"
	"github.com/sheegaon/quipengine/internal/round"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/internal/store/postgres"
	"github.com/sheegaon/quipengine/internal/sweeper"
	"github.com/sheegaon/quipengine/internal/validation"
)

func main() {
	cleanupOrphans := flag.Bool("cleanup-orphans", false, "run one expiry/finalization sweep pass and exit, instead of starting the server")
	anonymizeInactive := flag.Bool("anonymize-inactive", false, "anonymize guests inactive past the configured cooldown and exit, instead of starting the server")
	flag.Parse()

	log.Println("Starting quipengine coordinator...")

	cfg := config.Load()
	clock := coordinator.SystemClock{}

	st := connectStore()
	locks, queue := connectLockQueue()
	llmProvider, embedProvider := connectProviders(cfg)
	validator := connectValidator()

	corpus, err := cache.LoadCorpus(cfg.ContentCache.CorpusPath)
	if err != nil {
		log.Printf("Warning: failed to load content cache corpus, continuing LLM-only: %v", err)
		corpus = map[string][]string{}
	}

	hub := broadcaster.NewHub()

	ldg := ledger.New(st, clock)
	contentCache := cache.New(st, locks, llmProvider, validator, clock, corpus, cfg.ContentCache, cfg.AIOrchestration, cfg.AIProvider)
	emb := embedding.New(st, embedProvider)

	engine := round.New(st, ldg, locks, validator, clock, cfg, hub)
	qf := round.NewQFService(engine, st, ldg, queue, contentCache)
	ir := round.NewIRService(engine, st, ldg)
	tl := round.NewTLService(engine, st, ldg, locks, emb,
		cfg.TLMatching.EmbeddingModel, cfg.TLMatching.EmbeddingProviderName,
		cfg.TLMatching.MatchThreshold, cfg.TLMatching.SelfSimilarityThreshold)

	m := matcher.New(st, queue, clock)

	// party.Controller and ai.Orchestrator each need the other as a
	// collaborator; wire the Controller with no AI filler, construct the
	// Orchestrator against it as the PhaseAdvancer, then close the loop.
	partyCtl := party.New(st, ldg, locks, clock, hub, nil)
	orchestrator := ai.New(st, ldg, qf, ir, llmProvider, validator, contentCache, &cfg, partyCtl)
	partyCtl.SetAIFiller(orchestrator)

	players := player.New(st, clock, cfg)

	sweep := sweeper.New(st, engine, qf, ir, orchestrator, clock, cfg)
	if err := sweep.RegisterDailyJob("@daily", func(ctx context.Context) error {
		cutoff := clock.Now().Add(-time.Duration(cfg.AntiAbuse.AbandonedPromptCooldownHours) * time.Hour)
		_, err := players.SweepInactiveGuests(ctx, cutoff)
		return err
	}); err != nil {
		log.Printf("Warning: failed to register daily guest-sweep job: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *cleanupOrphans || *anonymizeInactive {
		runMaintenanceAndExit(ctx, *cleanupOrphans, *anonymizeInactive, sweep, players, clock, cfg)
	}

	go sweep.Run(ctx)

	r := api.SetupRouter(players, qf, ir, tl, engine, m, partyCtl, orchestrator, hub, st, ldg, cfg)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("Coordinator listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runMaintenanceAndExit implements the admin one-shot modes: a single
// expiry/finalization sweep pass and/or an inactive-guest anonymization
// pass, each run synchronously and then os.Exit, never starting the
// HTTP server. Mirrors cmd/seedtl's admin-CLI shape rather than the
// long-running coordinator process.
func runMaintenanceAndExit(ctx context.Context, cleanupOrphans, anonymizeInactive bool, sweep *sweeper.Sweeper, players *player.Service, clock coordinator.Clock, cfg config.Config) {
	if cleanupOrphans {
		log.Println("running one-shot expiry/finalization sweep...")
		sweep.RunOnce(ctx)
	}
	if anonymizeInactive {
		cutoff := clock.Now().Add(-time.Duration(cfg.AntiAbuse.AbandonedPromptCooldownHours) * time.Hour)
		count, err := players.SweepInactiveGuests(ctx, cutoff)
		if err != nil {
			log.Fatalf("anonymize-inactive sweep failed: %v", err)
		}
		log.Printf("anonymized %d inactive guest(s)", count)
	}
	os.Exit(0)
}

// connectStore prefers Postgres when DATABASE_URL is set, falling back
// to the in-memory store on any connection failure — the same
// optional-dependency, non-fatal-warning shape the teacher's main uses
// for its own Postgres connection.
func connectStore() store.Store {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("DATABASE_URL not set, using in-memory store")
		return memstore.New()
	}
	pg, err := postgres.Connect(context.Background(), dbURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, falling back to in-memory store: %v", err)
		return memstore.New()
	}
	log.Println("Connected to PostgreSQL store")
	return pg
}

// connectLockQueue prefers Redis when REDIS_URL is set, falling back to
// the in-memory lock/queue service on any connection failure. Single
// instance deployments are expected to leave REDIS_URL unset.
func connectLockQueue() (lockqueue.LockService, lockqueue.QueueService) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Println("REDIS_URL not set, using in-memory lock/queue service")
		mem := lockqueue.NewMemoryService()
		return mem, mem
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL, falling back to in-memory lock/queue service: %v", err)
		mem := lockqueue.NewMemoryService()
		return mem, mem
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Failed to reach Redis, falling back to in-memory lock/queue service: %v", err)
		mem := lockqueue.NewMemoryService()
		return mem, mem
	}
	log.Println("Connected to Redis lock/queue service")
	rsvc := lockqueue.NewRedisService(rdb)
	return rsvc, rsvc
}

// connectProviders wires the LLM provider chosen by AI_PROVIDER and a
// separate embedding provider. Gemini has no embeddings endpoint wired
// (internal/llm.GeminiProvider), so the embedding cache always gets an
// OpenAI (or none) provider regardless of which LLM provider text
// generation uses.
func connectProviders(cfg config.Config) (collaborators.LLMProvider, collaborators.EmbeddingProvider) {
	var llmProvider collaborators.LLMProvider
	switch cfg.AIProvider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			llmProvider = llm.NewOpenAIProvider(key)
		} else {
			log.Println("Warning: AI_PROVIDER=openai but OPENAI_API_KEY not set, falling back to none provider")
			llmProvider = llm.NoneProvider{}
		}
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			llmProvider = llm.NewGeminiProvider(key)
		} else {
			log.Println("Warning: AI_PROVIDER=gemini but GEMINI_API_KEY not set, falling back to none provider")
			llmProvider = llm.NoneProvider{}
		}
	default:
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

// connectValidator prefers an out-of-process validation service when
// VALIDATION_SERVICE_URL is set, otherwise validates in-process against
// an optional dictionary file (one word per line).
func connectValidator() collaborators.PhraseValidator {
	if url := os.Getenv("VALIDATION_SERVICE_URL"); url != "" {
		log.Printf("Using remote phrase validator at %s", url)
		return validation.NewHTTPClient(url)
	}
	dict := loadDictionary(os.Getenv("DICTIONARY_PATH"))
	return validation.New(dict)
}

// loadDictionary reads one lowercase word per line. An empty or missing
// path is not fatal — the validator just skips the dictionary check.
func loadDictionary(path string) map[string]bool {
	dict := map[string]bool{}
	if path == "" {
		return dict
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: failed to read dictionary file %q, continuing without it: %v", path, err)
		return dict
	}
	for _, line := range strings.Split(string(data), "\n") {
		word := strings.ToLower(strings.TrimSpace(line))
		if word != "" {
			dict[word] = true
		}
	}
	return dict
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
