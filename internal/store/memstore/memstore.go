// Package memstore is an in-memory implementation of store.Store used by
// tests. It honors the same "whole transaction commits or none of it
// does" contract as the Postgres implementation: Begin takes an
// exclusive store-wide lock and snapshots every map; Rollback restores
// the snapshot, Commit simply releases the lock over the already-applied
// mutations. This is deliberately a single-writer design, fine for
// tests: a repo method called with a Tx relies on the lock Begin already
// holds, and takes the mutex itself only for a bare nil-Tx call (see
// lockIfNeeded).
package memstore

import (
	"context"
	"sync"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// Store is the in-memory backing store. All fields are maps keyed by ID;
// mu guards every field, and a held transaction is the sole writer.
type Store struct {
	mu sync.Mutex

	players        map[string]models.Player
	playerGameData map[string]models.PlayerGameData // key: playerID+"|"+game
	canonicalIndex map[string]string                // canonicalName -> playerID

	rounds map[string]models.Round

	transactions []models.Transaction

	phrasesets     map[string]models.Phraseset
	phrasesetVotes map[string][]models.PhrasesetVote // key: phrasesetID

	backronymSets map[string]models.BackronymSet

	clusters map[string]models.Cluster
	answers  map[string]models.TLAnswer

	sessions     map[string]models.PartySession
	participants map[string]models.PartyParticipant
	resultViews  map[string]models.ResultView // key: participantID+"|"+contentID

	cache      map[string]models.PhraseCacheEntry
	embeddings map[string]models.EmbeddingCacheEntry // key: phrase|model|provider
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		players:        make(map[string]models.Player),
		playerGameData: make(map[string]models.PlayerGameData),
		canonicalIndex: make(map[string]string),
		rounds:         make(map[string]models.Round),
		phrasesets:     make(map[string]models.Phraseset),
		phrasesetVotes: make(map[string][]models.PhrasesetVote),
		backronymSets:  make(map[string]models.BackronymSet),
		clusters:       make(map[string]models.Cluster),
		answers:        make(map[string]models.TLAnswer),
		sessions:       make(map[string]models.PartySession),
		participants:   make(map[string]models.PartyParticipant),
		resultViews:    make(map[string]models.ResultView),
		cache:          make(map[string]models.PhraseCacheEntry),
		embeddings:     make(map[string]models.EmbeddingCacheEntry),
	}
}

// snapshot is a deep-enough copy of every map for rollback purposes.
type snapshot struct {
	players        map[string]models.Player
	playerGameData map[string]models.PlayerGameData
	canonicalIndex map[string]string
	rounds         map[string]models.Round
	transactions   []models.Transaction
	phrasesets     map[string]models.Phraseset
	phrasesetVotes map[string][]models.PhrasesetVote
	backronymSets  map[string]models.BackronymSet
	clusters       map[string]models.Cluster
	answers        map[string]models.TLAnswer
	sessions       map[string]models.PartySession
	participants   map[string]models.PartyParticipant
	resultViews    map[string]models.ResultView
	cache          map[string]models.PhraseCacheEntry
	embeddings     map[string]models.EmbeddingCacheEntry
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSliceMap[K comparable, V any](m map[K][]V) map[K][]V {
	out := make(map[K][]V, len(m))
	for k, v := range m {
		cp := make([]V, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func (s *Store) takeSnapshot() snapshot {
	return snapshot{
		players:        cloneMap(s.players),
		playerGameData: cloneMap(s.playerGameData),
		canonicalIndex: cloneMap(s.canonicalIndex),
		rounds:         cloneMap(s.rounds),
		transactions:   append([]models.Transaction{}, s.transactions...),
		phrasesets:     cloneMap(s.phrasesets),
		phrasesetVotes: cloneSliceMap(s.phrasesetVotes),
		backronymSets:  cloneMap(s.backronymSets),
		clusters:       cloneMap(s.clusters),
		answers:        cloneMap(s.answers),
		sessions:       cloneMap(s.sessions),
		participants:   cloneMap(s.participants),
		resultViews:    cloneMap(s.resultViews),
		cache:          cloneMap(s.cache),
		embeddings:     cloneMap(s.embeddings),
	}
}

func (s *Store) restore(snap snapshot) {
	s.players = snap.players
	s.playerGameData = snap.playerGameData
	s.canonicalIndex = snap.canonicalIndex
	s.rounds = snap.rounds
	s.transactions = snap.transactions
	s.phrasesets = snap.phrasesets
	s.phrasesetVotes = snap.phrasesetVotes
	s.backronymSets = snap.backronymSets
	s.clusters = snap.clusters
	s.answers = snap.answers
	s.sessions = snap.sessions
	s.participants = snap.participants
	s.resultViews = snap.resultViews
	s.cache = snap.cache
	s.embeddings = snap.embeddings
}

// Tx is the in-memory unit of work. The store's mutex is held for the
// entire lifetime of the Tx, matching the spec's "one transaction is one
// critical section" model for a single-instance deployment.
type Tx struct {
	store    *Store
	snap     snapshot
	done     bool
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return coordinator.New(coordinator.KindNotFound, "transaction already closed")
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.mu.Unlock()
	return nil
}

// Begin acquires the store-wide lock and snapshots state for rollback.
func (s *Store) Begin(_ context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &Tx{store: s, snap: s.takeSnapshot()}, nil
}

// lockIfNeeded takes the store mutex when tx is nil (a bare, implicit
// single-statement unit of work) and returns the unlock func to defer.
// When tx is non-nil the caller's Begin already holds the lock.
func (s *Store) lockIfNeeded(tx store.Tx) func() {
	if tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}
