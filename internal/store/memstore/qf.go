package memstore

import (
	"context"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreatePhraseset(_ context.Context, tx store.Tx, p *models.Phraseset) error {
	defer s.lockIfNeeded(tx)()
	s.phrasesets[p.ID] = *p
	return nil
}

func (s *Store) GetPhraseset(_ context.Context, tx store.Tx, id string) (*models.Phraseset, error) {
	defer s.lockIfNeeded(tx)()
	p, ok := s.phrasesets[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "phraseset %s not found", id)
	}
	return &p, nil
}

func (s *Store) GetPhrasesetByPromptRound(_ context.Context, tx store.Tx, promptRoundID string) (*models.Phraseset, error) {
	defer s.lockIfNeeded(tx)()
	for _, p := range s.phrasesets {
		if p.PromptRoundID == promptRoundID {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdatePhraseset(_ context.Context, tx store.Tx, p *models.Phraseset) error {
	defer s.lockIfNeeded(tx)()
	s.phrasesets[p.ID] = *p
	return nil
}

func (s *Store) ListPhrasesetsByStatus(_ context.Context, tx store.Tx, status models.PhrasesetStatus) ([]models.Phraseset, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.Phraseset
	for _, p := range s.phrasesets {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CountOutstandingByAuthor(_ context.Context, tx store.Tx, authorID string) (int, error) {
	defer s.lockIfNeeded(tx)()
	count := 0
	for _, p := range s.phrasesets {
		if p.AuthorID == authorID && p.Status != models.PhrasesetFinalized {
			count++
		}
	}
	return count, nil
}

func (s *Store) AddPhrasesetVote(_ context.Context, tx store.Tx, v *models.PhrasesetVote) error {
	defer s.lockIfNeeded(tx)()
	s.phrasesetVotes[v.PhrasesetID] = append(s.phrasesetVotes[v.PhrasesetID], *v)
	return nil
}

func (s *Store) ListPhrasesetVotes(_ context.Context, tx store.Tx, phrasesetID string) ([]models.PhrasesetVote, error) {
	defer s.lockIfNeeded(tx)()
	out := make([]models.PhrasesetVote, len(s.phrasesetVotes[phrasesetID]))
	copy(out, s.phrasesetVotes[phrasesetID])
	return out, nil
}

func (s *Store) HasVoted(_ context.Context, tx store.Tx, phrasesetID, voterID string) (bool, error) {
	defer s.lockIfNeeded(tx)()
	for _, v := range s.phrasesetVotes[phrasesetID] {
		if v.VoterID == voterID {
			return true, nil
		}
	}
	return false, nil
}
