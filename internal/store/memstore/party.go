package memstore

import (
	"context"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

func (s *Store) CreateSession(_ context.Context, tx store.Tx, sess *models.PartySession) error {
	defer s.lockIfNeeded(tx)()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) GetSession(_ context.Context, tx store.Tx, id string) (*models.PartySession, error) {
	defer s.lockIfNeeded(tx)()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "session %s not found", id)
	}
	return &sess, nil
}

func (s *Store) GetSessionByCode(_ context.Context, tx store.Tx, code string) (*models.PartySession, error) {
	defer s.lockIfNeeded(tx)()
	for _, sess := range s.sessions {
		if sess.Code == code && sess.Status != models.SessionCompleted && sess.Status != models.SessionAbandoned {
			cp := sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateSession(_ context.Context, tx store.Tx, sess *models.PartySession) error {
	defer s.lockIfNeeded(tx)()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, tx store.Tx, id string) error {
	defer s.lockIfNeeded(tx)()
	delete(s.sessions, id)
	for pid, p := range s.participants {
		if p.SessionID == id {
			delete(s.participants, pid)
		}
	}
	for rid, r := range s.rounds {
		if r.PartySessionID != nil && *r.PartySessionID == id {
			delete(s.rounds, rid)
		}
	}
	for psid, p := range s.phrasesets {
		if p.PartySessionID != nil && *p.PartySessionID == id {
			delete(s.phrasesets, psid)
		}
	}
	return nil
}

func (s *Store) GetActiveSessionForPlayer(_ context.Context, tx store.Tx, playerID string) (*models.PartySession, error) {
	defer s.lockIfNeeded(tx)()
	for _, p := range s.participants {
		if p.PlayerID != playerID {
			continue
		}
		sess, ok := s.sessions[p.SessionID]
		if !ok {
			continue
		}
		if sess.Status != models.SessionCompleted && sess.Status != models.SessionAbandoned {
			cp := sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateParticipant(_ context.Context, tx store.Tx, p *models.PartyParticipant) error {
	defer s.lockIfNeeded(tx)()
	s.participants[p.ID] = *p
	return nil
}

func (s *Store) GetParticipant(_ context.Context, tx store.Tx, id string) (*models.PartyParticipant, error) {
	defer s.lockIfNeeded(tx)()
	p, ok := s.participants[id]
	if !ok {
		return nil, coordinator.Newf(coordinator.KindNotFound, "participant %s not found", id)
	}
	return &p, nil
}

func (s *Store) GetParticipantByPlayer(_ context.Context, tx store.Tx, sessionID, playerID string) (*models.PartyParticipant, error) {
	defer s.lockIfNeeded(tx)()
	for _, p := range s.participants {
		if p.SessionID == sessionID && p.PlayerID == playerID {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListParticipants(_ context.Context, tx store.Tx, sessionID string) ([]models.PartyParticipant, error) {
	defer s.lockIfNeeded(tx)()
	var out []models.PartyParticipant
	for _, p := range s.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdateParticipant(_ context.Context, tx store.Tx, p *models.PartyParticipant) error {
	defer s.lockIfNeeded(tx)()
	s.participants[p.ID] = *p
	return nil
}

func (s *Store) DeleteParticipant(_ context.Context, tx store.Tx, id string) error {
	defer s.lockIfNeeded(tx)()
	delete(s.participants, id)
	return nil
}

func (s *Store) CreateResultView(_ context.Context, tx store.Tx, v *models.ResultView) error {
	defer s.lockIfNeeded(tx)()
	key := resultViewKey(v.ParticipantID, contentIDOf(v))
	s.resultViews[key] = *v
	return nil
}

func (s *Store) GetResultView(_ context.Context, tx store.Tx, participantID, contentID string) (*models.ResultView, bool, error) {
	defer s.lockIfNeeded(tx)()
	v, ok := s.resultViews[resultViewKey(participantID, contentID)]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func resultViewKey(participantID, contentID string) string {
	return participantID + "|" + contentID
}

func contentIDOf(v *models.ResultView) string {
	if v.PhrasesetID != nil {
		return *v.PhrasesetID
	}
	if v.SetID != nil {
		return *v.SetID
	}
	return ""
}
