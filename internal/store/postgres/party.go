package postgres

import (
	"context"
	"encoding/json"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

const sessionSelect = `
	SELECT id, code, host_player_id, config, status, current_phase, phase_started_at,
		phase_expires_at, locked_at, created_at, completed_at
	FROM party_sessions`

func (s *Store) CreateSession(ctx context.Context, t store.Tx, sess *models.PartySession) error {
	cfg, err := json.Marshal(sess.Config)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		INSERT INTO party_sessions (id, code, host_player_id, config, status, current_phase,
			phase_started_at, phase_expires_at, locked_at, created_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sess.ID, sess.Code, sess.HostPlayerID, cfg, string(sess.Status), string(sess.CurrentPhase),
		sess.PhaseStartedAt, sess.PhaseExpiresAt, sess.LockedAt, sess.CreatedAt, sess.CompletedAt)
	return err
}

func (s *Store) GetSession(ctx context.Context, t store.Tx, id string) (*models.PartySession, error) {
	row := s.q(t).QueryRow(ctx, sessionSelect+` WHERE id = $1`, id)
	return scanSession(row)
}

func (s *Store) GetSessionByCode(ctx context.Context, t store.Tx, code string) (*models.PartySession, error) {
	row := s.q(t).QueryRow(ctx, sessionSelect+` WHERE code = $1`, code)
	return scanSession(row)
}

func (s *Store) UpdateSession(ctx context.Context, t store.Tx, sess *models.PartySession) error {
	cfg, err := json.Marshal(sess.Config)
	if err != nil {
		return err
	}
	_, err = s.q(t).Exec(ctx, `
		UPDATE party_sessions SET config = $2, status = $3, current_phase = $4,
			phase_started_at = $5, phase_expires_at = $6, locked_at = $7, completed_at = $8
		WHERE id = $1`,
		sess.ID, cfg, string(sess.Status), string(sess.CurrentPhase),
		sess.PhaseStartedAt, sess.PhaseExpiresAt, sess.LockedAt, sess.CompletedAt)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, t store.Tx, id string) error {
	q := s.q(t)
	if _, err := q.Exec(ctx, `DELETE FROM result_views WHERE participant_id IN (
		SELECT id FROM party_participants WHERE session_id = $1)`, id); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM party_participants WHERE session_id = $1`, id); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM rounds WHERE party_session_id = $1`, id); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM phrasesets WHERE party_session_id = $1`, id); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `DELETE FROM party_sessions WHERE id = $1`, id)
	return err
}

func (s *Store) GetActiveSessionForPlayer(ctx context.Context, t store.Tx, playerID string) (*models.PartySession, error) {
	row := s.q(t).QueryRow(ctx, sessionSelect+`
		WHERE id IN (SELECT session_id FROM party_participants WHERE player_id = $1)
		AND status IN ('OPEN', 'IN_PROGRESS')`, playerID)
	sess, err := scanSession(row)
	if err != nil {
		if coordinator.Is(err, coordinator.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func scanSession(row interface {
	Scan(dest ...any) error
}) (*models.PartySession, error) {
	var sess models.PartySession
	var status, phase string
	var cfg []byte
	err := row.Scan(&sess.ID, &sess.Code, &sess.HostPlayerID, &cfg, &status, &phase,
		&sess.PhaseStartedAt, &sess.PhaseExpiresAt, &sess.LockedAt, &sess.CreatedAt, &sess.CompletedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "session not found")
		}
		return nil, err
	}
	sess.Status = models.SessionStatus(status)
	sess.CurrentPhase = models.Phase(phase)
	if err := json.Unmarshal(cfg, &sess.Config); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) CreateParticipant(ctx context.Context, t store.Tx, p *models.PartyParticipant) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO party_participants (id, session_id, player_id, status, is_host,
			prompts_submitted, copies_submitted, votes_submitted, joined_at, is_ai)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.SessionID, p.PlayerID, string(p.Status), p.IsHost,
		p.PromptsSubmitted, p.CopiesSubmitted, p.VotesSubmitted, p.JoinedAt, p.IsAI)
	return err
}

func (s *Store) GetParticipant(ctx context.Context, t store.Tx, id string) (*models.PartyParticipant, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, session_id, player_id, status, is_host, prompts_submitted, copies_submitted,
			votes_submitted, joined_at, is_ai
		FROM party_participants WHERE id = $1`, id)
	return scanParticipant(row)
}

func (s *Store) GetParticipantByPlayer(ctx context.Context, t store.Tx, sessionID, playerID string) (*models.PartyParticipant, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, session_id, player_id, status, is_host, prompts_submitted, copies_submitted,
			votes_submitted, joined_at, is_ai
		FROM party_participants WHERE session_id = $1 AND player_id = $2`, sessionID, playerID)
	return scanParticipant(row)
}

func (s *Store) ListParticipants(ctx context.Context, t store.Tx, sessionID string) ([]models.PartyParticipant, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, session_id, player_id, status, is_host, prompts_submitted, copies_submitted,
			votes_submitted, joined_at, is_ai
		FROM party_participants WHERE session_id = $1 ORDER BY joined_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PartyParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateParticipant(ctx context.Context, t store.Tx, p *models.PartyParticipant) error {
	_, err := s.q(t).Exec(ctx, `
		UPDATE party_participants SET status = $2, is_host = $3, prompts_submitted = $4,
			copies_submitted = $5, votes_submitted = $6, is_ai = $7
		WHERE id = $1`,
		p.ID, string(p.Status), p.IsHost, p.PromptsSubmitted, p.CopiesSubmitted, p.VotesSubmitted, p.IsAI)
	return err
}

func (s *Store) DeleteParticipant(ctx context.Context, t store.Tx, id string) error {
	_, err := s.q(t).Exec(ctx, `DELETE FROM party_participants WHERE id = $1`, id)
	return err
}

func scanParticipant(row interface {
	Scan(dest ...any) error
}) (*models.PartyParticipant, error) {
	var p models.PartyParticipant
	var status string
	if err := row.Scan(&p.ID, &p.SessionID, &p.PlayerID, &status, &p.IsHost, &p.PromptsSubmitted,
		&p.CopiesSubmitted, &p.VotesSubmitted, &p.JoinedAt, &p.IsAI); err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "participant not found")
		}
		return nil, err
	}
	p.Status = models.ParticipantStatus(status)
	return &p, nil
}

func (s *Store) CreateResultView(ctx context.Context, t store.Tx, v *models.ResultView) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO result_views (id, participant_id, phraseset_id, set_id, payout_amount)
		VALUES ($1, $2, $3, $4, $5)`, v.ID, v.ParticipantID, v.PhrasesetID, v.SetID, v.PayoutAmount)
	return err
}

func (s *Store) GetResultView(ctx context.Context, t store.Tx, participantID, contentID string) (*models.ResultView, bool, error) {
	row := s.q(t).QueryRow(ctx, `
		SELECT id, participant_id, phraseset_id, set_id, payout_amount
		FROM result_views WHERE participant_id = $1 AND (phraseset_id = $2 OR set_id = $2)`,
		participantID, contentID)
	var v models.ResultView
	if err := row.Scan(&v.ID, &v.ParticipantID, &v.PhrasesetID, &v.SetID, &v.PayoutAmount); err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &v, true, nil
}
