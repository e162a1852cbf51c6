package postgres

import (
	"context"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

const phrasesetSelect = `
	SELECT id, prompt_round_id, author_id, prompt_text, copy1_round_id, copy1_player_id, copy1_phrase,
		copy2_round_id, copy2_player_id, copy2_phrase, status, votes_original, votes_copy1, votes_copy2,
		vote_count, available_for_voting, prize_pool, created_at, voting_started_at, closing_started_at,
		minimum_eligible_at, finalized_at, party_session_id
	FROM phrasesets`

func (s *Store) CreatePhraseset(ctx context.Context, t store.Tx, p *models.Phraseset) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO phrasesets (id, prompt_round_id, author_id, prompt_text, copy1_round_id, copy1_player_id, copy1_phrase,
			copy2_round_id, copy2_player_id, copy2_phrase, status, votes_original, votes_copy1, votes_copy2,
			vote_count, available_for_voting, prize_pool, created_at, voting_started_at, closing_started_at,
			minimum_eligible_at, finalized_at, party_session_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		p.ID, p.PromptRoundID, p.AuthorID, p.PromptText, p.Copy1RoundID, p.Copy1PlayerID, p.Copy1Phrase,
		p.Copy2RoundID, p.Copy2PlayerID, p.Copy2Phrase, string(p.Status), p.VotesOriginal, p.VotesCopy1, p.VotesCopy2,
		p.VoteCount, p.AvailableForVoting, p.PrizePool, p.CreatedAt, p.VotingStartedAt, p.ClosingStartedAt,
		p.MinimumEligibleAt, p.FinalizedAt, p.PartySessionID)
	return err
}

func (s *Store) GetPhraseset(ctx context.Context, t store.Tx, id string) (*models.Phraseset, error) {
	row := s.q(t).QueryRow(ctx, phrasesetSelect+` WHERE id = $1`, id)
	return scanPhraseset(row)
}

func (s *Store) GetPhrasesetByPromptRound(ctx context.Context, t store.Tx, promptRoundID string) (*models.Phraseset, error) {
	row := s.q(t).QueryRow(ctx, phrasesetSelect+` WHERE prompt_round_id = $1`, promptRoundID)
	return scanPhraseset(row)
}

func (s *Store) UpdatePhraseset(ctx context.Context, t store.Tx, p *models.Phraseset) error {
	_, err := s.q(t).Exec(ctx, `
		UPDATE phrasesets SET copy1_round_id = $2, copy1_player_id = $3, copy1_phrase = $4,
			copy2_round_id = $5, copy2_player_id = $6, copy2_phrase = $7, status = $8,
			votes_original = $9, votes_copy1 = $10, votes_copy2 = $11, vote_count = $12,
			available_for_voting = $13, prize_pool = $14, voting_started_at = $15,
			closing_started_at = $16, minimum_eligible_at = $17, finalized_at = $18
		WHERE id = $1`,
		p.ID, p.Copy1RoundID, p.Copy1PlayerID, p.Copy1Phrase, p.Copy2RoundID, p.Copy2PlayerID, p.Copy2Phrase,
		string(p.Status), p.VotesOriginal, p.VotesCopy1, p.VotesCopy2, p.VoteCount, p.AvailableForVoting,
		p.PrizePool, p.VotingStartedAt, p.ClosingStartedAt, p.MinimumEligibleAt, p.FinalizedAt)
	return err
}

func (s *Store) CountOutstandingByAuthor(ctx context.Context, t store.Tx, authorID string) (int, error) {
	var count int
	err := s.q(t).QueryRow(ctx,
		`SELECT COUNT(*) FROM phrasesets WHERE author_id = $1 AND status != $2`,
		authorID, string(models.PhrasesetFinalized)).Scan(&count)
	return count, err
}

func (s *Store) ListPhrasesetsByStatus(ctx context.Context, t store.Tx, status models.PhrasesetStatus) ([]models.Phraseset, error) {
	rows, err := s.q(t).Query(ctx, phrasesetSelect+` WHERE status = $1`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Phraseset
	for rows.Next() {
		p, err := scanPhraseset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPhraseset(row interface {
	Scan(dest ...any) error
}) (*models.Phraseset, error) {
	var p models.Phraseset
	var status string
	err := row.Scan(&p.ID, &p.PromptRoundID, &p.AuthorID, &p.PromptText, &p.Copy1RoundID, &p.Copy1PlayerID, &p.Copy1Phrase,
		&p.Copy2RoundID, &p.Copy2PlayerID, &p.Copy2Phrase, &status, &p.VotesOriginal, &p.VotesCopy1, &p.VotesCopy2,
		&p.VoteCount, &p.AvailableForVoting, &p.PrizePool, &p.CreatedAt, &p.VotingStartedAt, &p.ClosingStartedAt,
		&p.MinimumEligibleAt, &p.FinalizedAt, &p.PartySessionID)
	if err != nil {
		if isNoRows(err) {
			return nil, coordinator.New(coordinator.KindNotFound, "phraseset not found")
		}
		return nil, err
	}
	p.Status = models.PhrasesetStatus(status)
	return &p, nil
}

func (s *Store) AddPhrasesetVote(ctx context.Context, t store.Tx, v *models.PhrasesetVote) error {
	_, err := s.q(t).Exec(ctx, `
		INSERT INTO phraseset_votes (id, phraseset_id, voter_id, choice_slot, is_participant, round_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.PhrasesetID, v.VoterID, string(v.ChoiceSlot), v.IsParticipant, v.RoundID, v.CreatedAt)
	return err
}

func (s *Store) ListPhrasesetVotes(ctx context.Context, t store.Tx, phrasesetID string) ([]models.PhrasesetVote, error) {
	rows, err := s.q(t).Query(ctx, `
		SELECT id, phraseset_id, voter_id, choice_slot, is_participant, round_id, created_at
		FROM phraseset_votes WHERE phraseset_id = $1`, phrasesetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PhrasesetVote
	for rows.Next() {
		var v models.PhrasesetVote
		var slot string
		if err := rows.Scan(&v.ID, &v.PhrasesetID, &v.VoterID, &slot, &v.IsParticipant, &v.RoundID, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ChoiceSlot = models.VoteSlot(slot)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) HasVoted(ctx context.Context, t store.Tx, phrasesetID, voterID string) (bool, error) {
	var exists bool
	err := s.q(t).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM phraseset_votes WHERE phraseset_id = $1 AND voter_id = $2)`,
		phrasesetID, voterID).Scan(&exists)
	return exists, err
}
