package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game/internal/domain"
)

// Store keeps sessions in game_sessions and rounds in session_rounds.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const foreignKeyViolation = "23503"

const sessionColumns = `id, user_id, status, total_score, rounds_completed, max_rounds, started_at, completed_at`

func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, string(session.Status), session.TotalScore,
		session.RoundsCompleted, session.MaxRounds, session.StartedAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session domain.GameSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE game_sessions
		SET status=$2, total_score=$3, rounds_completed=$4, max_rounds=$5, completed_at=$6
		WHERE id=$1`,
		session.ID, string(session.Status), session.TotalScore, session.RoundsCompleted,
		session.MaxRounds, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id=$1`, id)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]domain.GameSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM game_sessions
		WHERE user_id=$1 ORDER BY seq DESC LIMIT $2`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return collectSessions(rows)
}

func (s *Store) TopSessions(ctx context.Context, limit int) ([]domain.GameSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM game_sessions
		WHERE status='completed' ORDER BY total_score DESC, completed_at ASC LIMIT $1`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return collectSessions(rows)
}

func (s *Store) SaveRound(ctx context.Context, r domain.SessionRound) error {
	question, err := json.Marshal(r.Question)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_rounds (id, session_id, round_number, round_type, question_data, user_answer,
			correct_answer, is_correct, points_earned, time_taken, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id, round_number) DO UPDATE SET
			user_answer=EXCLUDED.user_answer, is_correct=EXCLUDED.is_correct,
			points_earned=EXCLUDED.points_earned, time_taken=EXCLUDED.time_taken,
			completed_at=EXCLUDED.completed_at`,
		r.ID, r.SessionID, r.RoundNumber, r.RoundType, string(question), r.UserAnswer,
		r.CorrectAnswer, r.IsCorrect, r.PointsEarned, r.TimeTaken, r.CompletedAt, r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

func (s *Store) ListRounds(ctx context.Context, sessionID string) ([]domain.SessionRound, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, round_number, round_type, question_data, user_answer,
			correct_answer, is_correct, points_earned, time_taken, completed_at, created_at
		FROM session_rounds WHERE session_id=$1 ORDER BY round_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionRound
	for rows.Next() {
		var r domain.SessionRound
		var question []byte
		if err := rows.Scan(&r.ID, &r.SessionID, &r.RoundNumber, &r.RoundType, &question, &r.UserAnswer,
			&r.CorrectAnswer, &r.IsCorrect, &r.PointsEarned, &r.TimeTaken, &r.CompletedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if err := json.Unmarshal(question, &r.Question); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return out, nil
}

func scanSession(row pgx.Row) (domain.GameSession, error) {
	var s domain.GameSession
	var status string
	err := row.Scan(&s.ID, &s.UserID, &status, &s.TotalScore, &s.RoundsCompleted, &s.MaxRounds, &s.StartedAt, &s.CompletedAt)
	s.Status = domain.SessionStatus(status)
	return s, err
}

func collectSessions(rows pgx.Rows) ([]domain.GameSession, error) {
	defer rows.Close()
	var out []domain.GameSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// sqlLimit maps limit <= 0 to NULL, which Postgres treats as no limit.
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
