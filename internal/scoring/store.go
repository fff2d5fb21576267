package scoring

import (
	"context"

	"quiz-game/internal/domain"
)

// Store persists sessions and their rounds (in-memory, Redis, Postgres).
type Store interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, s domain.GameSession) error
	// UpdateSession overwrites an existing session.
	UpdateSession(ctx context.Context, s domain.GameSession) error
	// GetSession returns domain.ErrSessionNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (domain.GameSession, error)
	// ListSessions returns the user's sessions newest first; limit <= 0 means all.
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.GameSession, error)
	// SaveRound upserts a round keyed by session id and round number.
	SaveRound(ctx context.Context, r domain.SessionRound) error
	// ListRounds returns the session's rounds ordered by round number.
	ListRounds(ctx context.Context, sessionID string) ([]domain.SessionRound, error)
	// TopSessions returns completed sessions ordered by total score descending.
	TopSessions(ctx context.Context, limit int) ([]domain.GameSession, error)
}

// QuestionRepository serves question banks by category (from cache/backing store).
type QuestionRepository interface {
	GetBank(ctx context.Context, category string) (domain.QuestionBank, error)
}
