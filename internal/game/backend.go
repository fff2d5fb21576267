package game

import (
	"context"

	"quiz-game/internal/domain"
)

// Backend is the authoritative scoring service the core orchestrates.
// It owns the question bank, correctness and all persisted records.
type Backend interface {
	// GetCurrentSession returns the user's current session, or nil when there is none.
	GetCurrentSession(ctx context.Context, userID string) (*domain.GameSession, error)
	CreateSession(ctx context.Context, userID string, maxRounds int) (string, error)
	// StartRound allocates round rounds_completed+1, or returns it again if it is still open.
	// An empty roundType lets the backend pick the category.
	StartRound(ctx context.Context, sessionID, roundType string) (domain.RoundPayload, error)
	SubmitAnswer(ctx context.Context, sessionID string, roundNumber int, answer string, timeTaken int) (domain.RoundResult, error)
	// GetSessionRounds returns the session's rounds ordered by round number.
	GetSessionRounds(ctx context.Context, sessionID string) ([]domain.SessionRound, error)

	GetGameHistory(ctx context.Context, userID string, limit int) ([]domain.GameSession, error)
	PauseSession(ctx context.Context, sessionID string) error
	ResumeSession(ctx context.Context, sessionID string) error
	// CompleteSession ends a session early; completing a completed session is a no-op.
	CompleteSession(ctx context.Context, sessionID string) error
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}
