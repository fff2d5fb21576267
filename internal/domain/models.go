package domain

import "time"

// SessionStatus is the lifecycle state of a game session as persisted by the scoring backend.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

const (
	DefaultMaxRounds      = 10
	DefaultRoundSeconds   = 60
	DefaultPointsPerRound = 10
	DefaultPerfectSeconds = 30
)

// GameSession is one game attempt bounded to MaxRounds rounds.
type GameSession struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Status          SessionStatus `json:"status"`
	TotalScore      int           `json:"total_score"`
	RoundsCompleted int           `json:"rounds_completed"`
	MaxRounds       int           `json:"max_rounds"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// Resumable reports whether play can continue in this session.
func (s GameSession) Resumable() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// Question is opaque to the orchestration core; it is forwarded to the UI as-is.
// CorrectAnswer and Explanation are withheld by the backend until the round is submitted.
type Question struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Prompt        string   `json:"question_text"`
	Scenario      string   `json:"scenario,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Points        int      `json:"points_value"` // defaults to DefaultPointsPerRound if zero
}

// Redacted strips the fields a player must not see before answering.
func (q Question) Redacted() Question {
	q.CorrectAnswer = ""
	q.Explanation = ""
	return q
}

// QuestionBank is the set of questions of one category.
type QuestionBank struct {
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
}

// SessionRound is one attempted round within a session.
type SessionRound struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"session_id"`
	RoundNumber   int        `json:"round_number"`
	RoundType     string     `json:"round_type"`
	Question      Question   `json:"question_data"`
	UserAnswer    *string    `json:"user_answer,omitempty"`
	CorrectAnswer string     `json:"correct_answer"`
	IsCorrect     bool       `json:"is_correct"`
	PointsEarned  int        `json:"points_earned"`
	TimeTaken     int        `json:"time_taken"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Completed reports whether the round has been submitted.
func (r SessionRound) Completed() bool {
	return r.CompletedAt != nil
}

// RoundPayload is what the backend hands out when a round starts.
type RoundPayload struct {
	SessionID   string   `json:"session_id"`
	RoundNumber int      `json:"round_number"`
	RoundType   string   `json:"round_type"`
	Question    Question `json:"question"`
}

// RoundResult is the authoritative outcome of a submitted answer.
type RoundResult struct {
	RoundNumber     int    `json:"round_number"`
	IsCorrect       bool   `json:"is_correct"`
	PointsEarned    int    `json:"points_earned"`
	CorrectAnswer   string `json:"correct_answer"`
	Explanation     string `json:"explanation"`
	TotalScore      int    `json:"total_score"`
	RoundsCompleted int    `json:"rounds_completed"`
	SessionComplete bool   `json:"session_complete"`
}

// CategoryStat counts correct answers for one round type.
type CategoryStat struct {
	Category   string  `json:"category"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// PerformanceTier is a coarse banding of a final score against the maximum.
type PerformanceTier string

const (
	TierExcellent        PerformanceTier = "Excellent"
	TierGood             PerformanceTier = "Good"
	TierFair             PerformanceTier = "Fair"
	TierNeedsImprovement PerformanceTier = "Needs Improvement"
)

// ResultsSummary is the end-of-game view model.
type ResultsSummary struct {
	SessionID       string          `json:"session_id"`
	TotalScore      int             `json:"total_score"`
	MaxPossible     int             `json:"max_possible"`
	Accuracy        float64         `json:"accuracy"`
	AverageTime     float64         `json:"average_time"`
	PerfectRounds   int             `json:"perfect_rounds"`
	CorrectCount    int             `json:"correct_count"`
	CompletedRounds int             `json:"completed_rounds"`
	Tier            PerformanceTier `json:"tier"`
	Categories      []CategoryStat  `json:"categories"`
	Rounds          []SessionRound  `json:"rounds"`
}

// GameStats aggregates a user's game history.
type GameStats struct {
	TotalSessions     int     `json:"total_sessions"`
	CompletedSessions int     `json:"completed_sessions"`
	TotalScore        int     `json:"total_score"`
	AverageScore      float64 `json:"average_score"`
	BestScore         int     `json:"best_score"`
	TotalRounds       int     `json:"total_rounds"`
	AccuracyRate      float64 `json:"accuracy_rate"`
}

// LeaderboardEntry is a completed session ranked by total score.
type LeaderboardEntry struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	TotalScore  int       `json:"total_score"`
	CompletedAt time.Time `json:"completed_at"`
}
