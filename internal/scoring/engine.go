// Package scoring is the reference scoring service behind the game core.
// It owns session persistence, question selection and answer scoring.
package scoring

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-game/internal/domain"
)

// Engine implements the backend contract of the game core.
type Engine struct {
	store          Store
	questions      QuestionRepository
	categories     []string
	pointsPerRound int
	log            *zap.Logger

	now   func() time.Time
	newID func() string
	pick  func(n int) int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithPicker replaces random question selection; pick returns an index in [0, n).
func WithPicker(pick func(n int) int) Option { return func(e *Engine) { e.pick = pick } }

func WithIDs(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func NewEngine(store Store, questions QuestionRepository, categories []string, pointsPerRound int, opts ...Option) *Engine {
	if pointsPerRound <= 0 {
		pointsPerRound = domain.DefaultPointsPerRound
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rndMu sync.Mutex
	e := &Engine{
		store:          store,
		questions:      questions,
		categories:     append([]string(nil), categories...),
		pointsPerRound: pointsPerRound,
		now:            time.Now,
		newID:          uuid.NewString,
		pick: func(n int) int {
			rndMu.Lock()
			defer rndMu.Unlock()
			return rnd.Intn(n)
		},
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// GetCurrentSession returns the user's most recent session of any status, or nil.
func (e *Engine) GetCurrentSession(ctx context.Context, userID string) (*domain.GameSession, error) {
	sessions, err := e.store.ListSessions(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	s := sessions[0]
	return &s, nil
}

// CreateSession closes the user's unfinished sessions and starts a new one.
func (e *Engine) CreateSession(ctx context.Context, userID string, maxRounds int) (string, error) {
	if maxRounds <= 0 {
		return "", domain.ErrInvalidMaxRounds
	}
	previous, err := e.store.ListSessions(ctx, userID, 0)
	if err != nil {
		return "", err
	}
	now := e.now()
	for _, s := range previous {
		if !s.Resumable() {
			continue
		}
		unlock := e.lock(s.ID)
		s.Status = domain.SessionCompleted
		s.CompletedAt = &now
		err := e.store.UpdateSession(ctx, s)
		unlock()
		if err != nil {
			return "", err
		}
		e.log.Info("session_closed", zap.String("session_id", s.ID), zap.String("user_id", userID))
	}

	session := domain.GameSession{
		ID:        e.newID(),
		UserID:    userID,
		Status:    domain.SessionActive,
		MaxRounds: maxRounds,
		StartedAt: now,
	}
	if err := e.store.CreateSession(ctx, session); err != nil {
		return "", err
	}
	e.log.Info("session_created",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.Int("max_rounds", maxRounds))
	return session.ID, nil
}

// StartRound opens round rounds_completed+1. While that round is unanswered the
// same payload is returned, so repeated calls never create duplicates.
func (e *Engine) StartRound(ctx context.Context, sessionID, roundType string) (domain.RoundPayload, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	if session.Status != domain.SessionActive {
		return domain.RoundPayload{}, domain.ErrSessionNotActive
	}
	rounds, err := e.store.ListRounds(ctx, sessionID)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	if n := len(rounds); n > 0 && !rounds[n-1].Completed() {
		return payloadOf(rounds[n-1]), nil
	}

	next := session.RoundsCompleted + 1
	if next > session.MaxRounds {
		return domain.RoundPayload{}, domain.ErrNoRoundsLeft
	}
	if roundType == "" {
		roundType = e.categoryFor(next)
	}
	question, err := e.selectQuestion(ctx, roundType, rounds)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	if question.Points <= 0 {
		question.Points = e.pointsPerRound
	}

	round := domain.SessionRound{
		ID:            e.newID(),
		SessionID:     sessionID,
		RoundNumber:   next,
		RoundType:     roundType,
		Question:      question,
		CorrectAnswer: question.CorrectAnswer,
		CreatedAt:     e.now(),
	}
	if err := e.store.SaveRound(ctx, round); err != nil {
		return domain.RoundPayload{}, err
	}
	e.log.Debug("round_started",
		zap.String("session_id", sessionID),
		zap.Int("round", next),
		zap.String("round_type", roundType),
		zap.String("question_id", question.ID))
	return payloadOf(round), nil
}

// SubmitAnswer scores the answer for roundNumber. Resubmitting an answered
// round returns its recorded result unchanged.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID string, roundNumber int, answer string, timeTaken int) (domain.RoundResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.RoundResult{}, err
	}
	rounds, err := e.store.ListRounds(ctx, sessionID)
	if err != nil {
		return domain.RoundResult{}, err
	}
	var round *domain.SessionRound
	for i := range rounds {
		if rounds[i].RoundNumber == roundNumber {
			round = &rounds[i]
			break
		}
	}
	if round == nil {
		return domain.RoundResult{}, domain.ErrRoundNotFound
	}
	if round.Completed() {
		return resultOf(*round, session), nil
	}
	if session.Status != domain.SessionActive {
		return domain.RoundResult{}, domain.ErrSessionNotActive
	}
	if roundNumber != session.RoundsCompleted+1 {
		return domain.RoundResult{}, domain.ErrRoundOutOfOrder
	}

	if timeTaken < 0 {
		timeTaken = 0
	}
	correct, points := scoreAnswer(round.Question, answer, e.pointsPerRound)
	now := e.now()
	round.UserAnswer = &answer
	round.IsCorrect = correct
	round.PointsEarned = points
	round.TimeTaken = timeTaken
	round.CompletedAt = &now

	session.TotalScore += points
	session.RoundsCompleted++
	if session.RoundsCompleted >= session.MaxRounds {
		session.Status = domain.SessionCompleted
		session.CompletedAt = &now
	}

	if err := e.store.SaveRound(ctx, *round); err != nil {
		return domain.RoundResult{}, err
	}
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return domain.RoundResult{}, err
	}
	e.log.Info("answer_scored",
		zap.String("session_id", sessionID),
		zap.Int("round", roundNumber),
		zap.Bool("correct", correct),
		zap.Int("points", points),
		zap.Int("time_taken", timeTaken))
	return resultOf(*round, session), nil
}

func (e *Engine) GetSessionRounds(ctx context.Context, sessionID string) ([]domain.SessionRound, error) {
	return e.store.ListRounds(ctx, sessionID)
}

func (e *Engine) GetGameHistory(ctx context.Context, userID string, limit int) ([]domain.GameSession, error) {
	return e.store.ListSessions(ctx, userID, limit)
}

// PauseSession marks an active session paused; pausing a paused session is a no-op.
func (e *Engine) PauseSession(ctx context.Context, sessionID string) error {
	return e.setStatus(ctx, sessionID, domain.SessionActive, domain.SessionPaused)
}

// ResumeSession marks a paused session active; resuming an active session is a no-op.
func (e *Engine) ResumeSession(ctx context.Context, sessionID string) error {
	return e.setStatus(ctx, sessionID, domain.SessionPaused, domain.SessionActive)
}

// CompleteSession ends an active or paused session with the score it has so far.
func (e *Engine) CompleteSession(ctx context.Context, sessionID string) error {
	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionCompleted {
		return nil
	}
	now := e.now()
	session.Status = domain.SessionCompleted
	session.CompletedAt = &now
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return err
	}
	e.log.Info("session_completed",
		zap.String("session_id", sessionID),
		zap.Int("rounds_completed", session.RoundsCompleted),
		zap.Int("total_score", session.TotalScore))
	return nil
}

func (e *Engine) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	sessions, err := e.store.TopSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(sessions))
	for _, s := range sessions {
		entry := domain.LeaderboardEntry{SessionID: s.ID, UserID: s.UserID, TotalScore: s.TotalScore}
		if s.CompletedAt != nil {
			entry.CompletedAt = *s.CompletedAt
		}
		entries = append(entries, entry)
	}
	// Stores rank by score; ties go to whoever finished first.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].CompletedAt.Before(entries[j].CompletedAt)
	})
	return entries, nil
}

func (e *Engine) setStatus(ctx context.Context, sessionID string, from, to domain.SessionStatus) error {
	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch session.Status {
	case to:
		return nil
	case from:
	default:
		return domain.ErrSessionNotActive
	}
	session.Status = to
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return err
	}
	e.log.Info("session_status_changed", zap.String("session_id", sessionID), zap.String("status", string(to)))
	return nil
}

func (e *Engine) categoryFor(roundNumber int) string {
	if len(e.categories) == 0 {
		return "general"
	}
	return e.categories[(roundNumber-1)%len(e.categories)]
}

// selectQuestion picks a question of category not yet asked in this session,
// falling back to the whole bank once every question has been used.
func (e *Engine) selectQuestion(ctx context.Context, category string, asked []domain.SessionRound) (domain.Question, error) {
	bank, err := e.questions.GetBank(ctx, category)
	if err != nil {
		return domain.Question{}, err
	}
	if len(bank.Questions) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}
	used := make(map[string]struct{}, len(asked))
	for _, r := range asked {
		used[r.Question.ID] = struct{}{}
	}
	fresh := make([]domain.Question, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		if _, ok := used[q.ID]; !ok {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		fresh = bank.Questions
	}
	q := fresh[e.pick(len(fresh))]
	if q.Category == "" {
		q.Category = category
	}
	return q, nil
}

// lock serializes mutations of one session.
func (e *Engine) lock(sessionID string) func() {
	e.mu.Lock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// scoreAnswer compares answer with the question's correct answer, ignoring case
// and surrounding whitespace, and returns (correct, points).
func scoreAnswer(q domain.Question, answer string, fallbackPoints int) (bool, int) {
	if strings.TrimSpace(answer) == "" || q.CorrectAnswer == "" {
		return false, 0
	}
	if !strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
		return false, 0
	}
	if q.Points > 0 {
		return true, q.Points
	}
	return true, fallbackPoints
}

func payloadOf(r domain.SessionRound) domain.RoundPayload {
	return domain.RoundPayload{
		SessionID:   r.SessionID,
		RoundNumber: r.RoundNumber,
		RoundType:   r.RoundType,
		Question:    r.Question.Redacted(),
	}
}

func resultOf(r domain.SessionRound, s domain.GameSession) domain.RoundResult {
	return domain.RoundResult{
		RoundNumber:     r.RoundNumber,
		IsCorrect:       r.IsCorrect,
		PointsEarned:    r.PointsEarned,
		CorrectAnswer:   r.CorrectAnswer,
		Explanation:     r.Question.Explanation,
		TotalScore:      s.TotalScore,
		RoundsCompleted: s.RoundsCompleted,
		SessionComplete: s.Status == domain.SessionCompleted,
	}
}
