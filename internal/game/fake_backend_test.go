package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-game/internal/domain"
)

type submission struct {
	sessionID string
	round     int
	answer    string
	timeTaken int
}

// fakeBackend scores "right" as the only correct answer, 10 points each.
type fakeBackend struct {
	mu          sync.Mutex
	session     *domain.GameSession
	rounds      []domain.SessionRound
	history     []domain.GameSession
	historyRnds map[string][]domain.SessionRound
	categories  []string
	nextID      int

	getErr      error
	createErr   error
	startErr    error
	submitErr   error // returned once
	roundsErr   error
	completeErr error

	getCalls      int
	startCalls    int
	submitCalls   int
	pauseCalls    int
	resumeCalls   int
	completeCalls int
	submissions   []submission

	entered chan struct{} // signalled when SubmitAnswer starts, if set
	release chan struct{} // SubmitAnswer waits on it, if set
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{categories: []string{"budgeting", "investing"}}
}

func (f *fakeBackend) seed(status domain.SessionStatus, completed, maxRounds int) *domain.GameSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = &domain.GameSession{
		ID:              "s-seed",
		UserID:          "u1",
		Status:          status,
		RoundsCompleted: completed,
		MaxRounds:       maxRounds,
		TotalScore:      completed * 10,
		StartedAt:       time.Unix(0, 0),
	}
	return f.session
}

func (f *fakeBackend) GetCurrentSession(_ context.Context, userID string) (*domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.session == nil || f.session.UserID != userID {
		return nil, nil
	}
	s := *f.session
	return &s, nil
}

func (f *fakeBackend) CreateSession(_ context.Context, userID string, maxRounds int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	f.session = &domain.GameSession{
		ID:        fmt.Sprintf("s-%d", f.nextID),
		UserID:    userID,
		Status:    domain.SessionActive,
		MaxRounds: maxRounds,
		StartedAt: time.Unix(0, 0),
	}
	f.rounds = nil
	return f.session.ID, nil
}

func (f *fakeBackend) StartRound(_ context.Context, sessionID, _ string) (domain.RoundPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return domain.RoundPayload{}, f.startErr
	}
	if f.session == nil || f.session.ID != sessionID {
		return domain.RoundPayload{}, domain.ErrSessionNotFound
	}
	if n := len(f.rounds); n > 0 && !f.rounds[n-1].Completed() {
		return f.payload(f.rounds[n-1]), nil
	}
	next := f.session.RoundsCompleted + 1
	if next > f.session.MaxRounds {
		return domain.RoundPayload{}, domain.ErrNoRoundsLeft
	}
	category := f.categories[(next-1)%len(f.categories)]
	round := domain.SessionRound{
		ID:          fmt.Sprintf("%s-r%d", sessionID, next),
		SessionID:   sessionID,
		RoundNumber: next,
		RoundType:   category,
		Question: domain.Question{
			ID:       fmt.Sprintf("q%d", next),
			Category: category,
			Prompt:   "Pick the right option",
			Options:  []string{"right", "wrong"},
		},
		CorrectAnswer: "right",
	}
	f.rounds = append(f.rounds, round)
	return f.payload(round), nil
}

func (f *fakeBackend) payload(r domain.SessionRound) domain.RoundPayload {
	return domain.RoundPayload{
		SessionID:   r.SessionID,
		RoundNumber: r.RoundNumber,
		RoundType:   r.RoundType,
		Question:    r.Question,
	}
}

func (f *fakeBackend) SubmitAnswer(_ context.Context, sessionID string, roundNumber int, answer string, timeTaken int) (domain.RoundResult, error) {
	f.mu.Lock()
	f.submitCalls++
	f.submissions = append(f.submissions, submission{sessionID, roundNumber, answer, timeTaken})
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		err := f.submitErr
		f.submitErr = nil
		return domain.RoundResult{}, err
	}
	if f.session == nil || f.session.ID != sessionID {
		return domain.RoundResult{}, domain.ErrSessionNotFound
	}
	if roundNumber != f.session.RoundsCompleted+1 {
		return domain.RoundResult{}, domain.ErrRoundOutOfOrder
	}
	r := &f.rounds[len(f.rounds)-1]
	now := time.Unix(int64(roundNumber), 0)
	r.UserAnswer = &answer
	r.IsCorrect = answer == r.CorrectAnswer
	if r.IsCorrect {
		r.PointsEarned = 10
	}
	r.TimeTaken = timeTaken
	r.CompletedAt = &now

	f.session.TotalScore += r.PointsEarned
	f.session.RoundsCompleted++
	complete := f.session.RoundsCompleted >= f.session.MaxRounds
	if complete {
		f.session.Status = domain.SessionCompleted
		f.session.CompletedAt = &now
	}
	return domain.RoundResult{
		RoundNumber:     roundNumber,
		IsCorrect:       r.IsCorrect,
		PointsEarned:    r.PointsEarned,
		CorrectAnswer:   r.CorrectAnswer,
		Explanation:     "because",
		TotalScore:      f.session.TotalScore,
		RoundsCompleted: f.session.RoundsCompleted,
		SessionComplete: complete,
	}, nil
}

func (f *fakeBackend) GetSessionRounds(_ context.Context, sessionID string) ([]domain.SessionRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roundsErr != nil {
		return nil, f.roundsErr
	}
	if rounds, ok := f.historyRnds[sessionID]; ok {
		return rounds, nil
	}
	out := make([]domain.SessionRound, len(f.rounds))
	copy(out, f.rounds)
	return out, nil
}

func (f *fakeBackend) GetGameHistory(_ context.Context, _ string, limit int) ([]domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeBackend) PauseSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	if f.session != nil && f.session.ID == sessionID {
		f.session.Status = domain.SessionPaused
	}
	return nil
}

func (f *fakeBackend) ResumeSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	if f.session != nil && f.session.ID == sessionID {
		f.session.Status = domain.SessionActive
	}
	return nil
}

func (f *fakeBackend) CompleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	if f.session == nil || f.session.ID != sessionID {
		return domain.ErrSessionNotFound
	}
	now := time.Unix(100, 0)
	f.session.Status = domain.SessionCompleted
	f.session.CompletedAt = &now
	return nil
}

func (f *fakeBackend) GetLeaderboard(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return []domain.LeaderboardEntry{{SessionID: "s-top", UserID: "u9", TotalScore: 100}}, nil
}

func (f *fakeBackend) calls() (get, start, submit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls, f.startCalls, f.submitCalls
}

func (f *fakeBackend) lastSubmission() submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submissions) == 0 {
		return submission{}
	}
	return f.submissions[len(f.submissions)-1]
}
