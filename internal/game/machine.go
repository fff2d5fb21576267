package game

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"quiz-game/internal/domain"
)

// Phase is what the UI must show.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseDashboard   Phase = "dashboard"
	PhasePlaying     Phase = "playing"
	PhaseRoundResult Phase = "round_result"
	PhaseCompleted   Phase = "completed"
	PhaseError       Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseLoading:     {PhaseLoading, PhaseDashboard, PhasePlaying, PhaseCompleted, PhaseError},
	PhaseDashboard:   {PhaseLoading, PhaseDashboard, PhasePlaying, PhaseError},
	PhasePlaying:     {PhaseLoading, PhaseRoundResult, PhaseCompleted, PhaseDashboard, PhaseError},
	PhaseRoundResult: {PhaseLoading, PhasePlaying, PhaseCompleted, PhaseDashboard, PhaseError},
	PhaseCompleted:   {PhaseLoading, PhaseDashboard, PhasePlaying, PhaseError},
	PhaseError:       {PhaseLoading, PhaseDashboard, PhasePlaying, PhaseError},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// machine holds the current phase and the session it refers to.
type machine struct {
	mu        sync.RWMutex
	phase     Phase
	sessionID string
	err       error
}

func newMachine() *machine {
	return &machine{phase: PhaseLoading}
}

func (m *machine) to(next Phase, sessionID string, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !canTransition(m.phase, next) {
		return domain.ErrInvalidTransition
	}
	m.phase = next
	m.sessionID = sessionID
	m.err = err
	return nil
}

func (m *machine) state() (Phase, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase, m.sessionID, m.err
}

func (m *machine) in(phases ...Phase) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range phases {
		if m.phase == p {
			return true
		}
	}
	return false
}

// Resolve is the entry action: it asks the backend for the user's current
// session and moves to the phase that session implies. It is safe to call repeatedly.
func (g *Game) Resolve(ctx context.Context, userID string) (View, error) {
	if userID == "" {
		return g.View(), domain.ErrNoUser
	}
	if !g.begin() {
		return g.View(), domain.ErrBusy
	}
	defer g.end()

	// Every resolve starts from an empty snapshot; a submission still in
	// flight from before lands on a round it no longer owns and is dropped.
	g.resetPlay(userID)
	g.snap.Clear()
	_ = g.machine.to(PhaseLoading, "", nil)
	g.notify(EventState)

	session, err := g.backend.GetCurrentSession(ctx, userID)
	if err != nil {
		return g.fail(domain.NewBackendError("get_current_session", err))
	}

	switch {
	case session == nil:
		_ = g.machine.to(PhaseDashboard, "", nil)
	case session.Status == domain.SessionCompleted:
		g.snap.Reset(*session)
		_ = g.machine.to(PhaseCompleted, session.ID, nil)
	default:
		if session.Status == domain.SessionPaused {
			if err := g.backend.ResumeSession(ctx, session.ID); err != nil {
				return g.fail(domain.NewBackendError("resume_session", err))
			}
			session.Status = domain.SessionActive
		}
		g.snap.Reset(*session)
		if err := g.enterRound(ctx, session.ID); err != nil {
			return g.fail(err)
		}
	}

	phase, sessionID, _ := g.machine.state()
	g.log.Info("session_resolved",
		zap.String("user_id", userID),
		zap.String("phase", string(phase)),
		zap.String("session_id", sessionID))
	g.notify(EventState)
	return g.View(), nil
}

// StartNewGame creates a session and enters its first round. A creation
// failure is reported, never retried: the game stays on the dashboard or the
// error screen, and Play Again from Completed falls back to the dashboard.
func (g *Game) StartNewGame(ctx context.Context, userID string, maxRounds int) (View, error) {
	if userID == "" {
		return g.View(), domain.ErrNoUser
	}
	if maxRounds <= 0 {
		maxRounds = g.settings.MaxRounds
	}
	if !g.begin() {
		return g.View(), domain.ErrBusy
	}
	defer g.end()
	if !g.machine.in(PhaseDashboard, PhaseCompleted, PhaseError) {
		return g.View(), domain.ErrInvalidTransition
	}

	g.resetPlay(userID)
	sessionID, err := g.backend.CreateSession(ctx, userID, maxRounds)
	if err != nil {
		err = domain.NewBackendError("create_session", err)
		switch {
		case g.machine.in(PhaseCompleted):
			g.snap.Clear()
			_ = g.machine.to(PhaseDashboard, "", nil)
		case g.machine.in(PhaseError):
			_ = g.machine.to(PhaseError, "", err)
		}
		g.setError(err)
		g.log.Warn("create_session_failed", zap.String("user_id", userID), zap.Error(err))
		g.notify(EventState)
		return g.View(), err
	}

	session, err := g.backend.GetCurrentSession(ctx, userID)
	if err != nil {
		return g.fail(domain.NewBackendError("get_current_session", err))
	}
	if session == nil || session.ID != sessionID {
		g.log.Warn("created_session_not_current", zap.String("session_id", sessionID))
		session = &domain.GameSession{
			ID:        sessionID,
			UserID:    userID,
			Status:    domain.SessionActive,
			MaxRounds: maxRounds,
			StartedAt: g.clock.Now(),
		}
	}
	g.snap.Reset(*session)
	if err := g.enterRound(ctx, sessionID); err != nil {
		return g.fail(err)
	}

	g.log.Info("session_started",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("max_rounds", maxRounds))
	g.notify(EventState)
	return g.View(), nil
}

// BackToDashboard is the explicit user action that leaves Completed or Error.
func (g *Game) BackToDashboard() (View, error) {
	if !g.machine.in(PhaseCompleted, PhaseError, PhaseDashboard) {
		return g.View(), domain.ErrInvalidTransition
	}
	g.resetPlay("")
	g.snap.Clear()
	if err := g.machine.to(PhaseDashboard, "", nil); err != nil {
		return g.View(), err
	}
	g.notify(EventState)
	return g.View(), nil
}

// Pause abandons the screen mid-game: the timer is cancelled and the backend
// marks the session paused so a later Resolve resumes it.
func (g *Game) Pause(ctx context.Context) (View, error) {
	if !g.begin() {
		return g.View(), domain.ErrBusy
	}
	defer g.end()
	if !g.machine.in(PhasePlaying, PhaseRoundResult) {
		return g.View(), domain.ErrInvalidTransition
	}

	_, sessionID, _ := g.machine.state()
	g.resetPlay("")
	g.snap.Clear()

	var pauseErr error
	if err := g.backend.PauseSession(ctx, sessionID); err != nil {
		pauseErr = domain.NewBackendError("pause_session", err)
		g.log.Warn("pause_session_failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	_ = g.machine.to(PhaseDashboard, "", nil)
	if pauseErr != nil {
		g.setError(pauseErr)
	}
	g.notify(EventState)
	return g.View(), pauseErr
}

// Finish ends the session before its last round. The countdown stops first so
// no auto-submit races the completion; a backend failure moves to Error and a
// later Resolve picks the session up again.
func (g *Game) Finish(ctx context.Context) (View, error) {
	if !g.begin() {
		return g.View(), domain.ErrBusy
	}
	defer g.end()
	if !g.machine.in(PhasePlaying, PhaseRoundResult) {
		return g.View(), domain.ErrInvalidTransition
	}
	if r, ok := g.snap.Current(); ok && r.Status == RoundSubmitting {
		return g.View(), domain.ErrBusy
	}

	_, sessionID, _ := g.machine.state()
	g.resetPlay("")
	if err := g.backend.CompleteSession(ctx, sessionID); err != nil {
		return g.fail(domain.NewBackendError("complete_session", err))
	}
	g.snap.SetStatus(domain.SessionCompleted)
	if err := g.machine.to(PhaseCompleted, sessionID, nil); err != nil {
		return g.View(), err
	}
	g.log.Info("session_finished_early", zap.String("session_id", sessionID))
	g.notify(EventState)
	return g.View(), nil
}

// enterRound fetches the next round, arms its timer and moves to Playing.
func (g *Game) enterRound(ctx context.Context, sessionID string) error {
	payload, err := g.coord.NextRound(ctx, sessionID, "")
	if err != nil {
		return err
	}
	g.armTimer(sessionID, payload.RoundNumber)
	if err := g.machine.to(PhasePlaying, sessionID, nil); err != nil {
		g.cancelTimer()
		return err
	}
	g.log.Debug("round_started",
		zap.String("session_id", sessionID),
		zap.Int("round", payload.RoundNumber),
		zap.String("round_type", payload.RoundType))
	return nil
}

// fail moves to Error with err shown verbatim.
func (g *Game) fail(err error) (View, error) {
	g.cancelTimer()
	_, sessionID, _ := g.machine.state()
	_ = g.machine.to(PhaseError, sessionID, err)
	g.log.Warn("game_error", zap.String("session_id", sessionID), zap.Error(err))
	g.notify(EventState)
	return g.View(), err
}
