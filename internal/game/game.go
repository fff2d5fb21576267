// Package game is the client-side orchestration core of a quiz session:
// phase resolution, the per-round countdown, exactly-once submission and
// results aggregation. One Game is owned by one player tab.
package game

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"quiz-game/internal/domain"
	"quiz-game/internal/stats"
)

// Settings are the fixed parameters of a game.
type Settings struct {
	MaxRounds      int
	RoundSeconds   int
	PointsPerRound int
	PerfectSeconds int
	HistoryLimit   int
	// StatsConcurrency bounds parallel round fetches when building history stats.
	StatsConcurrency int
}

func DefaultSettings() Settings {
	return Settings{
		MaxRounds:        domain.DefaultMaxRounds,
		RoundSeconds:     domain.DefaultRoundSeconds,
		PointsPerRound:   domain.DefaultPointsPerRound,
		PerfectSeconds:   domain.DefaultPerfectSeconds,
		HistoryLimit:     10,
		StatsConcurrency: 4,
	}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.MaxRounds <= 0 {
		s.MaxRounds = d.MaxRounds
	}
	if s.RoundSeconds <= 0 {
		s.RoundSeconds = d.RoundSeconds
	}
	if s.PointsPerRound <= 0 {
		s.PointsPerRound = d.PointsPerRound
	}
	if s.PerfectSeconds <= 0 {
		s.PerfectSeconds = d.PerfectSeconds
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = d.HistoryLimit
	}
	if s.StatsConcurrency <= 0 {
		s.StatsConcurrency = d.StatsConcurrency
	}
	return s
}

// EventKind distinguishes observer notifications.
type EventKind string

const (
	EventState EventKind = "state"
	EventTick  EventKind = "tick"
)

// Event is delivered to the observer after every state change and timer tick.
type Event struct {
	Kind EventKind
	View View
}

// Option configures a Game.
type Option func(*Game)

func WithClock(c clockwork.Clock) Option { return func(g *Game) { g.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(g *Game) { g.log = l } }

func WithSettings(s Settings) Option { return func(g *Game) { g.settings = s } }

// WithObserver registers fn for state and tick events. It is called outside
// the game's locks and must not block.
func WithObserver(fn func(Event)) Option { return func(g *Game) { g.observer = fn } }

// Game drives one player's session against the scoring backend.
type Game struct {
	backend  Backend
	clock    clockwork.Clock
	log      *zap.Logger
	settings Settings
	observer func(Event)

	machine *machine
	snap    *Snapshot
	coord   *Coordinator

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	busy       bool
	userID     string
	timer      *RoundTimer
	selected   string
	lastResult *domain.RoundResult
	lastErr    error
}

// New returns a Game in the Loading phase; call Resolve to enter it.
func New(backend Backend, opts ...Option) *Game {
	g := &Game{
		backend:  backend,
		clock:    clockwork.NewRealClock(),
		settings: DefaultSettings(),
		machine:  newMachine(),
		snap:     NewSnapshot(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	g.settings = g.settings.normalized()
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.coord = NewCoordinator(backend, g.snap, g.settings.RoundSeconds, g.log)
	g.coord.onBegin = func(int) { g.notify(EventState) }
	return g
}

// Close cancels the running countdown and any auto-submit still in flight.
func (g *Game) Close() {
	g.cancelTimer()
	g.cancel()
}

// Snapshot exposes the session snapshot for read access.
func (g *Game) Snapshot() *Snapshot { return g.snap }

// Select records the answer currently chosen for the open round.
func (g *Game) Select(answer string) (View, error) {
	if !g.machine.in(PhasePlaying) {
		return g.View(), domain.ErrInvalidTransition
	}
	round, ok := g.snap.Current()
	if !ok || round.Status != RoundOpen {
		return g.View(), domain.ErrDuplicateSubmit
	}
	g.mu.Lock()
	g.selected = answer
	g.mu.Unlock()
	g.notify(EventState)
	return g.View(), nil
}

// Submit is the manual submit of the selected answer. A second call for the
// same round, or a call racing the timer's auto-submit, is ignored.
func (g *Game) Submit(ctx context.Context) (View, error) {
	if !g.machine.in(PhasePlaying) {
		return g.View(), domain.ErrInvalidTransition
	}
	_, sessionID, _ := g.machine.state()
	round, ok := g.snap.Current()
	if !ok {
		return g.View(), domain.ErrStaleRound
	}
	g.mu.Lock()
	answer := g.selected
	elapsed := g.settings.RoundSeconds
	if g.timer != nil {
		elapsed = g.timer.Elapsed()
	}
	g.mu.Unlock()

	err := g.submitRound(ctx, sessionID, round.Payload.RoundNumber, answer, elapsed)
	return g.View(), err
}

// Advance leaves RoundResult: to Completed after the final round, otherwise
// into the next round with a fresh timer.
func (g *Game) Advance(ctx context.Context) (View, error) {
	if !g.begin() {
		return g.View(), domain.ErrBusy
	}
	defer g.end()
	if !g.machine.in(PhaseRoundResult) {
		return g.View(), domain.ErrInvalidTransition
	}
	_, sessionID, _ := g.machine.state()

	g.mu.Lock()
	last := g.lastResult
	g.mu.Unlock()

	if last != nil && last.SessionComplete {
		g.snap.SetStatus(domain.SessionCompleted)
		if err := g.machine.to(PhaseCompleted, sessionID, nil); err != nil {
			return g.View(), err
		}
		g.log.Info("session_completed", zap.String("session_id", sessionID), zap.Int("total_score", last.TotalScore))
		g.notify(EventState)
		return g.View(), nil
	}

	g.mu.Lock()
	g.selected = ""
	g.lastResult = nil
	g.lastErr = nil
	g.mu.Unlock()
	if err := g.enterRound(ctx, sessionID); err != nil {
		// the previous result stays on screen; Advance can be retried
		g.mu.Lock()
		g.lastResult = last
		g.mu.Unlock()
		g.setError(err)
		g.notify(EventState)
		return g.View(), err
	}
	g.notify(EventState)
	return g.View(), nil
}

// Results fetches the round history of the completed session and summarizes it.
func (g *Game) Results(ctx context.Context) (domain.ResultsSummary, error) {
	if !g.machine.in(PhaseCompleted) {
		return domain.ResultsSummary{}, domain.ErrInvalidTransition
	}
	session, ok := g.snap.Session()
	if !ok {
		return domain.ResultsSummary{}, domain.ErrSessionNotFound
	}
	rounds, err := g.backend.GetSessionRounds(ctx, session.ID)
	if err != nil {
		_, err = g.fail(domain.NewBackendError("get_session_rounds", err))
		return domain.ResultsSummary{}, err
	}
	return stats.Summarize(session, rounds, g.statsOptions()), nil
}

// Leaderboard passes through the backend's top completed sessions.
func (g *Game) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = g.settings.HistoryLimit
	}
	entries, err := g.backend.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, domain.NewBackendError("get_leaderboard", err)
	}
	return entries, nil
}

// View renders the current state for the UI.
func (g *Game) View() View {
	phase, sessionID, phaseErr := g.machine.state()
	v := View{Phase: phase, SessionID: sessionID}
	if s, ok := g.snap.Session(); ok {
		v.Session = &s
	}
	if phase == PhasePlaying || phase == PhaseRoundResult {
		if r, ok := g.snap.Current(); ok {
			v.Round = &RoundView{
				Number:   r.Payload.RoundNumber,
				Type:     r.Payload.RoundType,
				Question: r.Payload.Question,
				Status:   r.Status,
			}
			v.Submitting = r.Status == RoundSubmitting
		}
	}

	g.mu.Lock()
	v.Selected = g.selected
	if g.timer != nil && phase == PhasePlaying {
		v.Remaining = g.timer.Remaining()
	}
	if phase == PhaseRoundResult && g.lastResult != nil {
		res := *g.lastResult
		v.Result = &res
	}
	err := g.lastErr
	g.mu.Unlock()

	if phase == PhaseError && phaseErr != nil {
		err = phaseErr
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

func (g *Game) submitRound(ctx context.Context, sessionID string, roundNumber int, answer string, timeTaken int) error {
	res, err := g.coord.Submit(ctx, sessionID, roundNumber, answer, timeTaken)
	if ignorable(err) {
		g.log.Debug("submit_ignored",
			zap.String("session_id", sessionID),
			zap.Int("round", roundNumber),
			zap.String("reason", err.Error()))
		return nil
	}
	if err != nil {
		g.setError(err)
		g.notify(EventState)
		return err
	}

	g.mu.Lock()
	if g.timer != nil {
		g.timer.Cancel()
	}
	g.lastResult = &res
	g.lastErr = nil
	g.selected = ""
	g.mu.Unlock()

	if err := g.machine.to(PhaseRoundResult, sessionID, nil); err != nil {
		g.log.Warn("round_result_transition_rejected", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	g.notify(EventState)
	return nil
}

// armTimer replaces any countdown with a fresh one bound to roundNumber.
func (g *Game) armTimer(sessionID string, roundNumber int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Cancel()
	}
	g.selected = ""
	g.lastResult = nil
	t := NewRoundTimer(g.clock, g.settings.RoundSeconds,
		func(int) { g.notify(EventTick) },
		func() { g.expire(sessionID, roundNumber) })
	g.timer = t
	t.Start()
}

// expire auto-submits whatever is selected, possibly nothing.
func (g *Game) expire(sessionID string, roundNumber int) {
	g.mu.Lock()
	answer := g.selected
	g.mu.Unlock()
	g.log.Info("round_timer_expired", zap.String("session_id", sessionID), zap.Int("round", roundNumber))
	if err := g.submitRound(g.ctx, sessionID, roundNumber, answer, g.settings.RoundSeconds); err != nil {
		g.log.Warn("auto_submit_failed", zap.String("session_id", sessionID), zap.Int("round", roundNumber), zap.Error(err))
	}
}

func (g *Game) cancelTimer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Cancel()
		g.timer = nil
	}
}

// resetPlay drops per-round state; userID is kept when empty.
func (g *Game) resetPlay(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Cancel()
		g.timer = nil
	}
	if userID != "" {
		g.userID = userID
	}
	g.selected = ""
	g.lastResult = nil
	g.lastErr = nil
}

func (g *Game) setError(err error) {
	g.mu.Lock()
	g.lastErr = err
	g.mu.Unlock()
}

func (g *Game) user() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userID
}

func (g *Game) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

func (g *Game) end() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

func (g *Game) notify(kind EventKind) {
	if g.observer == nil {
		return
	}
	g.observer(Event{Kind: kind, View: g.View()})
}

func (g *Game) statsOptions() stats.Options {
	return stats.Options{
		PointsPerRound: g.settings.PointsPerRound,
		PerfectSeconds: g.settings.PerfectSeconds,
	}
}
