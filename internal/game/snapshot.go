package game

import (
	"sync"

	"quiz-game/internal/domain"
)

// RoundStatus tracks a round through the exactly-once submission guard.
type RoundStatus string

const (
	RoundOpen       RoundStatus = "open"
	RoundSubmitting RoundStatus = "submitting"
	RoundSubmitted  RoundStatus = "submitted"
)

// RoundState is the core's record of one round.
// PendingAnswer is what was sent; nothing about scoring is known until Result arrives.
type RoundState struct {
	Payload       domain.RoundPayload
	Status        RoundStatus
	PendingAnswer string
	TimeTaken     int
	Result        *domain.RoundResult
}

// Snapshot is the single-owner, in-memory view of the session being played.
type Snapshot struct {
	mu      sync.RWMutex
	session *domain.GameSession
	rounds  []*RoundState
	current int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Reset installs session as the known session. Rounds are kept only when the id is unchanged.
func (s *Snapshot) Reset(session domain.GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.ID != session.ID {
		s.rounds = nil
		s.current = 0
	}
	s.session = &session
}

// Clear forgets the session; in-flight merges will be rejected as stale.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.rounds = nil
	s.current = 0
}

func (s *Snapshot) Session() (domain.GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.GameSession{}, false
	}
	return *s.session, true
}

func (s *Snapshot) SetStatus(status domain.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Status = status
	}
}

// OpenRound makes p the current round. Reopening the current open round replaces its payload;
// any older round is stale.
func (s *Snapshot) OpenRound(p domain.RoundPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || (p.SessionID != "" && p.SessionID != s.session.ID) {
		return domain.ErrStaleRound
	}
	if r := s.roundLocked(p.RoundNumber); r != nil {
		if r.Status != RoundOpen || p.RoundNumber != s.current {
			return domain.ErrStaleRound
		}
		r.Payload = p
		return nil
	}
	if p.RoundNumber <= s.lastNumberLocked() {
		return domain.ErrStaleRound
	}
	s.rounds = append(s.rounds, &RoundState{Payload: p, Status: RoundOpen})
	s.current = p.RoundNumber
	return nil
}

// Current returns a copy of the current round.
func (s *Snapshot) Current() (RoundState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.roundLocked(s.current)
	if r == nil {
		return RoundState{}, false
	}
	return *r, true
}

// Rounds returns copies of all known rounds in round order.
func (s *Snapshot) Rounds() []RoundState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoundState, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, *r)
	}
	return out
}

// beginSubmit flips the current round from open to submitting in one step.
func (s *Snapshot) beginSubmit(sessionID string, roundNumber int, answer string, timeTaken int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.currentLocked(sessionID, roundNumber)
	if err != nil {
		return err
	}
	if r.Status != RoundOpen {
		return domain.ErrDuplicateSubmit
	}
	r.Status = RoundSubmitting
	r.PendingAnswer = answer
	r.TimeTaken = timeTaken
	return nil
}

// abortSubmit reopens a round whose submission failed. It returns ErrStaleRound
// when the round is no longer the one that submission started on.
func (s *Snapshot) abortSubmit(sessionID string, roundNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.currentLocked(sessionID, roundNumber)
	if err != nil {
		return err
	}
	if r.Status != RoundSubmitting {
		return domain.ErrStaleRound
	}
	r.Status = RoundOpen
	r.PendingAnswer = ""
	r.TimeTaken = 0
	return nil
}

// merge applies the backend's result; its score fields replace whatever the snapshot held.
func (s *Snapshot) merge(sessionID string, roundNumber int, res domain.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.currentLocked(sessionID, roundNumber)
	if err != nil {
		return err
	}
	if r.Status != RoundSubmitting {
		return domain.ErrStaleRound
	}
	r.Status = RoundSubmitted
	r.Result = &res
	s.session.TotalScore = res.TotalScore
	s.session.RoundsCompleted = res.RoundsCompleted
	if res.SessionComplete {
		s.session.Status = domain.SessionCompleted
	}
	return nil
}

func (s *Snapshot) currentLocked(sessionID string, roundNumber int) (*RoundState, error) {
	if s.session == nil || s.session.ID != sessionID || s.current != roundNumber {
		return nil, domain.ErrStaleRound
	}
	r := s.roundLocked(roundNumber)
	if r == nil {
		return nil, domain.ErrStaleRound
	}
	return r, nil
}

func (s *Snapshot) roundLocked(number int) *RoundState {
	if number == 0 {
		return nil
	}
	for _, r := range s.rounds {
		if r.Payload.RoundNumber == number {
			return r
		}
	}
	return nil
}

func (s *Snapshot) lastNumberLocked() int {
	if len(s.rounds) == 0 {
		return 0
	}
	return s.rounds[len(s.rounds)-1].Payload.RoundNumber
}
