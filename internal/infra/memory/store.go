package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-game/internal/domain"
)

// Store is an in-memory implementation of scoring.Store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.GameSession
	order    []string // insertion order, oldest first
	rounds   map[string]map[int]domain.SessionRound
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.GameSession),
		rounds:   make(map[string]map[int]domain.SessionRound),
	}
}

func (s *Store) CreateSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append(s.order, session.ID)
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) UpdateSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListSessions(_ context.Context, userID string, limit int) ([]domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GameSession
	for i := len(s.order) - 1; i >= 0; i-- {
		session := s.sessions[s.order[i]]
		if session.UserID != userID {
			continue
		}
		out = append(out, session)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SaveRound(_ context.Context, r domain.SessionRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[r.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	byNumber, ok := s.rounds[r.SessionID]
	if !ok {
		byNumber = make(map[int]domain.SessionRound)
		s.rounds[r.SessionID] = byNumber
	}
	byNumber[r.RoundNumber] = r
	return nil
}

func (s *Store) ListRounds(_ context.Context, sessionID string) ([]domain.SessionRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionRound, 0, len(s.rounds[sessionID]))
	for _, r := range s.rounds[sessionID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (s *Store) TopSessions(_ context.Context, limit int) ([]domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GameSession
	for _, session := range s.sessions {
		if session.Status == domain.SessionCompleted {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
