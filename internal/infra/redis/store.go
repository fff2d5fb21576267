package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-game/internal/domain"
)

// Store is a Redis implementation of scoring.Store.
// Layout:
//
//	quiz:session:{id}            JSON session
//	quiz:session:{id}:rounds     HASH round_number -> JSON round
//	quiz:user:{userID}:sessions  ZSET session id scored by creation sequence
//	quiz:leaderboard             ZSET completed session id scored by total score
//	quiz:session:seq             creation counter
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a store whose session and round keys expire after ttl; 0 keeps them forever.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	seq, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("session seq: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, s.ttl)
		pipe.ZAdd(ctx, userKey(session.UserID), redis.Z{Score: float64(seq), Member: session.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session domain.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status == domain.SessionCompleted {
		err := s.client.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(session.TotalScore), Member: session.ID}).Err()
		if err != nil {
			return fmt.Errorf("leaderboard: %w", err)
		}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("get session: %w", err)
	}
	var session domain.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.GameSession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]domain.GameSession, error) {
	ids, err := s.client.ZRevRange(ctx, userKey(userID), 0, stop(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return s.loadSessions(ctx, ids)
}

func (s *Store) SaveRound(ctx context.Context, r domain.SessionRound) error {
	n, err := s.client.Exists(ctx, sessionKey(r.SessionID)).Result()
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	key := roundsKey(r.SessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(r.RoundNumber), data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

func (s *Store) ListRounds(ctx context.Context, sessionID string) ([]domain.SessionRound, error) {
	raw, err := s.client.HGetAll(ctx, roundsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	rounds := make([]domain.SessionRound, 0, len(raw))
	for _, data := range raw {
		var r domain.SessionRound
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal round: %w", err)
		}
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNumber < rounds[j].RoundNumber })
	return rounds, nil
}

func (s *Store) TopSessions(ctx context.Context, limit int) ([]domain.GameSession, error) {
	ids, err := s.client.ZRevRange(ctx, leaderboardKey, 0, stop(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return s.loadSessions(ctx, ids)
}

// loadSessions fetches ids in order, skipping sessions that have expired.
func (s *Store) loadSessions(ctx context.Context, ids []string) ([]domain.GameSession, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	out := make([]domain.GameSession, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var session domain.GameSession
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		out = append(out, session)
	}
	return out, nil
}

const (
	seqKey         = "quiz:session:seq"
	leaderboardKey = "quiz:leaderboard"
)

func sessionKey(id string) string { return "quiz:session:" + id }

func roundsKey(id string) string { return "quiz:session:" + id + ":rounds" }

func userKey(userID string) string { return "quiz:user:" + userID + ":sessions" }

func stop(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	return int64(limit - 1)
}
