package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-game/internal/domain"
)

func TestStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := store.CreateSession(ctx, domain.GameSession{ID: id, UserID: "u1", Status: domain.SessionActive}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	_ = store.CreateSession(ctx, domain.GameSession{ID: "other", UserID: "u2"})

	latest, err := store.ListSessions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != "s3" || latest[1].ID != "s2" {
		t.Fatalf("expected newest first, got %+v", latest)
	}

	done := domain.GameSession{ID: "s1", UserID: "u1", Status: domain.SessionCompleted, TotalScore: 40}
	if err := store.UpdateSession(ctx, done); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateSession(ctx, domain.GameSession{ID: "nope"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	top, _ := store.TopSessions(ctx, 10)
	if len(top) != 1 || top[0].TotalScore != 40 {
		t.Fatalf("expected one completed session, got %+v", top)
	}
}

func TestStoreRoundsOrderedAndUpserted(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateSession(ctx, domain.GameSession{ID: "s1", UserID: "u1"})

	for _, n := range []int{2, 1, 3} {
		if err := store.SaveRound(ctx, domain.SessionRound{SessionID: "s1", RoundNumber: n}); err != nil {
			t.Fatalf("save %d: %v", n, err)
		}
	}
	now := time.Unix(5, 0)
	if err := store.SaveRound(ctx, domain.SessionRound{SessionID: "s1", RoundNumber: 2, CompletedAt: &now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rounds, _ := store.ListRounds(ctx, "s1")
	if len(rounds) != 3 || rounds[0].RoundNumber != 1 || rounds[2].RoundNumber != 3 {
		t.Fatalf("expected ordered rounds, got %+v", rounds)
	}
	if !rounds[1].Completed() {
		t.Fatalf("expected round 2 replaced")
	}
	if err := store.SaveRound(ctx, domain.SessionRound{SessionID: "ghost", RoundNumber: 1}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found for unknown session, got %v", err)
	}
}
