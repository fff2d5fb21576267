package stats

import (
	"math"
	"testing"
	"time"

	"quiz-game/internal/domain"
)

func TestAccuracySevenOfTen(t *testing.T) {
	rounds := make([]domain.SessionRound, 0, 10)
	for i := 1; i <= 10; i++ {
		rounds = append(rounds, completedRound(i, "budgeting", i <= 7, 20))
	}
	if got := Accuracy(rounds); got != 70 {
		t.Fatalf("expected accuracy 70, got %v", got)
	}
}

func TestAccuracyIgnoresUnsubmittedRounds(t *testing.T) {
	rounds := []domain.SessionRound{
		completedRound(1, "saving", true, 10),
		{RoundNumber: 2, RoundType: "saving"},
	}
	if got := Accuracy(rounds); got != 100 {
		t.Fatalf("expected accuracy 100, got %v", got)
	}
	if got := AverageTime(rounds); got != 10 {
		t.Fatalf("expected average time 10, got %v", got)
	}
}

func TestEmptyRoundsAreZero(t *testing.T) {
	if Accuracy(nil) != 0 || AverageTime(nil) != 0 || PerfectRounds(nil, 30) != 0 {
		t.Fatalf("expected zero stats for empty history")
	}
	if len(CategoryBreakdown(nil)) != 0 {
		t.Fatalf("expected empty breakdown")
	}
}

func TestPerfectRoundsBoundary(t *testing.T) {
	rounds := []domain.SessionRound{
		completedRound(1, "credit", true, 30),
		completedRound(2, "credit", true, 31),
		completedRound(3, "credit", false, 5),
	}
	if got := PerfectRounds(rounds, 30); got != 1 {
		t.Fatalf("expected 1 perfect round, got %d", got)
	}
}

func TestCategoryBreakdownKeepsFirstSeenOrder(t *testing.T) {
	rounds := []domain.SessionRound{
		completedRound(1, "budgeting", true, 10),
		completedRound(2, "budgeting", false, 10),
		completedRound(3, "investing", true, 10),
	}
	got := CategoryBreakdown(rounds)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %+v", got)
	}
	if got[0].Category != "budgeting" || got[0].Correct != 1 || got[0].Total != 2 {
		t.Fatalf("unexpected budgeting group %+v", got[0])
	}
	if got[1].Category != "investing" || got[1].Correct != 1 || got[1].Total != 1 {
		t.Fatalf("unexpected investing group %+v", got[1])
	}
	if got[0].Percentage != 50 || got[1].Percentage != 100 {
		t.Fatalf("unexpected percentages %v %v", got[0].Percentage, got[1].Percentage)
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score, max int
		want       domain.PerformanceTier
	}{
		{90, 100, domain.TierExcellent},
		{89, 100, domain.TierGood},
		{75, 100, domain.TierGood},
		{74, 100, domain.TierFair},
		{60, 100, domain.TierFair},
		{59, 100, domain.TierNeedsImprovement},
		{0, 0, domain.TierNeedsImprovement},
		{27, 30, domain.TierExcellent},
	}
	for _, tc := range cases {
		if got := Tier(tc.score, tc.max); got != tc.want {
			t.Fatalf("Tier(%d, %d) = %q, want %q", tc.score, tc.max, got, tc.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	session := domain.GameSession{ID: "s1", TotalScore: 20, MaxRounds: 3, Status: domain.SessionCompleted}
	rounds := []domain.SessionRound{
		completedRound(1, "budgeting", true, 12),
		completedRound(2, "investing", false, 60),
		completedRound(3, "budgeting", true, 40),
	}
	summary := Summarize(session, rounds, DefaultOptions())
	if summary.MaxPossible != 30 {
		t.Fatalf("expected max possible 30, got %d", summary.MaxPossible)
	}
	if math.Abs(summary.Accuracy-66.666) > 0.01 {
		t.Fatalf("unexpected accuracy %v", summary.Accuracy)
	}
	if summary.AverageTime != float64(112)/3 {
		t.Fatalf("unexpected average time %v", summary.AverageTime)
	}
	if summary.PerfectRounds != 1 || summary.CorrectCount != 2 || summary.CompletedRounds != 3 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.Tier != domain.TierFair {
		t.Fatalf("expected Fair, got %q", summary.Tier)
	}
	if len(summary.Rounds) != 3 || summary.Rounds[0].RoundNumber != 1 {
		t.Fatalf("expected ordered rounds, got %+v", summary.Rounds)
	}

	again := Summarize(session, rounds, DefaultOptions())
	if again.Accuracy != summary.Accuracy || again.Tier != summary.Tier {
		t.Fatalf("summary is not idempotent")
	}
}

func TestSummarizeHistory(t *testing.T) {
	sessions := []domain.GameSession{
		{ID: "a", Status: domain.SessionActive, TotalScore: 50},
		{ID: "b", Status: domain.SessionCompleted, TotalScore: 80},
		{ID: "c", Status: domain.SessionCompleted, TotalScore: 40},
	}
	rounds := []domain.SessionRound{
		completedRound(1, "saving", true, 10),
		completedRound(2, "saving", false, 10),
		completedRound(1, "credit", true, 10),
		completedRound(2, "credit", true, 10),
	}
	got := SummarizeHistory(sessions, rounds)
	if got.TotalSessions != 3 || got.CompletedSessions != 2 {
		t.Fatalf("unexpected session counts %+v", got)
	}
	if got.BestScore != 80 || got.TotalScore != 120 || got.AverageScore != 60 {
		t.Fatalf("unexpected scores %+v", got)
	}
	if got.TotalRounds != 4 || got.AccuracyRate != 75 {
		t.Fatalf("unexpected round stats %+v", got)
	}
}

func completedRound(n int, category string, correct bool, seconds int) domain.SessionRound {
	at := time.Unix(int64(n), 0)
	points := 0
	if correct {
		points = 10
	}
	return domain.SessionRound{
		RoundNumber:  n,
		RoundType:    category,
		IsCorrect:    correct,
		PointsEarned: points,
		TimeTaken:    seconds,
		CompletedAt:  &at,
	}
}
