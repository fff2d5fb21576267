// Package stats derives results and history statistics from round records.
// Everything here is a pure function of its inputs and safe to recompute.
package stats

import "quiz-game/internal/domain"

// Options tune the scoring assumptions used by the summary.
type Options struct {
	PointsPerRound int
	PerfectSeconds int
}

// DefaultOptions mirrors the backend's 10 points per question and 30 second perfect threshold.
func DefaultOptions() Options {
	return Options{
		PointsPerRound: domain.DefaultPointsPerRound,
		PerfectSeconds: domain.DefaultPerfectSeconds,
	}
}

// Summarize builds the end-of-game view model for a session and its ordered rounds.
func Summarize(session domain.GameSession, rounds []domain.SessionRound, opts Options) domain.ResultsSummary {
	if opts.PointsPerRound <= 0 {
		opts.PointsPerRound = domain.DefaultPointsPerRound
	}
	if opts.PerfectSeconds <= 0 {
		opts.PerfectSeconds = domain.DefaultPerfectSeconds
	}

	completed, correct := counts(rounds)
	maxPossible := session.MaxRounds * opts.PointsPerRound
	ordered := make([]domain.SessionRound, len(rounds))
	copy(ordered, rounds)

	return domain.ResultsSummary{
		SessionID:       session.ID,
		TotalScore:      session.TotalScore,
		MaxPossible:     maxPossible,
		Accuracy:        Accuracy(rounds),
		AverageTime:     AverageTime(rounds),
		PerfectRounds:   PerfectRounds(rounds, opts.PerfectSeconds),
		CorrectCount:    correct,
		CompletedRounds: completed,
		Tier:            Tier(session.TotalScore, maxPossible),
		Categories:      CategoryBreakdown(rounds),
		Rounds:          ordered,
	}
}

// Accuracy is the percentage of completed rounds answered correctly, 0 without completed rounds.
func Accuracy(rounds []domain.SessionRound) float64 {
	completed, correct := counts(rounds)
	if completed == 0 {
		return 0
	}
	return float64(correct) / float64(completed) * 100
}

// AverageTime is the mean time_taken over completed rounds, 0 without completed rounds.
func AverageTime(rounds []domain.SessionRound) float64 {
	completed := 0
	total := 0
	for _, r := range rounds {
		if !r.Completed() {
			continue
		}
		completed++
		total += r.TimeTaken
	}
	if completed == 0 {
		return 0
	}
	return float64(total) / float64(completed)
}

// PerfectRounds counts completed, correct rounds answered within threshold seconds.
func PerfectRounds(rounds []domain.SessionRound, threshold int) int {
	n := 0
	for _, r := range rounds {
		if r.Completed() && r.IsCorrect && r.TimeTaken <= threshold {
			n++
		}
	}
	return n
}

// CategoryBreakdown groups rounds by round type in first-seen order.
func CategoryBreakdown(rounds []domain.SessionRound) []domain.CategoryStat {
	index := make(map[string]int)
	var out []domain.CategoryStat
	for _, r := range rounds {
		i, ok := index[r.RoundType]
		if !ok {
			i = len(out)
			index[r.RoundType] = i
			out = append(out, domain.CategoryStat{Category: r.RoundType})
		}
		out[i].Total++
		if r.IsCorrect {
			out[i].Correct++
		}
	}
	for i := range out {
		out[i].Percentage = float64(out[i].Correct) / float64(out[i].Total) * 100
	}
	return out
}

// Tier bands score against maxPossible. Thresholds are inclusive lower bounds
// compared in integer arithmetic so 90/100 is Excellent exactly.
func Tier(score, maxPossible int) domain.PerformanceTier {
	if maxPossible <= 0 {
		return domain.TierNeedsImprovement
	}
	scaled := score * 100
	switch {
	case scaled >= 90*maxPossible:
		return domain.TierExcellent
	case scaled >= 75*maxPossible:
		return domain.TierGood
	case scaled >= 60*maxPossible:
		return domain.TierFair
	default:
		return domain.TierNeedsImprovement
	}
}

// SummarizeHistory aggregates a user's sessions and the rounds of those sessions.
// Average and best score only consider completed sessions.
func SummarizeHistory(sessions []domain.GameSession, rounds []domain.SessionRound) domain.GameStats {
	var out domain.GameStats
	out.TotalSessions = len(sessions)
	for _, s := range sessions {
		if s.Status != domain.SessionCompleted {
			continue
		}
		out.CompletedSessions++
		out.TotalScore += s.TotalScore
		if s.TotalScore > out.BestScore {
			out.BestScore = s.TotalScore
		}
	}
	if out.CompletedSessions > 0 {
		out.AverageScore = float64(out.TotalScore) / float64(out.CompletedSessions)
	}
	out.TotalRounds, _ = counts(rounds)
	out.AccuracyRate = Accuracy(rounds)
	return out
}

func counts(rounds []domain.SessionRound) (completed, correct int) {
	for _, r := range rounds {
		if !r.Completed() {
			continue
		}
		completed++
		if r.IsCorrect {
			correct++
		}
	}
	return completed, correct
}
