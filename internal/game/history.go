package game

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quiz-game/internal/domain"
	"quiz-game/internal/stats"
)

// Stats aggregates the user's recent sessions. Round histories are fetched
// concurrently; any failure aborts the whole computation.
func (g *Game) Stats(ctx context.Context) (domain.GameStats, error) {
	userID := g.user()
	if userID == "" {
		return domain.GameStats{}, domain.ErrNoUser
	}
	sessions, err := g.backend.GetGameHistory(ctx, userID, g.settings.HistoryLimit)
	if err != nil {
		return domain.GameStats{}, domain.NewBackendError("get_game_history", err)
	}

	perSession := make([][]domain.SessionRound, len(sessions))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.settings.StatsConcurrency)
	for i, s := range sessions {
		i, id := i, s.ID
		eg.Go(func() error {
			rounds, err := g.backend.GetSessionRounds(egCtx, id)
			if err != nil {
				return domain.NewBackendError("get_session_rounds", err)
			}
			perSession[i] = rounds
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.GameStats{}, err
	}

	var all []domain.SessionRound
	for _, rounds := range perSession {
		all = append(all, rounds...)
	}
	return stats.SummarizeHistory(sessions, all), nil
}
