package game

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"quiz-game/internal/domain"
)

// Coordinator submits answers exactly once per round and merges the
// backend's result into the snapshot.
type Coordinator struct {
	backend Backend
	snap    *Snapshot
	budget  int
	log     *zap.Logger
	onBegin func(roundNumber int)
}

func NewCoordinator(backend Backend, snap *Snapshot, budget int, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{backend: backend, snap: snap, budget: budget, log: logger}
}

// Submit sends answer for roundNumber. The round is marked submitting before the
// backend call starts, so a racing second call returns ErrDuplicateSubmit
// without reaching the backend. On failure the round is reopened for an explicit retry.
func (c *Coordinator) Submit(ctx context.Context, sessionID string, roundNumber int, answer string, timeTaken int) (domain.RoundResult, error) {
	timeTaken = clampSeconds(timeTaken, c.budget)
	if err := c.snap.beginSubmit(sessionID, roundNumber, answer, timeTaken); err != nil {
		return domain.RoundResult{}, err
	}
	if c.onBegin != nil {
		c.onBegin(roundNumber)
	}

	res, err := c.backend.SubmitAnswer(ctx, sessionID, roundNumber, answer, timeTaken)
	if err != nil {
		if staleErr := c.snap.abortSubmit(sessionID, roundNumber); staleErr != nil {
			c.log.Warn("submit_answer_discarded",
				zap.String("session_id", sessionID),
				zap.Int("round", roundNumber),
				zap.Error(err))
			return domain.RoundResult{}, staleErr
		}
		c.log.Warn("submit_answer_failed",
			zap.String("session_id", sessionID),
			zap.Int("round", roundNumber),
			zap.Error(err))
		return domain.RoundResult{}, domain.NewBackendError("submit_answer", err)
	}
	if res.RoundNumber == 0 {
		res.RoundNumber = roundNumber
	}

	if err := c.snap.merge(sessionID, roundNumber, res); err != nil {
		c.log.Warn("submit_answer_discarded",
			zap.String("session_id", sessionID),
			zap.Int("round", roundNumber),
			zap.Error(err))
		return domain.RoundResult{}, err
	}
	c.log.Info("submit_answer",
		zap.String("session_id", sessionID),
		zap.Int("round", roundNumber),
		zap.Bool("correct", res.IsCorrect),
		zap.Int("total_score", res.TotalScore),
		zap.Bool("session_complete", res.SessionComplete))
	return res, nil
}

// NextRound asks the backend for the next round and makes it current.
func (c *Coordinator) NextRound(ctx context.Context, sessionID, roundType string) (domain.RoundPayload, error) {
	payload, err := c.backend.StartRound(ctx, sessionID, roundType)
	if err != nil {
		return domain.RoundPayload{}, domain.NewBackendError("start_round", err)
	}
	if payload.SessionID == "" {
		payload.SessionID = sessionID
	}
	if err := c.snap.OpenRound(payload); err != nil {
		return domain.RoundPayload{}, err
	}
	return payload, nil
}

// ignorable reports submit outcomes that must not surface as failures:
// a second submit for the same round, or a result for a round the player has left.
func ignorable(err error) bool {
	return errors.Is(err, domain.ErrDuplicateSubmit) || errors.Is(err, domain.ErrStaleRound)
}
