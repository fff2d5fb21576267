package game

import "quiz-game/internal/domain"

// View is a read-only rendering of the game for the UI layer.
type View struct {
	Phase      Phase               `json:"phase"`
	SessionID  string              `json:"session_id,omitempty"`
	Session    *domain.GameSession `json:"session,omitempty"`
	Round      *RoundView          `json:"round,omitempty"`
	Selected   string              `json:"selected,omitempty"`
	Remaining  int                 `json:"remaining"`
	Submitting bool                `json:"submitting"`
	Result     *domain.RoundResult `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type RoundView struct {
	Number   int             `json:"round_number"`
	Type     string          `json:"round_type"`
	Question domain.Question `json:"question"`
	Status   RoundStatus     `json:"status"`
}
