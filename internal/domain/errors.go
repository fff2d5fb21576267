package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown to the backend.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrSessionNotActive is returned when play is attempted on a paused or completed session.
	ErrSessionNotActive = errors.New("game session is not active")
	// ErrRoundNotFound indicates the submitted round has not been started.
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundOutOfOrder indicates a submission for a round other than rounds_completed+1.
	ErrRoundOutOfOrder = errors.New("round is not the next round of the session")
	// ErrRoundAlreadySubmitted indicates the round already has a recorded answer.
	ErrRoundAlreadySubmitted = errors.New("round already submitted")
	// ErrNoRoundsLeft is returned when a round is requested for a full session.
	ErrNoRoundsLeft = errors.New("all rounds of the session have been played")
	// ErrQuestionBankNotFound indicates a category has no question bank.
	ErrQuestionBankNotFound = errors.New("question bank not found")
	// ErrNoQuestions indicates a category ran out of unused questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidMaxRounds rejects sessions without rounds.
	ErrInvalidMaxRounds = errors.New("max rounds must be positive")

	// ErrStaleRound marks a mutation aimed at a round that is no longer current.
	ErrStaleRound = errors.New("round is no longer current")
	// ErrDuplicateSubmit is returned when a round is already submitting or submitted.
	ErrDuplicateSubmit = errors.New("round already submitting or submitted")
	// ErrInvalidTransition is returned for an operation not allowed in the current phase.
	ErrInvalidTransition = errors.New("operation not allowed in current phase")
	// ErrBusy is returned while another phase-changing operation is running.
	ErrBusy = errors.New("another game operation is in progress")
	// ErrNoUser is returned when an entry point is called without a user id.
	ErrNoUser = errors.New("user id required")
)

// BackendError wraps a failure of a scoring backend operation.
// Its message is the raw failure reason so it can be shown verbatim.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return e.Err.Error() }

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err for op; nil stays nil and existing BackendErrors are kept.
func NewBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
