package domain

import "errors"

var (
	// ErrInsufficientBalance is returned when the wallet balance cannot cover the stake.
	ErrInsufficientBalance = errors.New("insufficient balance for stake")
	// ErrInvalidQuizDefinition indicates the catalog returned malformed quiz content.
	ErrInvalidQuizDefinition = errors.New("invalid quiz definition")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotPlayable is returned when a session is opened on an upcoming quiz.
	ErrQuizNotPlayable = errors.New("quiz is not open for play")
	// ErrSessionNotFound is returned when an operation names an unknown attempt.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrAttemptInProgress guards against a second concurrent attempt (and double debit).
	ErrAttemptInProgress = errors.New("attempt already in progress for player and quiz")
	// ErrAlreadyCompleted rejects a duplicate payout settlement.
	ErrAlreadyCompleted = errors.New("session already completed")
	// ErrSessionNotCompleted is returned when payout is requested before the final question.
	ErrSessionNotCompleted = errors.New("session has not completed")
	// ErrInvalidAnswerIndex rejects an option index outside [0,7].
	ErrInvalidAnswerIndex = errors.New("answer index out of range")
	// ErrNoPendingSelection is returned when confirm is called before select.
	ErrNoPendingSelection = errors.New("no answer selected")
	// ErrInsufficientFunds is the wallet gateway's debit refusal.
	ErrInsufficientFunds = errors.New("wallet reports insufficient funds")
	// ErrWalletUnavailable wraps wallet gateway I/O failures.
	ErrWalletUnavailable = errors.New("wallet gateway unavailable")
	// ErrPayoutSettlement marks a computed payout whose wallet credit failed.
	// The game result stands; the credit must be retried keyed on the session ID.
	ErrPayoutSettlement = errors.New("payout credit not settled")
)
