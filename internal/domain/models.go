package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuizQuestionCount is the fixed number of questions per quiz.
const QuizQuestionCount = 10

// QuestionOptionCount is the fixed number of answer options per question.
const QuestionOptionCount = 8

// QuizStatus tells whether a quiz is open for play yet.
type QuizStatus string

const (
	QuizStatusActive   QuizStatus = "active"
	QuizStatusUpcoming QuizStatus = "upcoming"
)

// Quiz is the immutable quiz definition supplied by the catalog.
// Amounts are denominated in the currency's minor unit.
type Quiz struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Currency      string          `json:"currency"`
	StakeAmount   decimal.Decimal `json:"stakeAmount"`
	WinningAmount decimal.Decimal `json:"winningAmount"`
	TimeLimitSec  int             `json:"timeLimitSec"`
	Privacy       string          `json:"privacy"`
	Status        QuizStatus      `json:"status"`
	Questions     []QuizQuestion  `json:"questions"`
}

// QuizQuestion is an MCQ question with exactly 8 ordered options (A-H)
// and one correct option index. Immutable once published.
type QuizQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// AnswerResult records the outcome of one question within an attempt.
// The correct index is copied at record time, never re-derived later.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	SelectedIndex *int `json:"selectedIndex"` // nil only when the timer expired
	CorrectIndex  int  `json:"correctIndex"`
	Correct       bool `json:"correct"`
	TimeExpired   bool `json:"timeExpired"`
}

// PayoutStatus classifies the attempt outcome.
type PayoutStatus string

const (
	PayoutStatusWon        PayoutStatus = "won"
	PayoutStatusPartialWin PayoutStatus = "partial_win"
	PayoutStatusLost       PayoutStatus = "lost"
)

// PayoutResult is derived from the answer history at completion; it is
// never stored, only recomputed.
type PayoutResult struct {
	CorrectCount int             `json:"correctCount"`
	Percentage   int64           `json:"percentage"`
	Amount       decimal.Decimal `json:"amount"`
	Status       PayoutStatus    `json:"status"`
}

// FeeDistribution is the bookkeeping split of a stake between the
// community and platform ledgers. The two shares always sum exactly
// to the stake.
type FeeDistribution struct {
	CommunityShare decimal.Decimal `json:"communityShare"`
	PlatformShare  decimal.Decimal `json:"platformShare"`
}

// SessionState is the lifecycle state of a quiz attempt.
type SessionState string

const (
	StatePreGame        SessionState = "pre_game"
	StatePlaying        SessionState = "playing"
	StateQuestionResult SessionState = "question_result"
	StateCompleted      SessionState = "completed"
	StateAborted        SessionState = "aborted"
)

// Terminal reports whether the state ends the attempt.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// SessionSnapshot is a read-only view of an attempt for transports.
type SessionSnapshot struct {
	SessionID     string         `json:"sessionId"`
	QuizID        string         `json:"quizId"`
	PlayerID      string         `json:"playerId"`
	State         SessionState   `json:"state"`
	StakeDebited  bool           `json:"stakeDebited"`
	QuestionIndex int            `json:"questionIndex"`
	Answers       []AnswerResult `json:"answers"`
	StartedAt     time.Time      `json:"startedAt"`
}
