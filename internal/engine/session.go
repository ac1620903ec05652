package engine

import (
	"sync"
	"time"

	"mobigate-quiz-engine/internal/domain"
)

// Event kinds published on a session's output stream.
const (
	EventQuestion  = "question"
	EventTick      = "tick"
	EventResult    = "result"
	EventCompleted = "completed"
	EventAborted   = "aborted"
	EventPayout    = "payout"
)

// Event is a state-transition notification for the presentation layer.
type Event struct {
	Kind          string               `json:"kind"`
	QuestionIndex int                  `json:"questionIndex"`
	TimeLeft      int                  `json:"timeLeft,omitempty"`
	Result        *domain.AnswerResult `json:"result,omitempty"`
	Payout        *domain.PayoutResult `json:"payout,omitempty"`
}

// Session runs a single player through one staked quiz attempt.
//
// All mutations are serialized through the session mutex, so the two
// racing question-enders (ConfirmAnswer and the countdown expiry) can
// never both record a result for the same question: whichever acquires
// the lock first wins and the loser becomes a no-op.
type Session struct {
	id       string
	quiz     domain.Quiz
	playerID string

	countdown   Countdown
	schedule    Scheduler
	revealDelay time.Duration
	now         func() time.Time
	onTerminal  func(state domain.SessionState)

	mu            sync.Mutex
	state         domain.SessionState
	index         int
	pending       *int
	answers       []domain.AnswerResult
	stakeDebited  bool
	settled       bool
	startedAt     time.Time
	cancelAdvance func()
	subscribers   map[chan Event]struct{}
}

func newSession(id string, quiz domain.Quiz, playerID string, c sessionConfig) *Session {
	return &Session{
		id:          id,
		quiz:        quiz,
		playerID:    playerID,
		countdown:   c.countdown,
		schedule:    c.schedule,
		revealDelay: c.revealDelay,
		now:         c.now,
		onTerminal:  c.onTerminal,
		state:       domain.StatePreGame,
		subscribers: make(map[chan Event]struct{}),
	}
}

type sessionConfig struct {
	countdown   Countdown
	schedule    Scheduler
	revealDelay time.Duration
	now         func() time.Time
	onTerminal  func(state domain.SessionState)
}

// ID returns the attempt identifier.
func (s *Session) ID() string { return s.id }

// PlayerID returns the owning player.
func (s *Session) PlayerID() string { return s.playerID }

// Quiz returns the immutable quiz definition for this attempt.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// begin transitions PreGame -> Playing after the stake debit succeeded
// and starts the first question's countdown. Called once by the service.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePreGame {
		return
	}
	s.stakeDebited = true
	s.startedAt = s.now()
	s.state = domain.StatePlaying
	s.startQuestionLocked()
}

// startQuestionLocked announces the current question and arms the clock.
func (s *Session) startQuestionLocked() {
	epoch := s.index
	s.broadcastLocked(Event{
		Kind:          EventQuestion,
		QuestionIndex: epoch,
		TimeLeft:      s.quiz.TimeLimitSec,
	})
	s.countdown.Start(s.quiz.TimeLimitSec,
		func(remaining int) { s.tick(epoch, remaining) },
		func() { s.OnTimerExpired(epoch) },
	)
}

func (s *Session) tick(questionIndex, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying || s.index != questionIndex {
		return
	}
	s.broadcastLocked(Event{
		Kind:          EventTick,
		QuestionIndex: questionIndex,
		TimeLeft:      remaining,
	})
}

// SelectAnswer records a pending selection for the current question.
// Selecting does not score: scoring happens on confirm or on expiry,
// whichever comes first, so a slow confirm cannot outrun the timer.
// Calls outside Playing are ignored.
func (s *Session) SelectAnswer(index int) error {
	if index < 0 || index >= domain.QuestionOptionCount {
		return domain.ErrInvalidAnswerIndex
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying || len(s.answers) != s.index {
		return nil
	}
	s.pending = &index
	return nil
}

// ConfirmAnswer scores the pending selection for the current question.
// A confirm that loses the race against the expiry tick is a no-op.
func (s *Session) ConfirmAnswer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying || len(s.answers) != s.index {
		return nil
	}
	if s.pending == nil {
		return domain.ErrNoPendingSelection
	}

	selected := *s.pending
	s.recordResultLocked(&selected, false)
	return nil
}

// OnTimerExpired is fired by the countdown when the question clock hits
// zero. It is idempotent: if a confirm already recorded a result for
// questionIndex, or the session has moved on, the call is a no-op.
func (s *Session) OnTimerExpired(questionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying || s.index != questionIndex || len(s.answers) != s.index {
		return
	}
	s.recordResultLocked(nil, true)
}

// recordResultLocked appends the question result exactly once and
// schedules the reveal-delayed advance.
func (s *Session) recordResultLocked(selected *int, expired bool) {
	question := s.quiz.Questions[s.index]
	result := domain.AnswerResult{
		QuestionIndex: s.index,
		SelectedIndex: selected,
		CorrectIndex:  question.CorrectIndex,
		Correct:       selected != nil && *selected == question.CorrectIndex,
		TimeExpired:   expired,
	}
	s.answers = append(s.answers, result)
	s.pending = nil
	s.state = domain.StateQuestionResult
	s.countdown.Stop()

	s.broadcastLocked(Event{
		Kind:          EventResult,
		QuestionIndex: result.QuestionIndex,
		Result:        &result,
	})

	epoch := s.index
	s.cancelAdvance = s.schedule(s.revealDelay, func() { s.advance(epoch) })
}

// advance moves past the reveal pause: either on to the next question
// or, after the final question, into Completed.
func (s *Session) advance(questionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateQuestionResult || s.index != questionIndex {
		return
	}
	s.cancelAdvance = nil

	if s.index < domain.QuizQuestionCount-1 {
		s.index++
		s.state = domain.StatePlaying
		s.startQuestionLocked()
		return
	}

	s.state = domain.StateCompleted
	s.broadcastLocked(Event{Kind: EventCompleted, QuestionIndex: s.index})
	if s.onTerminal != nil {
		s.onTerminal(domain.StateCompleted)
	}
}

// Abort forfeits the attempt. The stake stays debited and no credit is
// ever issued for an aborted session. Valid from Playing and
// QuestionResult; calls in any other state are ignored.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying && s.state != domain.StateQuestionResult {
		return
	}
	s.countdown.Stop()
	if s.cancelAdvance != nil {
		s.cancelAdvance()
		s.cancelAdvance = nil
	}
	s.pending = nil
	s.state = domain.StateAborted
	s.broadcastLocked(Event{Kind: EventAborted, QuestionIndex: s.index})
	if s.onTerminal != nil {
		s.onTerminal(domain.StateAborted)
	}
}

// settle computes the payout from the answer history, exactly once.
// The second and every later call reports ErrAlreadyCompleted so a
// payout can never be issued twice for one attempt.
func (s *Session) settle() (domain.PayoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateCompleted {
		return domain.PayoutResult{}, domain.ErrSessionNotCompleted
	}
	if s.settled {
		return domain.PayoutResult{}, domain.ErrAlreadyCompleted
	}
	s.settled = true
	return ComputePayout(CountCorrect(s.answers), s.quiz.WinningAmount), nil
}

// announcePayout publishes the final result on the event stream.
func (s *Session) announcePayout(res domain.PayoutResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(Event{
		Kind:          EventPayout,
		QuestionIndex: s.index,
		Payout:        &res,
	})
}

// Snapshot returns a read-only view of the attempt.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]domain.AnswerResult, len(s.answers))
	copy(answers, s.answers)

	return domain.SessionSnapshot{
		SessionID:     s.id,
		QuizID:        s.quiz.ID,
		PlayerID:      s.playerID,
		State:         s.state,
		StakeDebited:  s.stakeDebited,
		QuestionIndex: s.index,
		Answers:       answers,
		StartedAt:     s.startedAt,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving session events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// A late subscriber still needs to know which question is live.
	// TimeLeft is the full limit; the next tick corrects the display.
	if s.state == domain.StatePlaying && len(s.answers) == s.index {
		ch <- Event{Kind: EventQuestion, QuestionIndex: s.index, TimeLeft: s.quiz.TimeLimitSec}
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(e Event) {
	for ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			// Drop the oldest buffered event so a slow consumer
			// cannot block the state machine.
			select {
			case <-ch:
			default:
			}
			ch <- e
		}
	}
}
