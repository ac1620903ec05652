package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mobigate-quiz-engine/internal/domain"
)

// Wallet is the gateway to the external ledger, the sole authority on
// fund movement. The engine never assumes a debit or credit succeeded
// without a positive acknowledgment.
type Wallet interface {
	Balance(ctx context.Context, playerID string) (decimal.Decimal, error)
	Debit(ctx context.Context, playerID string, amount decimal.Decimal, reason string) error
	Credit(ctx context.Context, playerID string, amount decimal.Decimal, reason string) error
}

// Catalog supplies immutable quiz definitions.
type Catalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRegistry guards against two concurrent attempts for the same
// player and quiz, which would double-debit the stake.
type AttemptRegistry interface {
	Acquire(playerID, quizID string) bool
	Release(playerID, quizID string)
}

// Config wires the service's collaborators. NewCountdown, Schedule and
// Now default to real clocks; tests inject deterministic ones.
type Config struct {
	Wallet       Wallet
	Catalog      Catalog
	Attempts     AttemptRegistry
	RevealDelay  time.Duration
	NewCountdown func() Countdown
	Schedule     Scheduler
	Now          func() time.Time
}

// Service owns the live quiz attempts of this process.
type Service struct {
	wallet       Wallet
	catalog      Catalog
	attempts     AttemptRegistry
	revealDelay  time.Duration
	newCountdown func() Countdown
	schedule     Scheduler
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(c Config) *Service {
	if c.NewCountdown == nil {
		c.NewCountdown = func() Countdown { return NewTickingCountdown() }
	}
	if c.Schedule == nil {
		c.Schedule = AfterFuncScheduler
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Service{
		wallet:       c.Wallet,
		catalog:      c.Catalog,
		attempts:     c.Attempts,
		revealDelay:  c.RevealDelay,
		newCountdown: c.NewCountdown,
		schedule:     c.Schedule,
		now:          c.Now,
		sessions:     make(map[string]*Session),
	}
}

// StartSession validates the quiz and the player's balance, debits the
// stake and opens a Playing session. This is the only point at which
// money leaves the player's wallet; the debit is non-refundable.
// Nothing is debited and no session exists if any precondition fails.
func (s *Service) StartSession(ctx context.Context, quizID, playerID string) (*Session, domain.FeeDistribution, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, domain.FeeDistribution{}, err
	}
	if err := ValidateQuiz(quiz); err != nil {
		return nil, domain.FeeDistribution{}, err
	}
	if quiz.Status != domain.QuizStatusActive {
		return nil, domain.FeeDistribution{}, domain.ErrQuizNotPlayable
	}

	if !s.attempts.Acquire(playerID, quizID) {
		return nil, domain.FeeDistribution{}, domain.ErrAttemptInProgress
	}
	release := func() { s.attempts.Release(playerID, quizID) }

	balance, err := s.wallet.Balance(ctx, playerID)
	if err != nil {
		release()
		return nil, domain.FeeDistribution{}, fmt.Errorf("check balance: %w", err)
	}
	if balance.LessThan(quiz.StakeAmount) {
		release()
		return nil, domain.FeeDistribution{}, domain.ErrInsufficientBalance
	}

	id, err := uuid.NewV7()
	if err != nil {
		release()
		return nil, domain.FeeDistribution{}, fmt.Errorf("generate session ID: %w", err)
	}
	sessionID := id.String()

	if err := s.wallet.Debit(ctx, playerID, quiz.StakeAmount, "quiz stake "+sessionID); err != nil {
		release()
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, domain.FeeDistribution{}, domain.ErrInsufficientBalance
		}
		return nil, domain.FeeDistribution{}, fmt.Errorf("debit stake: %w", err)
	}

	fees := DistributeStake(quiz.StakeAmount)
	log.Printf("session %s: stake %s %s split community=%s platform=%s",
		sessionID, quiz.StakeAmount, quiz.Currency, fees.CommunityShare, fees.PlatformShare)

	session := newSession(sessionID, quiz, playerID, sessionConfig{
		countdown:   s.newCountdown(),
		schedule:    s.schedule,
		revealDelay: s.revealDelay,
		now:         s.now,
		onTerminal:  func(domain.SessionState) { release() },
	})

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	session.begin()
	return session, fees, nil
}

// Get looks up a live session by ID.
func (s *Service) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// SelectAnswer records a pending selection on a live session.
func (s *Service) SelectAnswer(sessionID string, index int) error {
	session, ok := s.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SelectAnswer(index)
}

// ConfirmAnswer scores the pending selection on a live session.
func (s *Service) ConfirmAnswer(sessionID string) error {
	session, ok := s.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.ConfirmAnswer()
}

// Abort forfeits a live session. Callers are expected to have confirmed
// with the player first: the stake is already gone.
func (s *Service) Abort(sessionID string) error {
	session, ok := s.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Abort()
	return nil
}

// Complete settles a finished session exactly once: it computes the
// payout from the answer history and credits any positive amount.
//
// The computed result is the source of truth for what happened in the
// game. If the wallet credit fails, the result is still returned along
// with ErrPayoutSettlement; the caller retries the credit keyed on the
// session ID.
func (s *Service) Complete(ctx context.Context, sessionID string) (domain.PayoutResult, error) {
	session, ok := s.Get(sessionID)
	if !ok {
		return domain.PayoutResult{}, domain.ErrSessionNotFound
	}

	res, err := session.settle()
	if err != nil {
		return domain.PayoutResult{}, err
	}

	if res.Amount.IsPositive() {
		if err := s.wallet.Credit(ctx, session.PlayerID(), res.Amount, "quiz payout "+sessionID); err != nil {
			log.Printf("session %s: payout credit failed, needs settlement retry: %v", sessionID, err)
			session.announcePayout(res)
			return res, fmt.Errorf("%w: %s", domain.ErrPayoutSettlement, err)
		}
	}

	session.announcePayout(res)
	return res, nil
}

// Remove drops a terminal session from the registry. Attempts are
// ephemeral: once the player has seen the outcome there is nothing to
// keep.
func (s *Service) Remove(sessionID string) {
	session, ok := s.Get(sessionID)
	if !ok {
		return
	}
	if !session.State().Terminal() {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// ValidateQuiz enforces the fixed quiz shape: exactly 10 questions,
// each with exactly 8 options and a correct index inside them.
func ValidateQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) != domain.QuizQuestionCount {
		return fmt.Errorf("%w: expected %d questions, got %d",
			domain.ErrInvalidQuizDefinition, domain.QuizQuestionCount, len(quiz.Questions))
	}
	for i, q := range quiz.Questions {
		if len(q.Options) != domain.QuestionOptionCount {
			return fmt.Errorf("%w: question %d has %d options",
				domain.ErrInvalidQuizDefinition, i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= domain.QuestionOptionCount {
			return fmt.Errorf("%w: question %d correct index %d out of range",
				domain.ErrInvalidQuizDefinition, i, q.CorrectIndex)
		}
	}
	if quiz.TimeLimitSec <= 0 {
		return fmt.Errorf("%w: non-positive time limit", domain.ErrInvalidQuizDefinition)
	}
	if quiz.StakeAmount.IsNegative() || quiz.WinningAmount.IsNegative() {
		return fmt.Errorf("%w: negative amounts", domain.ErrInvalidQuizDefinition)
	}
	return nil
}
