package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"mobigate-quiz-engine/internal/domain"
)

// Wallet is an in-memory wallet gateway for demos and tests. The real
// ledger lives outside this service; this implementation mirrors its
// contract: explicit refusal on insufficient funds, never a negative
// balance, and no movement without a positive acknowledgment.
type Wallet struct {
	mu       sync.Mutex
	opening  decimal.Decimal
	balances map[string]decimal.Decimal
}

// NewWallet creates a wallet where unknown players start with the
// given opening balance.
func NewWallet(opening decimal.Decimal) *Wallet {
	return &Wallet{
		opening:  opening,
		balances: make(map[string]decimal.Decimal),
	}
}

// SetBalance overrides a player's balance.
func (w *Wallet) SetBalance(playerID string, amount decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = amount
}

func (w *Wallet) Balance(_ context.Context, playerID string) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balanceLocked(playerID), nil
}

func (w *Wallet) Debit(_ context.Context, playerID string, amount decimal.Decimal, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balanceLocked(playerID)
	if balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	w.balances[playerID] = balance.Sub(amount)
	return nil
}

func (w *Wallet) Credit(_ context.Context, playerID string, amount decimal.Decimal, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = w.balanceLocked(playerID).Add(amount)
	return nil
}

func (w *Wallet) balanceLocked(playerID string) decimal.Decimal {
	if balance, ok := w.balances[playerID]; ok {
		return balance
	}
	return w.opening
}
