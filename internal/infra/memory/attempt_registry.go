package memory

import "sync"

// AttemptRegistry is the in-process guard against starting two
// concurrent attempts for the same player and quiz. A second attempt
// while one is live would debit the stake twice.
type AttemptRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		active: make(map[string]struct{}),
	}
}

// Acquire claims the attempt slot, reporting false when already held.
func (r *AttemptRegistry) Acquire(playerID, quizID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey(playerID, quizID)
	if _, ok := r.active[key]; ok {
		return false
	}
	r.active[key] = struct{}{}
	return true
}

// Release frees the attempt slot.
func (r *AttemptRegistry) Release(playerID, quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, attemptKey(playerID, quizID))
}

func attemptKey(playerID, quizID string) string {
	return playerID + ":" + quizID
}
