package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptRegistry guards player+quiz attempt slots across instances
// with a SETNX marker. The TTL bounds how long a crashed instance can
// hold a slot; live sessions release explicitly on completion or abort.
type AttemptRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{client: client, ttl: ttl}
}

func (r *AttemptRegistry) Acquire(playerID, quizID string) bool {
	ok, err := r.client.SetNX(context.Background(), r.key(playerID, quizID), "1", r.ttl).Result()
	if err != nil {
		// Fail closed: a stake must never be debited twice because
		// the guard could not be checked.
		return false
	}
	return ok
}

func (r *AttemptRegistry) Release(playerID, quizID string) {
	_ = r.client.Del(context.Background(), r.key(playerID, quizID)).Err()
}

func (r *AttemptRegistry) key(playerID, quizID string) string {
	return "quiz:attempt:" + playerID + ":" + quizID
}
