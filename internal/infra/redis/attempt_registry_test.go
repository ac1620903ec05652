package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAttemptRegistryGuardsSlot(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := NewAttemptRegistry(client, time.Minute)

	if !reg.Acquire("p1", "quiz-1") {
		t.Fatal("expected first acquire to succeed")
	}
	if !mr.Exists("quiz:attempt:p1:quiz-1") {
		t.Fatal("expected redis marker to be set")
	}
	if reg.Acquire("p1", "quiz-1") {
		t.Fatal("expected second acquire to fail while held")
	}

	reg.Release("p1", "quiz-1")
	if mr.Exists("quiz:attempt:p1:quiz-1") {
		t.Fatal("expected redis marker to be removed")
	}
	if !reg.Acquire("p1", "quiz-1") {
		t.Fatal("expected acquire after release")
	}
}

func TestAttemptRegistryExpiresCrashedSlot(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := NewAttemptRegistry(client, time.Minute)

	if !reg.Acquire("p1", "quiz-1") {
		t.Fatal("acquire failed")
	}

	// An instance that died without releasing only blocks until TTL.
	mr.FastForward(2 * time.Minute)
	if !reg.Acquire("p1", "quiz-1") {
		t.Fatal("expected acquire after TTL expiry")
	}
}
