// Package lock serializes writers of the same project across goroutines and,
// with Redis configured, across API replicas.
package lock

import (
	"context"
	"time"
)

// Release gives up a held lock. It is safe to call more than once.
type Release func()

// Locker grants exclusive access to a key until the returned Release is called
// or ctx is done while waiting.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// ProjectKey is the lock key guarding one project aggregate.
func ProjectKey(projectID string) string { return "project:" + projectID }

const (
	defaultTTL      = 30 * time.Second
	defaultRetryMin = 10 * time.Millisecond
	defaultRetryMax = 250 * time.Millisecond
)
