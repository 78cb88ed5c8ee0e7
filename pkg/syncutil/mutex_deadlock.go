//go:build deadlock

package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

func init() {
	// Snapshot fan-out holds the lock only briefly; anything longer is a bug.
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}

type Mutex struct {
	deadlock.Mutex
}

type RWMutex struct {
	deadlock.RWMutex
}

func DeadlockDetection() bool { return true }
