//go:build !deadlock

// Package syncutil holds the mutex types used by shared state outside the
// scheduler goroutine. Build with -tags=deadlock to swap in
// github.com/sasha-s/go-deadlock.
package syncutil

import "sync"

type Mutex struct {
	sync.Mutex
}

type RWMutex struct {
	sync.RWMutex
}

// DeadlockDetection reports whether the deadlock build is active.
func DeadlockDetection() bool { return false }
