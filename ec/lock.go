// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"time"
)

// LockStatus is the outcome of one wait on the shared EC lock.
type LockStatus int

const (
	// LockAcquired means the caller now owns the lock and must
	// release it.
	LockAcquired LockStatus = iota

	// LockAbandoned means the previous holder terminated without
	// releasing. The caller owns the lock, but it cannot be trusted
	// to have guaranteed exclusivity while abandoned.
	LockAbandoned

	// LockTimeout means the lock is held elsewhere and the bounded
	// wait expired.
	LockTimeout
)

// Locker is a system-wide named lock shared with other EC-accessing
// software. The engine only ever opens an existing lock, it never
// creates one; a system without the lock runs lockless.
type Locker interface {
	// Acquire waits for lock ownership with a bounded timeout.
	Acquire(timeout time.Duration) (LockStatus, error)

	// Release relinquishes ownership.
	Release() error

	// Close releases the lock handle itself.
	Close() error
}

// withLock runs fn holding the shared EC lock. Without a lock handle
// fn runs directly, best-effort, with a one-time warning. Contention
// timeouts are retried a bounded number of times; an abandoned lock is
// treated as acquired. A lock acquired here is released on every exit
// path of fn.
func (rdr *Reader) withLock(fn func() error) error {
	if rdr.lck == nil {
		rdr.noLock.Do(func() {
			rdr.msg.Printf("no EC lock available, running without cross-process synchronization")
		})
		return fn()
	}

	acquired := false
loop:
	for try := 0; try < lockAttempts; try++ {
		st, err := rdr.lck.Acquire(lockTimeout)
		if err != nil {
			rdr.stats.LockFails++
			return fmt.Errorf("ec: could not wait on EC lock: %w", err)
		}
		switch st {
		case LockAcquired:
			acquired = true
			break loop
		case LockAbandoned:
			rdr.msg.Printf("warning: EC lock was abandoned by its previous holder")
			acquired = true
			break loop
		case LockTimeout:
			rdr.tracef("EC lock timeout (attempt %d/%d)", try+1, lockAttempts)
			if try < lockAttempts-1 {
				rdr.stats.LockRetries++
				time.Sleep(lockRetryDelay)
			}
		}
	}
	if !acquired {
		rdr.stats.LockFails++
		return ErrLockTimeout
	}

	defer func() {
		if err := rdr.lck.Release(); err != nil {
			rdr.msg.Printf("could not release EC lock: %+v", err)
		}
	}()
	return fn()
}
