// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"io"
)

// Stats accumulates per-Reader counters across all register reads of
// a run. Every completed ReadRegister call bumps exactly one of Reads
// or Fails, whatever the number of retries it took.
type Stats struct {
	Reads   int // successful reads
	Fails   int // failed reads, after retry exhaustion
	Retries int // extra protocol attempts

	LockFails   int // total lock acquisition failures
	LockRetries int // lock contention retries
}

// Total returns the number of completed register reads.
func (st Stats) Total() int { return st.Reads + st.Fails }

// SuccessRate returns the percentage of successful reads. The rate is
// undefined when no read completed yet, in which case ok is false.
func (st Stats) SuccessRate() (rate float64, ok bool) {
	tot := st.Total()
	if tot == 0 {
		return 0, false
	}
	return float64(st.Reads) / float64(tot) * 100, true
}

// AvgRetries returns the mean number of retries per completed read.
// Undefined (ok=false) when no read completed yet.
func (st Stats) AvgRetries() (avg float64, ok bool) {
	tot := st.Total()
	if tot == 0 {
		return 0, false
	}
	return float64(st.Retries) / float64(tot), true
}

// Format writes a human-readable statistics report to w. Lock
// counters are only meaningful when a lock was in use.
func (st Stats) Format(w io.Writer, withLock bool) {
	fmt.Fprintf(w, "=== Statistics ===\n")
	fmt.Fprintf(w, "successful reads: %d\n", st.Reads)
	fmt.Fprintf(w, "failed reads:     %d\n", st.Fails)
	fmt.Fprintf(w, "retry attempts:   %d\n", st.Retries)
	if withLock {
		fmt.Fprintf(w, "lock retries:     %d\n", st.LockRetries)
		fmt.Fprintf(w, "lock failures:    %d\n", st.LockFails)
	}
	if rate, ok := st.SuccessRate(); ok {
		fmt.Fprintf(w, "success rate:     %.1f%%\n", rate)
		if avg, ok := st.AvgRetries(); ok && st.Retries > 0 {
			fmt.Fprintf(w, "avg retries:      %.2f per operation\n", avg)
		}
	}
	fmt.Fprintf(w, "==================\n")
}
