// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"
)

// Reader reads EC registers over a Transport, serializing access
// against other processes through an optional shared lock and
// absorbing transient handshake failures with a bounded retry loop.
//
// A Reader is exclusively owned: it is not safe for concurrent use by
// multiple goroutines. Concurrency with other EC-accessing software
// exists only across process boundaries and is what the lock is for.
type Reader struct {
	tr  Transport
	lck Locker
	msg *log.Logger

	verbose  bool
	suppress int // trace suppression depth

	noLock sync.Once // one-time degraded-mode warning

	stats Stats
}

// Option configures a Reader.
type Option func(*Reader)

// WithVerbose enables per-port trace logging.
func WithVerbose(v bool) Option {
	return func(rdr *Reader) { rdr.verbose = v }
}

// WithLock arranges for every protocol attempt to run under lck.
// Without this option the Reader runs lockless, best-effort.
func WithLock(lck Locker) Option {
	return func(rdr *Reader) { rdr.lck = lck }
}

// WithLogger redirects the Reader log messages.
func WithLogger(msg *log.Logger) Option {
	return func(rdr *Reader) { rdr.msg = msg }
}

// NewReader creates a Reader on top of the given transport.
func NewReader(tr Transport, opts ...Option) *Reader {
	rdr := &Reader{
		tr:  tr,
		msg: log.New(os.Stdout, "ec: ", 0),
	}
	for _, opt := range opts {
		opt(rdr)
	}
	return rdr
}

// Stats returns a snapshot of the accumulated counters.
func (rdr *Reader) Stats() Stats { return rdr.stats }

// ReadRegister reads one EC register. It performs up to 3 full
// attempts, each one acquiring the shared lock, running the whole
// handshake and releasing the lock. On success the register value is
// returned and the success counter is bumped exactly once; when all
// attempts are exhausted the failure counter is bumped exactly once
// and the returned value is the Sentinel byte.
func (rdr *Reader) ReadRegister(reg uint8) (uint8, error) {
	var (
		val     uint8
		lastErr error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			rdr.stats.Retries++
			rdr.tracef("read 0x%02x failed, retry %d/%d", reg, attempt, maxAttempts-1)
			runtime.Gosched()
		}

		err := rdr.withLock(func() error {
			v, err := rdr.readOnce(reg)
			if err != nil {
				return err
			}
			val = v
			return nil
		})
		if err != nil {
			lastErr = err
			continue
		}

		if attempt > 0 {
			rdr.tracef("read 0x%02x succeeded on retry %d", reg, attempt)
		}
		rdr.tracef("EC[0x%02x] = 0x%02x", reg, val)
		rdr.stats.Reads++
		return val, nil
	}

	rdr.stats.Fails++
	return Sentinel, fmt.Errorf(
		"ec: could not read register 0x%02x after %d attempts: %w",
		reg, maxAttempts, lastErr,
	)
}

// readOnce runs one deterministic pass of the EC read handshake.
// No locking, no retries.
func (rdr *Reader) readOnce(reg uint8) (uint8, error) {
	rdr.tracef("reading EC register 0x%02x", reg)

	if err := rdr.waitInputClear(waitTimeout); err != nil {
		return 0, fmt.Errorf("ec: controller not ready for command: %w", err)
	}
	if err := rdr.portWrite(CmdPort, cmdReadReg); err != nil {
		return 0, fmt.Errorf("ec: could not send read command: %w", err)
	}
	if err := rdr.waitInputClear(waitTimeout); err != nil {
		return 0, fmt.Errorf("ec: controller did not accept command: %w", err)
	}

	// The address-write/data-wait/data-read sequence is the timing
	// critical part of the handshake: run it with tracing off.
	restore := rdr.SuppressTrace()
	defer restore()

	if err := rdr.portWrite(DataPort, reg); err != nil {
		return 0, fmt.Errorf("ec: could not send register address 0x%02x: %w", reg, err)
	}
	if err := rdr.waitOutputFull(waitTimeout); err != nil {
		return 0, fmt.Errorf("ec: no data for register 0x%02x: %w", reg, err)
	}
	v, err := rdr.portRead(DataPort)
	if err != nil {
		return 0, fmt.Errorf("ec: could not read register 0x%02x data: %w", reg, err)
	}
	return v, nil
}

// waitInputClear polls the status port until the EC input buffer
// drains (IBF=0), meaning the controller is ready for a command or
// an address byte.
func (rdr *Reader) waitInputClear(timeout time.Duration) error {
	return rdr.waitStatus(timeout, func(st uint8) bool { return st&StatusIBF == 0 })
}

// waitOutputFull polls the status port until the EC output buffer
// fills (OBF=1), meaning a data byte is ready on the data port.
func (rdr *Reader) waitOutputFull(timeout time.Duration) error {
	return rdr.waitStatus(timeout, func(st uint8) bool { return st&StatusOBF != 0 })
}

// waitStatus busy-polls the status port under a wall-clock deadline.
// The EC settles within microseconds to a few milliseconds, so the
// loop spins tight at first and starts yielding its time slice after
// busyWaitIters iterations to stay a good citizen on a shared system.
func (rdr *Reader) waitStatus(timeout time.Duration, ready func(uint8) bool) error {
	restore := rdr.SuppressTrace()
	defer restore()

	var iters int
	for start := time.Now(); time.Since(start) < timeout; {
		st, err := rdr.portRead(CmdPort)
		if err != nil {
			return err
		}
		if ready(st) {
			return nil
		}
		iters++
		if iters > busyWaitIters {
			runtime.Gosched()
		}
	}
	return ErrTimeout
}
