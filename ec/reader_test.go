// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
)

func TestReadRegister(t *testing.T) {
	dev := &fakeEC{}
	dev.regs[0x30] = 0x4C
	dev.regs[0x00] = 0xAB
	dev.regs[0xFF] = 0x01

	rdr := NewReader(dev, WithLogger(log.New(io.Discard, "", 0)))

	for _, tc := range []struct {
		reg  uint8
		want uint8
	}{
		{reg: 0x30, want: 0x4C},
		{reg: 0x00, want: 0xAB},
		{reg: 0xFF, want: 0x01},
		{reg: 0x42, want: 0x00},
	} {
		t.Run(fmt.Sprintf("reg=0x%02x", tc.reg), func(t *testing.T) {
			v, err := rdr.ReadRegister(tc.reg)
			if err != nil {
				t.Fatalf("could not read register: %+v", err)
			}
			if v != tc.want {
				t.Fatalf("invalid value: got=0x%02x, want=0x%02x", v, tc.want)
			}
		})
	}

	stats := rdr.Stats()
	if got, want := stats.Reads, 4; got != want {
		t.Fatalf("invalid reads counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Fails, 0; got != want {
		t.Fatalf("invalid fails counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Retries, 0; got != want {
		t.Fatalf("invalid retries counter: got=%d, want=%d", got, want)
	}
}

func TestReadRegisterRetry(t *testing.T) {
	// first two read commands fail, the third attempt goes through.
	dev := &fakeEC{}
	dev.regs[0x30] = 0x4C
	dev.onWrite = func(dev *fakeEC, port uint16, v uint8) error {
		if port == CmdPort && v == cmdReadReg && dev.cmds < 2 {
			dev.cmds++
			return fmt.Errorf("fake-ec: transient write failure")
		}
		return nil
	}

	rdr := NewReader(dev, WithLogger(log.New(io.Discard, "", 0)))

	v, err := rdr.ReadRegister(0x30)
	if err != nil {
		t.Fatalf("could not read register: %+v", err)
	}
	if got, want := v, uint8(0x4C); got != want {
		t.Fatalf("invalid value: got=0x%02x, want=0x%02x", got, want)
	}

	stats := rdr.Stats()
	if got, want := stats.Reads, 1; got != want {
		t.Fatalf("invalid reads counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Retries, 2; got != want {
		t.Fatalf("invalid retries counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Fails, 0; got != want {
		t.Fatalf("invalid fails counter: got=%d, want=%d", got, want)
	}
}

func TestReadRegisterExhausted(t *testing.T) {
	failure := errors.New("fake-ec: permanent write failure")
	dev := &fakeEC{}
	dev.onWrite = func(dev *fakeEC, port uint16, v uint8) error {
		return failure
	}

	rdr := NewReader(dev, WithLogger(log.New(io.Discard, "", 0)))

	v, err := rdr.ReadRegister(0x30)
	if err == nil {
		t.Fatalf("expected a read failure")
	}
	if !errors.Is(err, failure) {
		t.Fatalf("invalid error chain: got=%+v, want=%+v", err, failure)
	}
	if got, want := v, Sentinel; got != want {
		t.Fatalf("invalid sentinel: got=0x%02x, want=0x%02x", got, want)
	}

	stats := rdr.Stats()
	if got, want := stats.Fails, 1; got != want {
		t.Fatalf("invalid fails counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Retries, maxAttempts-1; got != want {
		t.Fatalf("invalid retries counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.Reads, 0; got != want {
		t.Fatalf("invalid reads counter: got=%d, want=%d", got, want)
	}
}

func TestReadRegisterBusyController(t *testing.T) {
	dev := &fakeEC{busy: true}

	rdr := NewReader(dev, WithLogger(log.New(io.Discard, "", 0)))

	_, err := rdr.ReadRegister(0x30)
	if err == nil {
		t.Fatalf("expected a timeout failure")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error chain: got=%+v, want=%+v", err, ErrTimeout)
	}

	stats := rdr.Stats()
	if got, want := stats.Fails, 1; got != want {
		t.Fatalf("invalid fails counter: got=%d, want=%d", got, want)
	}
}

func TestReadRegisterWithLock(t *testing.T) {
	for _, tc := range []struct {
		name    string
		lck     *fakeLock
		err     error
		reads   int
		fails   int
		lckRtry int
		lckFail int
	}{
		{
			name:  "acquired",
			lck:   &fakeLock{},
			reads: 1,
		},
		{
			name:  "abandoned",
			lck:   &fakeLock{seq: []LockStatus{LockAbandoned}},
			reads: 1,
		},
		{
			name:    "timeout-then-acquired",
			lck:     &fakeLock{seq: []LockStatus{LockTimeout, LockAcquired}},
			reads:   1,
			lckRtry: 1,
		},
		{
			name: "timeout-exhausted",
			lck: &fakeLock{seq: []LockStatus{
				LockTimeout, LockTimeout, LockTimeout,
				LockTimeout, LockTimeout, LockTimeout,
				LockTimeout, LockTimeout, LockTimeout,
			}},
			err:     ErrLockTimeout,
			fails:   1,
			lckRtry: 2 * maxAttempts,
			lckFail: maxAttempts,
		},
		{
			name:    "acquire-error",
			lck:     &fakeLock{err: errors.New("fake-lock: wait failed")},
			err:     nil, // wrapped fake error, checked by fails counter
			fails:   1,
			lckFail: maxAttempts,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev := &fakeEC{}
			dev.regs[0x30] = 0x4C

			rdr := NewReader(dev,
				WithLock(tc.lck),
				WithLogger(log.New(io.Discard, "", 0)),
			)

			v, err := rdr.ReadRegister(0x30)
			switch {
			case tc.fails > 0:
				if err == nil {
					t.Fatalf("expected a read failure")
				}
				if tc.err != nil && !errors.Is(err, tc.err) {
					t.Fatalf("invalid error chain: got=%+v, want=%+v", err, tc.err)
				}
				if got, want := v, Sentinel; got != want {
					t.Fatalf("invalid sentinel: got=0x%02x, want=0x%02x", got, want)
				}
			default:
				if err != nil {
					t.Fatalf("could not read register: %+v", err)
				}
				if got, want := v, uint8(0x4C); got != want {
					t.Fatalf("invalid value: got=0x%02x, want=0x%02x", got, want)
				}
			}

			stats := rdr.Stats()
			if got, want := stats.Reads, tc.reads; got != want {
				t.Fatalf("invalid reads counter: got=%d, want=%d", got, want)
			}
			if got, want := stats.Fails, tc.fails; got != want {
				t.Fatalf("invalid fails counter: got=%d, want=%d", got, want)
			}
			if got, want := stats.LockRetries, tc.lckRtry; got != want {
				t.Fatalf("invalid lock retries counter: got=%d, want=%d", got, want)
			}
			if got, want := stats.LockFails, tc.lckFail; got != want {
				t.Fatalf("invalid lock failures counter: got=%d, want=%d", got, want)
			}

			// every successful acquisition must have been released.
			if got, want := tc.lck.released, tc.lck.acquired; got != want {
				t.Fatalf("lock release imbalance: released=%d, acquired=%d", got, want)
			}
		})
	}
}

func TestReadRegisterLockless(t *testing.T) {
	dev := &fakeEC{}
	dev.regs[0x30] = 0x4C

	buf := new(bytes.Buffer)
	rdr := NewReader(dev, WithLogger(log.New(buf, "", 0)))

	for i := 0; i < 3; i++ {
		_, err := rdr.ReadRegister(0x30)
		if err != nil {
			t.Fatalf("could not read register: %+v", err)
		}
	}

	stats := rdr.Stats()
	if got, want := stats.LockFails, 0; got != want {
		t.Fatalf("invalid lock failures counter: got=%d, want=%d", got, want)
	}
	if got, want := stats.LockRetries, 0; got != want {
		t.Fatalf("invalid lock retries counter: got=%d, want=%d", got, want)
	}

	// degraded-mode warning shows up exactly once.
	if got, want := strings.Count(buf.String(), "without cross-process"), 1; got != want {
		t.Fatalf("invalid warning count: got=%d, want=%d\nlog:\n%s", got, want, buf.String())
	}
}

func TestTraceSuppression(t *testing.T) {
	dev := &fakeEC{}
	dev.regs[0x30] = 0x4C

	buf := new(bytes.Buffer)
	rdr := NewReader(dev,
		WithVerbose(true),
		WithLogger(log.New(buf, "", 0)),
	)

	restore := rdr.SuppressTrace()
	_, err := rdr.ReadRegister(0x30)
	if err != nil {
		t.Fatalf("could not read register: %+v", err)
	}
	if got := buf.String(); got != "" {
		t.Fatalf("unexpected trace output while suppressed:\n%s", got)
	}
	restore()

	_, err = rdr.ReadRegister(0x30)
	if err != nil {
		t.Fatalf("could not read register: %+v", err)
	}
	if !strings.Contains(buf.String(), "EC[0x30] = 0x4c") {
		t.Fatalf("missing trace output:\n%s", buf.String())
	}
}
