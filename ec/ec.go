// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ec implements the register read protocol of an ACPI
// Embedded Controller attached to the legacy port pair 0x62/0x66.
//
// A register read is a four-phase handshake on the command/status
// port: wait for the input buffer to drain, send the read command,
// wait again, send the register address, then wait for the output
// buffer to fill and fetch the byte from the data port. The EC is a
// shared, timing-sensitive resource: reads are serialized against
// other processes through the system-wide Access_EC lock and retried
// a bounded number of times when the handshake misfires.
package ec // import "github.com/go-ec/ecr/ec"

import (
	"errors"
	"time"
)

// EC port pair and status flags, fixed by the ACPI specification.
const (
	DataPort uint16 = 0x62 // data port
	CmdPort  uint16 = 0x66 // command/status port

	StatusOBF uint8 = 0x01 // output buffer full
	StatusIBF uint8 = 0x02 // input buffer full

	cmdReadReg uint8 = 0x80 // "read register" EC command
)

// Sentinel is the byte returned for a failed read. A genuine register
// may also hold 0xFF: only the error result of ReadRegister tells the
// two apart.
const Sentinel uint8 = 0xFF

const (
	waitTimeout   = 20 * time.Millisecond // per polling phase
	busyWaitIters = 100                   // spins before yielding the scheduler
	maxAttempts   = 3                     // full protocol attempts per read

	lockTimeout    = 1 * time.Second
	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond
)

// ErrTimeout is reported when a polling phase of the handshake did not
// observe the expected status flag within its deadline.
var ErrTimeout = errors.New("ec: timeout waiting for controller")

// ErrLockTimeout is reported when the shared EC lock could not be
// acquired within the bounded number of wait attempts.
var ErrLockTimeout = errors.New("ec: could not acquire EC lock")
