// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"time"
)

const (
	ecIdle = iota
	ecWantAddr
	ecHaveData
)

// fakeEC emulates the EC side of the read handshake: a read command
// on the command port arms the address latch, an address byte on the
// data port raises OBF and a data-port read returns the register
// value and drops back to idle.
type fakeEC struct {
	regs [256]uint8

	state int
	addr  uint8

	cmds int // read commands received, across retries

	busy    bool // IBF held high, controller never ready
	onRead  func(dev *fakeEC, port uint16) error
	onWrite func(dev *fakeEC, port uint16, v uint8) error
}

func (dev *fakeEC) ReadPort(port uint16) (uint8, error) {
	if dev.onRead != nil {
		if err := dev.onRead(dev, port); err != nil {
			return 0, err
		}
	}
	switch port {
	case CmdPort:
		var st uint8
		if dev.busy {
			st |= StatusIBF
		}
		if dev.state == ecHaveData {
			st |= StatusOBF
		}
		return st, nil
	case DataPort:
		if dev.state != ecHaveData {
			return 0, fmt.Errorf("fake-ec: data read with no data pending")
		}
		dev.state = ecIdle
		return dev.regs[dev.addr], nil
	}
	return 0, fmt.Errorf("fake-ec: read from unknown port 0x%02x", port)
}

func (dev *fakeEC) WritePort(port uint16, v uint8) error {
	if dev.onWrite != nil {
		if err := dev.onWrite(dev, port, v); err != nil {
			return err
		}
	}
	switch {
	case port == CmdPort && v == cmdReadReg:
		dev.cmds++
		dev.state = ecWantAddr
		return nil
	case port == DataPort && dev.state == ecWantAddr:
		dev.addr = v
		dev.state = ecHaveData
		return nil
	}
	return fmt.Errorf("fake-ec: unexpected write 0x%02x to port 0x%02x", v, port)
}

var _ Transport = (*fakeEC)(nil)

// fakeLock scripts the outcome of successive Acquire calls. Once the
// script is exhausted every Acquire succeeds.
type fakeLock struct {
	seq []LockStatus
	err error

	acquired int
	released int
	closed   bool
}

func (lck *fakeLock) Acquire(timeout time.Duration) (LockStatus, error) {
	if lck.err != nil {
		return 0, lck.err
	}
	st := LockAcquired
	if len(lck.seq) > 0 {
		st = lck.seq[0]
		lck.seq = lck.seq[1:]
	}
	if st != LockTimeout {
		lck.acquired++
	}
	return st, nil
}

func (lck *fakeLock) Release() error {
	lck.released++
	return nil
}

func (lck *fakeLock) Close() error {
	lck.closed = true
	return nil
}

var _ Locker = (*fakeLock)(nil)
