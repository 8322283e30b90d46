// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package ecmutex

import (
	"errors"
	"time"

	"github.com/go-ec/ecr/ec"
)

var errNotSupported = errors.New("ecmutex: named EC mutex only available on windows")

// Mutex is a handle to the shared EC access mutex. It implements
// ec.Locker.
type Mutex struct{}

var _ ec.Locker = (*Mutex)(nil)

// Open reports the named EC mutex as unavailable on this platform.
func Open() (*Mutex, error) {
	return nil, errNotSupported
}

func (m *Mutex) Acquire(timeout time.Duration) (ec.LockStatus, error) {
	return 0, errNotSupported
}

func (m *Mutex) Release() error { return errNotSupported }

func (m *Mutex) Close() error { return errNotSupported }
