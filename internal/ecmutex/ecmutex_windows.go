// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package ecmutex

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/go-ec/ecr/ec"
)

// Mutex is a handle to the shared EC access mutex. It implements
// ec.Locker.
type Mutex struct {
	h windows.Handle
}

var _ ec.Locker = (*Mutex)(nil)

// Open opens the shared EC mutex under its primary name, falling back
// to the globally-scoped alias. A missing mutex is a legal degraded
// mode for callers, reported here as an error.
func Open() (*Mutex, error) {
	h, err := openMutex(Name)
	if err != nil {
		h, err = openMutex(GlobalName)
	}
	if err != nil {
		return nil, fmt.Errorf("ecmutex: could not open mutex %q: %w", Name, err)
	}
	return &Mutex{h: h}, nil
}

func openMutex(name string) (windows.Handle, error) {
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	return windows.OpenMutex(windows.SYNCHRONIZE, false, ptr)
}

// Acquire waits for mutex ownership with the given timeout.
func (m *Mutex) Acquire(timeout time.Duration) (ec.LockStatus, error) {
	ev, err := windows.WaitForSingleObject(m.h, uint32(timeout.Milliseconds()))
	switch ev {
	case windows.WAIT_OBJECT_0:
		return ec.LockAcquired, nil
	case windows.WAIT_ABANDONED:
		return ec.LockAbandoned, nil
	case windows.WAIT_TIMEOUT:
		return ec.LockTimeout, nil
	}
	if err == nil {
		err = fmt.Errorf("wait returned event 0x%x", ev)
	}
	return 0, fmt.Errorf("ecmutex: could not wait on mutex: %w", err)
}

// Release relinquishes mutex ownership.
func (m *Mutex) Release() error {
	return windows.ReleaseMutex(m.h)
}

// Close releases the mutex handle.
func (m *Mutex) Close() error {
	return windows.CloseHandle(m.h)
}
