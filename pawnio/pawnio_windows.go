// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package pawnio

import (
	"golang.org/x/sys/windows"
)

const devicePath = `\\.\PawnIO`

type winConn struct {
	h windows.Handle
}

func pawnioOpenImpl() (conn, error) {
	name, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &winConn{h: h}, nil
}

func (c *winConn) ioctl(code uint32, in, out []byte) (int, error) {
	var (
		ret  uint32
		pin  *byte
		pout *byte
	)
	if len(in) > 0 {
		pin = &in[0]
	}
	if len(out) > 0 {
		pout = &out[0]
	}
	err := windows.DeviceIoControl(
		c.h, code,
		pin, uint32(len(in)),
		pout, uint32(len(out)),
		&ret, nil,
	)
	if err != nil {
		return 0, err
	}
	return int(ret), nil
}

func (c *winConn) Close() error {
	return windows.CloseHandle(c.h)
}
