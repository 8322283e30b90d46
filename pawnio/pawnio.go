// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pawnio drives the PawnIO kernel driver, the privileged
// channel through which raw port I/O is performed. The driver loads
// small signed modules and executes their exported functions through
// an ioctl interface; this package only ever loads the LPC ACPI-EC
// module and calls its two port I/O functions.
package pawnio // import "github.com/go-ec/ecr/pawnio"

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	deviceType = 41394 // PawnIO device type

	methodBuffered = 0
	fileAnyAccess  = 0

	fnLoadBinary = 0x821
	fnExecute    = 0x841

	fnNameLength  = 32      // function-name slot in the execute buffer
	wordSize      = 8       // one I/O word, a little-endian int64
	maxModuleSize = 1 << 20 // refuse silly module blobs
)

// ctlCode mirrors the CTL_CODE macro from the Windows DDK.
func ctlCode(devType, fn, method, access uint32) uint32 {
	return devType<<16 | access<<14 | fn<<2 | method
}

var (
	ioctlLoadBinary = ctlCode(deviceType, fnLoadBinary, methodBuffered, fileAnyAccess)
	ioctlExecute    = ctlCode(deviceType, fnExecute, methodBuffered, fileAnyAccess)
)

// Names of the port I/O functions exported by the LPC ACPI-EC module.
const (
	fnPortRead  = "ioctl_pio_read"
	fnPortWrite = "ioctl_pio_write"
)

// DefaultModule is the low-level access module loaded into the driver
// at startup, looked up next to the executable when not absolute.
const DefaultModule = "LpcACPIEC.bin"

// conn is the raw ioctl channel to the driver.
type conn interface {
	ioctl(code uint32, in, out []byte) (int, error)
	Close() error
}

var pawnioOpen = pawnioOpenImpl

// Device is an exclusively-owned handle to the PawnIO driver. It is
// created once at startup and released at shutdown; all port
// operations borrow it.
type Device struct {
	cnx conn
}

// Open opens the PawnIO driver. Failure here is fatal to the whole
// run: the returned error names the usual remediations (install the
// driver, start its service, run elevated).
func Open() (*Device, error) {
	cnx, err := pawnioOpen()
	if err != nil {
		return nil, fmt.Errorf(
			"pawnio: could not open driver (is PawnIO installed, its service started and this process elevated?): %w",
			err,
		)
	}
	return &Device{cnx: cnx}, nil
}

// Close releases the driver handle.
func (dev *Device) Close() error {
	return dev.cnx.Close()
}

// LoadModule reads the module blob from fname and loads it into the
// driver. A relative fname is resolved next to the executable first,
// falling back to the path as given.
func (dev *Device) LoadModule(fname string) error {
	raw, err := os.ReadFile(modulePath(fname))
	if err != nil {
		return fmt.Errorf("pawnio: could not read module %q: %w", fname, err)
	}
	err = dev.Load(raw)
	if err != nil {
		return fmt.Errorf("pawnio: could not load module %q: %w", fname, err)
	}
	return nil
}

// Load loads a module blob into the driver.
func (dev *Device) Load(raw []byte) error {
	if len(raw) == 0 || len(raw) > maxModuleSize {
		return fmt.Errorf("pawnio: invalid module size %d", len(raw))
	}
	_, err := dev.cnx.ioctl(ioctlLoadBinary, raw, nil)
	if err != nil {
		return fmt.Errorf("pawnio: could not load module binary: %w", err)
	}
	return nil
}

// Execute calls the named function of the loaded module with the
// given input words and returns up to nout output words. Function
// names are limited to 31 characters by the driver ABI.
func (dev *Device) Execute(fn string, in []int64, nout int) ([]int64, error) {
	if len(fn) >= fnNameLength {
		return nil, fmt.Errorf("pawnio: function name %q too long (max %d)", fn, fnNameLength-1)
	}

	buf := make([]byte, fnNameLength+wordSize*len(in))
	copy(buf, fn)
	for i, v := range in {
		binary.LittleEndian.PutUint64(buf[fnNameLength+wordSize*i:], uint64(v))
	}

	out := make([]byte, wordSize*nout)
	n, err := dev.cnx.ioctl(ioctlExecute, buf, out)
	if err != nil {
		return nil, fmt.Errorf("pawnio: could not execute %q: %w", fn, err)
	}
	if n > len(out) {
		n = len(out)
	}

	res := make([]int64, n/wordSize)
	for i := range res {
		res[i] = int64(binary.LittleEndian.Uint64(out[wordSize*i:]))
	}
	return res, nil
}

// ReadPort reads one byte from a legacy I/O port. Device thereby
// implements ec.Transport.
func (dev *Device) ReadPort(port uint16) (uint8, error) {
	out, err := dev.Execute(fnPortRead, []int64{int64(port)}, 1)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("pawnio: invalid output (%d words) reading port 0x%02x", len(out), port)
	}
	return uint8(out[0]), nil
}

// WritePort writes one byte to a legacy I/O port.
func (dev *Device) WritePort(port uint16, v uint8) error {
	_, err := dev.Execute(fnPortWrite, []int64{int64(port), int64(v)}, 0)
	return err
}

func modulePath(fname string) string {
	if filepath.IsAbs(fname) {
		return fname
	}
	exe, err := os.Executable()
	if err != nil {
		return fname
	}
	path := filepath.Join(filepath.Dir(exe), fname)
	if _, err := os.Stat(path); err != nil {
		return fname
	}
	return path
}
