// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

// Transport issues single-byte transactions on legacy I/O ports
// through a privileged channel. Implementations are stateless per
// call; a failed call reports an error and no value.
type Transport interface {
	// ReadPort reads one byte from the given port.
	ReadPort(port uint16) (uint8, error)

	// WritePort writes one byte to the given port.
	WritePort(port uint16, v uint8) error
}

func (rdr *Reader) portRead(port uint16) (uint8, error) {
	v, err := rdr.tr.ReadPort(port)
	if err != nil {
		rdr.tracef("read port 0x%02x FAILED: %+v", port, err)
		return 0, err
	}
	rdr.tracef("read port 0x%02x: 0x%02x", port, v)
	return v, nil
}

func (rdr *Reader) portWrite(port uint16, v uint8) error {
	err := rdr.tr.WritePort(port, v)
	if err != nil {
		rdr.tracef("write port 0x%02x <- 0x%02x FAILED: %+v", port, v, err)
		return err
	}
	rdr.tracef("write port 0x%02x <- 0x%02x", port, v)
	return nil
}

func (rdr *Reader) tracef(format string, args ...interface{}) {
	if rdr.verbose && rdr.suppress == 0 {
		rdr.msg.Printf(format, args...)
	}
}

// SuppressTrace disables verbose port tracing until the returned
// restore function is called. Calls nest. Bulk operations such as a
// full 256-register sweep should run suppressed: the I/O cost of a
// trace line per port access is enough to skew the EC handshake
// timing and provoke spurious failures.
func (rdr *Reader) SuppressTrace() (restore func()) {
	rdr.suppress++
	return func() { rdr.suppress-- }
}
