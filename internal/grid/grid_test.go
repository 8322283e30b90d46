// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// fakeReader serves scripted register values, failing the registers
// listed in bad, and records whether sweeps run trace-suppressed.
type fakeReader struct {
	regs [256]uint8
	bad  map[uint8]bool

	suppressed int
	reads      int
}

func (rdo *fakeReader) ReadRegister(reg uint8) (uint8, error) {
	rdo.reads++
	if rdo.bad[reg] {
		return 0xFF, fmt.Errorf("fake: could not read register 0x%02x", reg)
	}
	return rdo.regs[reg], nil
}

func (rdo *fakeReader) SuppressTrace() (restore func()) {
	rdo.suppressed++
	return func() { rdo.suppressed-- }
}

var _ Reader = (*fakeReader)(nil)

func TestCollect(t *testing.T) {
	rdo := &fakeReader{bad: make(map[uint8]bool)}
	for i := range rdo.regs {
		rdo.regs[i] = uint8(i)
		if i%2 == 1 {
			rdo.bad[uint8(i)] = true
		}
	}

	var cells Sweep
	Collect(rdo, &cells)

	if got, want := rdo.reads, 256; got != want {
		t.Fatalf("invalid read count: got=%d, want=%d", got, want)
	}
	if got, want := rdo.suppressed, 0; got != want {
		t.Fatalf("trace suppression not restored: got=%d, want=%d", got, want)
	}

	var ok, bad int
	for i, cell := range cells {
		switch {
		case i%2 == 0:
			if !cell.OK {
				t.Fatalf("register 0x%02x: expected a genuine value", i)
			}
			if got, want := cell.Value, uint8(i); got != want {
				t.Fatalf("register 0x%02x: got=0x%02x, want=0x%02x", i, got, want)
			}
			ok++
		default:
			if cell.OK {
				t.Fatalf("register 0x%02x: expected a failed cell", i)
			}
			bad++
		}
	}
	if ok != 128 || bad != 128 {
		t.Fatalf("invalid ok/bad split: got=%d/%d, want=128/128", ok, bad)
	}
}

func TestRender(t *testing.T) {
	var cells Sweep
	for i := range cells {
		cells[i] = Cell{Value: uint8(i), OK: i%2 == 0}
	}

	buf := new(bytes.Buffer)
	Render(buf, &cells, Options{})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if got, want := len(lines), 17; got != want {
		t.Fatalf("invalid line count: got=%d, want=%d\noutput:\n%s", got, want, out)
	}
	if !strings.HasPrefix(lines[0], "     +0 +1 ") {
		t.Fatalf("invalid header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00:  ") {
		t.Fatalf("invalid first row label: %q", lines[1])
	}
	if !strings.HasPrefix(lines[16], "F0:  ") {
		t.Fatalf("invalid last row label: %q", lines[16])
	}

	// failed cells render as "??", exactly one per genuine value.
	if got, want := strings.Count(out, "??"), 128; got != want {
		t.Fatalf("invalid failed-cell count: got=%d, want=%d", got, want)
	}
	if !strings.Contains(lines[1], "00 ?? 02 ?? ") {
		t.Fatalf("invalid first row: %q", lines[1])
	}

	// no ANSI escapes without colors.
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected ANSI escapes in plain output:\n%s", out)
	}
}

func TestRenderColors(t *testing.T) {
	var cells Sweep
	cells[0] = Cell{Value: 0x00, OK: true}
	cells[1] = Cell{Value: 0x42, OK: true}
	cells[2] = Cell{Value: 0x42, OK: true, Changed: true}
	for i := 3; i < 256; i++ {
		cells[i] = Cell{OK: true}
	}

	for _, tc := range []struct {
		name string
		opts Options
		reg  int
		want string
	}{
		{name: "dump-zero", opts: Options{Colors: true}, reg: 0, want: ansiDim},
		{name: "dump-nonzero", opts: Options{Colors: true}, reg: 1, want: ansiRed},
		{name: "mon-zero", opts: Options{Colors: true, Monitor: true}, reg: 0, want: ansiDim},
		{name: "mon-nonzero", opts: Options{Colors: true, Monitor: true}, reg: 1, want: ansiGreen},
		{name: "mon-changed", opts: Options{Colors: true, Monitor: true}, reg: 2, want: ansiRed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got, want := color(cells[tc.reg], tc.opts), tc.want; got != want {
				t.Fatalf("invalid color: got=%q, want=%q", got, want)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	var cur, prev Sweep
	for i := range prev {
		prev[i] = Cell{Value: uint8(i), OK: true}
		cur[i] = Cell{Value: uint8(i), OK: true}
	}
	cur[0x10].Value = 0xAA
	cur[0x20].Value = 0xBB
	cur[0x30].Value = 0xCC

	n := Diff(&cur, &prev)
	if got, want := n, 3; got != want {
		t.Fatalf("invalid change count: got=%d, want=%d", got, want)
	}
	for i, cell := range cur {
		want := i == 0x10 || i == 0x20 || i == 0x30
		if cell.Changed != want {
			t.Fatalf("register 0x%02x: invalid changed flag: got=%v, want=%v",
				i, cell.Changed, want,
			)
		}
	}

	// a second identical sweep reports no change.
	prev = cur
	n = Diff(&cur, &prev)
	if got, want := n, 0; got != want {
		t.Fatalf("invalid change count: got=%d, want=%d", got, want)
	}
}
