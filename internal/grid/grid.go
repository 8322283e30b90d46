// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grid renders 256-register EC sweeps as a 16x16 grid and
// computes change sets between consecutive sweeps.
package grid // import "github.com/go-ec/ecr/internal/grid"

import (
	"fmt"
	"io"
)

// Cell is one sampled register. A cell with OK=false failed to read:
// its Value is the engine sentinel and must never be rendered as a
// genuine value.
type Cell struct {
	Value   uint8
	OK      bool
	Changed bool
}

// Sweep holds one full pass over the EC register space.
type Sweep [256]Cell

// Options selects the rendering mode.
type Options struct {
	Decimal bool // decimal cells instead of hex
	Colors  bool // ANSI colors
	Monitor bool // monitor palette: red=changed, green=non-zero, dim=zero
}

const (
	ansiRed   = "\x1b[31;1m"
	ansiGreen = "\x1b[32;1m"
	ansiDim   = "\x1b[90m"
	ansiReset = "\x1b[0m"
)

// Render writes the sweep as a 16x16 grid. Failed cells render as an
// explicit "??" marker.
func Render(w io.Writer, cells *Sweep, opts Options) {
	fmt.Fprintf(w, "     ")
	for col := 0; col < 16; col++ {
		if opts.Decimal {
			fmt.Fprintf(w, "+%2X ", col)
		} else {
			fmt.Fprintf(w, "+%X ", col)
		}
	}
	fmt.Fprintln(w)

	for row := 0; row < 16; row++ {
		fmt.Fprintf(w, "%X0:  ", row)
		for col := 0; col < 16; col++ {
			cell := cells[row*16+col]
			if !cell.OK {
				if opts.Decimal {
					fmt.Fprint(w, " ?? ")
				} else {
					fmt.Fprint(w, "?? ")
				}
				continue
			}
			if c := color(cell, opts); c != "" {
				fmt.Fprint(w, c)
			}
			if opts.Decimal {
				fmt.Fprintf(w, "%3d ", cell.Value)
			} else {
				fmt.Fprintf(w, "%02X ", cell.Value)
			}
			if opts.Colors {
				fmt.Fprint(w, ansiReset)
			}
		}
		fmt.Fprintln(w)
	}
}

func color(cell Cell, opts Options) string {
	if !opts.Colors {
		return ""
	}
	switch {
	case opts.Monitor && cell.Changed:
		return ansiRed
	case opts.Monitor && cell.Value != 0:
		return ansiGreen
	case !opts.Monitor && cell.Value != 0:
		return ansiRed
	default:
		return ansiDim
	}
}

// Reader is the part of the EC engine a sweep needs.
type Reader interface {
	ReadRegister(reg uint8) (uint8, error)
	SuppressTrace() (restore func())
}

// Collect samples all 256 registers into cells with tracing
// suppressed. A failing register never aborts the sweep: its cell is
// marked not-OK and the sweep moves on.
func Collect(rdo Reader, cells *Sweep) {
	restore := rdo.SuppressTrace()
	defer restore()

	for i := 0; i < 256; i++ {
		v, err := rdo.ReadRegister(uint8(i))
		cells[i] = Cell{Value: v, OK: err == nil}
	}
}

// Diff marks every cell of cur whose sampled value differs from the
// matching cell of prev and returns the number of changed cells. A
// cell is changed iff consecutive sampled values differ.
func Diff(cur, prev *Sweep) int {
	n := 0
	for i := range cur {
		cur[i].Changed = cur[i].Value != prev[i].Value
		if cur[i].Changed {
			n++
		}
	}
	return n
}
