// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-dump dumps all 256 EC registers as a 16x16 grid.
//
// Usage: ecr-dump [OPTIONS]
//
// Non-zero registers display in red, zero registers dimmed, failed
// reads as "??".
package main // import "github.com/go-ec/ecr/cmd/ecr-dump"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-ec/ecr"
	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/internal/grid"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	log.SetPrefix("ecr-dump: ")
	log.SetFlags(0)

	var (
		decimal = flag.Bool("d", false, "display values in decimal instead of hex")
		stats   = flag.Bool("s", false, "show statistics after the dump")
		noColor = flag.Bool("no-color", false, "disable ANSI colors")
		mod     = flag.String("mod", pawnio.DefaultModule, "path to the LPC ACPI-EC PawnIO module")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *version {
		v, sum := ecr.Version()
		fmt.Printf("ecr-dump %s %s\n", v, sum)
		return
	}

	err := run(os.Stdout, *decimal, *stats, !*noColor, *mod)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, decimal, stats, colors bool, mod string) error {
	eng, err := newEngine(mod)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	fmt.Fprintf(w, "EC Register Dump (16x16 grid)\n")
	fmt.Fprintf(w, "Red = non-zero, Gray = zero, ?? = unreadable\n")
	fmt.Fprintf(w, "=======================================================\n\n")

	var cells grid.Sweep
	grid.Collect(eng.rdo, &cells)
	grid.Render(w, &cells, grid.Options{
		Decimal: decimal,
		Colors:  colors,
	})

	if stats {
		eng.rdo.Stats().Format(w, eng.lock)
	}
	return nil
}

type engine struct {
	rdo  *ec.Reader
	lock bool
	shut func() error
}

func (eng *engine) shutdown() {
	if err := eng.shut(); err != nil {
		log.Printf("could not close EC engine: %+v", err)
	}
}

func newEngine(mod string) (*engine, error) {
	dev, err := pawnio.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open privileged channel: %w", err)
	}

	err = dev.LoadModule(mod)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("could not load access module: %w", err)
	}

	opts := []ec.Option{}
	lck, err := ecmutex.Open()
	if err != nil {
		lck = nil
	} else {
		opts = append(opts, ec.WithLock(lck))
	}

	return &engine{
		rdo:  ec.NewReader(dev, opts...),
		lock: lck != nil,
		shut: func() error {
			if lck != nil {
				_ = lck.Close()
			}
			return dev.Close()
		},
	}, nil
}
