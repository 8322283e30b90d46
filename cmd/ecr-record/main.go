// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-record sweeps all 256 EC registers and records the
// sweep in the sweeps database.
//
// Usage: ecr-record [OPTIONS]
//
// Example:
//
//	$> ecr-record -db ecregs -node laptop-42
//	ecr-record: recorded sweep for node "laptop-42" (256 regs, 254 ok)
package main // import "github.com/go-ec/ecr/cmd/ecr-record"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-ec/ecr"
	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/ecdb"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/internal/grid"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	log.SetPrefix("ecr-record: ")
	log.SetFlags(0)

	var (
		dbname  = flag.String("db", "ecregs", "name of the sweeps database")
		node    = flag.String("node", hostname(), "node name to record the sweep under")
		mod     = flag.String("mod", pawnio.DefaultModule, "path to the LPC ACPI-EC PawnIO module")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *version {
		v, sum := ecr.Version()
		fmt.Printf("ecr-record %s %s\n", v, sum)
		return
	}

	err := run(*dbname, *node, *mod)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func run(dbname, node, mod string) error {
	eng, err := newEngine(mod)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	db, err := ecdb.Open(dbname)
	if err != nil {
		return fmt.Errorf("could not open sweeps db: %w", err)
	}
	defer db.Close()

	var cells grid.Sweep
	grid.Collect(eng.rdo, &cells)

	err = db.InsertSweep(context.Background(), node, &cells)
	if err != nil {
		return fmt.Errorf("could not record sweep: %w", err)
	}

	ok := 0
	for _, cell := range cells {
		if cell.OK {
			ok++
		}
	}
	log.Printf("recorded sweep for node %q (%d regs, %d ok)", node, len(cells), ok)
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
