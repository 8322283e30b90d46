// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-read reads one or more EC registers.
//
// Usage: ecr-read [OPTIONS] REG1 [REG2 [REG3 ...]]
//
// Example:
//
//	$> ecr-read 30
//	0x30:4C
//	$> ecr-read -d 30 31 32
//	0x30:76,0x31:0,0x32:255
//
// Register addresses are hexadecimal. A register that could not be
// read displays as "??".
package main // import "github.com/go-ec/ecr/cmd/ecr-read"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-ec/ecr"
	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	log.SetPrefix("ecr-read: ")
	log.SetFlags(0)

	var (
		verbose = flag.Bool("v", false, "enable verbose port tracing")
		decimal = flag.Bool("d", false, "display values in decimal instead of hex")
		stats   = flag.Bool("s", false, "show statistics after the reads")
		mod     = flag.String("mod", pawnio.DefaultModule, "path to the LPC ACPI-EC PawnIO module")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Usage = func() {
		fmt.Printf(`ecr-read reads one or more EC registers.

Usage: ecr-read [OPTIONS] REG1 [REG2 [REG3 ...]]

Example:

 $> ecr-read 30
 0x30:4C

Register addresses are hexadecimal.

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		v, sum := ecr.Version()
		fmt.Printf("ecr-read %s %s\n", v, sum)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing register address(es)")
	}

	err := run(os.Stdout, flag.Args(), *verbose, *decimal, *stats, *mod)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, args []string, verbose, decimal, stats bool, mod string) error {
	eng, err := newEngine(verbose, mod)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	o := new(strings.Builder)
	for i, arg := range args {
		reg, err := strconv.ParseUint(arg, 16, 8)
		if err != nil {
			return fmt.Errorf("could not parse register address %q: %w", arg, err)
		}
		if i > 0 {
			o.WriteString(",")
		}
		v, err := eng.rdo.ReadRegister(uint8(reg))
		switch {
		case err != nil:
			fmt.Fprintf(o, "0x%02X:??", reg)
		case decimal:
			fmt.Fprintf(o, "0x%02X:%d", reg, v)
		default:
			fmt.Fprintf(o, "0x%02X:%02X", reg, v)
		}
	}
	fmt.Fprintln(w, o)

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

func newEngine(verbose bool, mod string) (*engine, error) {
	dev, err := pawnio.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open privileged channel: %w", err)
	}

	err = dev.LoadModule(mod)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("could not load access module: %w", err)
	}

	opts := []ec.Option{ec.WithVerbose(verbose)}
	lck, err := ecmutex.Open()
	if err != nil {
		if verbose {
			log.Printf("could not open EC mutex, continuing without sync: %+v", err)
		}
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
