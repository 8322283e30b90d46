// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-shell provides an interactive shell to inspect EC
// registers.
//
// Usage: ecr-shell [OPTIONS]
//
// Example:
//
//	$> ecr-shell
//	ecr> read 30
//	0x30:4C
//	ecr> dump
//	ecr> stats
//	ecr> quit
package main // import "github.com/go-ec/ecr/cmd/ecr-shell"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/go-ec/ecr"
	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/internal/grid"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	log.SetPrefix("ecr-shell: ")
	log.SetFlags(0)

	var (
		verbose = flag.Bool("v", false, "enable verbose port tracing")
		mod     = flag.String("mod", pawnio.DefaultModule, "path to the LPC ACPI-EC PawnIO module")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *version {
		v, sum := ecr.Version()
		fmt.Printf("ecr-shell %s %s\n", v, sum)
		return
	}

	err := run(*verbose, *mod)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(verbose bool, mod string) error {
	eng, err := newEngine(verbose, mod)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	sh := shell{eng: eng, w: os.Stdout}
	return sh.loop()
}

type shell struct {
	eng *engine
	w   io.Writer
}

func (sh *shell) loop() error {
	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	for {
		o, err := term.Prompt("ecr> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Fprintf(sh.w, "\n")
				return nil
			}
			return fmt.Errorf("could not read prompt line: %w", err)
		}
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		term.AppendHistory(o)

		quit, err := sh.dispatch(o)
		if err != nil {
			log.Printf("%+v", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

func (sh *shell) dispatch(line string) (quit bool, err error) {
	toks := strings.Fields(line)
	switch toks[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		sh.help()
		return false, nil
	case "read":
		return false, sh.read(toks[1:])
	case "dump":
		return false, sh.dump()
	case "stats":
		sh.eng.rdo.Stats().Format(sh.w, sh.eng.lock)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", toks[0])
	}
}

func (sh *shell) help() {
	fmt.Fprintf(sh.w, `Commands:

 read REG1 [REG2 ...]  read EC registers (hex addresses)
 dump                  dump all 256 registers as a 16x16 grid
 stats                 show access statistics
 help                  this help
 quit                  quit the shell
`)
}

func (sh *shell) read(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing register address(es)")
	}
	o := new(strings.Builder)
	for i, arg := range args {
		reg, err := strconv.ParseUint(arg, 16, 8)
		if err != nil {
			return fmt.Errorf("could not parse register address %q: %w", arg, err)
		}
		if i > 0 {
			o.WriteString(",")
		}
		v, err := sh.eng.rdo.ReadRegister(uint8(reg))
		if err != nil {
			fmt.Fprintf(o, "0x%02X:??", reg)
			continue
		}
		fmt.Fprintf(o, "0x%02X:%02X", reg, v)
	}
	fmt.Fprintln(sh.w, o)
	return nil
}

func (sh *shell) dump() error {
	var cells grid.Sweep
	grid.Collect(sh.eng.rdo, &cells)
	grid.Render(sh.w, &cells, grid.Options{Colors: true})
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
