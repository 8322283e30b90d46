// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-mon continuously monitors all 256 EC registers and
// highlights the cells that changed between sweeps.
//
// Usage: ecr-mon [OPTIONS]
//
// Example:
//
//	$> ecr-mon -i 3
//	$> ecr-mon -watch 30,68 -i 2
//
// Registers named with -watch raise an alert (and, when the MAIL_*
// environment variables are set, a mail) whenever their value
// changes.
package main // import "github.com/go-ec/ecr/cmd/ecr-mon"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"

	"github.com/go-ec/ecr"
	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/internal/grid"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	log.SetPrefix("ecr-mon: ")
	log.SetFlags(0)

	var (
		ival    = flag.Int("i", 5, "update interval in seconds (min: 2)")
		decimal = flag.Bool("d", false, "display values in decimal instead of hex")
		stats   = flag.Bool("s", false, "show statistics on exit")
		watch   = flag.String("watch", "", "comma-separated hex register addresses to alert on")
		mod     = flag.String("mod", pawnio.DefaultModule, "path to the LPC ACPI-EC PawnIO module")
		doMon   = flag.Bool("pmon", false, "record CPU/memory usage of this process while polling")
		freq    = flag.Duration("pmon-freq", 1*time.Second, "pmon sampling frequency")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *version {
		v, sum := ecr.Version()
		fmt.Printf("ecr-mon %s %s\n", v, sum)
		return
	}

	if *ival < 2 {
		log.Fatalf("minimum update interval is 2 seconds")
	}

	regs, err := parseWatch(*watch)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	cfg := config{
		interval: time.Duration(*ival) * time.Second,
		decimal:  *decimal,
		stats:    *stats,
		watch:    regs,
		mod:      *mod,
		doMon:    *doMon,
		freq:     *freq,
	}

	err = run(cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type config struct {
	interval time.Duration
	decimal  bool
	stats    bool
	watch    []uint8
	mod      string
	doMon    bool
	freq     time.Duration
}

func run(cfg config) error {
	eng, err := newEngine(cfg.mod)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	if cfg.doMon {
		stopMon, err := selfMonitor(cfg.freq)
		if err != nil {
			return err
		}
		defer stopMon()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	var (
		grp  errgroup.Group
		done = make(chan struct{})
	)
	grp.Go(func() error {
		<-stop
		close(done)
		return nil
	})
	grp.Go(func() error {
		return monitor(eng.rdo, cfg, done)
	})

	err = grp.Wait()
	if cfg.stats {
		eng.rdo.Stats().Format(os.Stdout, eng.lock)
	}
	return err
}

func monitor(rdo *ec.Reader, cfg config, done <-chan struct{}) error {
	var (
		cur, prev grid.Sweep

		al = newAlerter(cfg.watch, cfg.interval)
	)
	for {
		start := time.Now()
		grid.Collect(rdo, &cur)
		dur := time.Since(start)
		n := grid.Diff(&cur, &prev)

		fmt.Print("\x1b[2J\x1b[H") // clear screen, home cursor
		fmt.Printf("EC Register Monitor (16x16 grid) - updates every %v\n", cfg.interval)
		fmt.Printf("Press Ctrl+C to exit\n")
		fmt.Printf("Red=changed, Green=non-zero unchanged, Gray=zero/empty\n")
		fmt.Printf("Changes detected: %d | Read time: %v\n", n, dur.Round(time.Millisecond))
		fmt.Printf("=======================================================\n\n")
		grid.Render(os.Stdout, &cur, grid.Options{
			Decimal: cfg.decimal,
			Colors:  true,
			Monitor: true,
		})

		al.check(&cur)
		prev = cur

		rest := cfg.interval - dur
		if rest < 0 {
			rest = 0
		}
		select {
		case <-done:
			return nil
		case <-time.After(rest):
		}
	}
}

// selfMonitor records CPU and memory usage of this process, useful to
// check how much the busy-wait polling costs on a given machine.
func selfMonitor(freq time.Duration) (stop func(), err error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("could not start self-monitoring: %w", err)
	}

	f, err := os.Create("ecr-mon-pmon.log")
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run self-monitoring: %+v", err)
		}
	}()

	return func() {
		if err := p.Kill(); err != nil {
			log.Printf("could not stop self-monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}

func parseWatch(list string) ([]uint8, error) {
	if list == "" {
		return nil, nil
	}
	var regs []uint8
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		reg, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("could not parse watched register %q: %w", tok, err)
		}
		regs = append(regs, uint8(reg))
	}
	return regs, nil
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
