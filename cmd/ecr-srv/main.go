// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecr-srv starts a TDAQ server publishing EC register sweeps.
package main // import "github.com/go-ec/ecr/cmd/ecr-srv"

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-ec/ecr/ec"
	"github.com/go-ec/ecr/internal/ecmutex"
	"github.com/go-ec/ecr/pawnio"
)

func main() {
	cmd := flags.New()

	mod := pawnio.DefaultModule
	if len(cmd.Args) > 0 {
		mod = cmd.Args[0]
	}

	dev := ec.NewServer(5*time.Second, func() (*ec.Reader, func() error, error) {
		return newReader(mod)
	})

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/ec-regs", dev.Regs)

	srv.RunHandle(dev.Run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

func newReader(mod string) (*ec.Reader, func() error, error) {
	dev, err := pawnio.Open()
	if err != nil {
		return nil, nil, err
	}

	err = dev.LoadModule(mod)
	if err != nil {
		_ = dev.Close()
		return nil, nil, err
	}

	opts := []ec.Option{}
	lck, err := ecmutex.Open()
	if err != nil {
		lck = nil
	} else {
		opts = append(opts, ec.WithLock(lck))
	}

	shut := func() error {
		if lck != nil {
			_ = lck.Close()
		}
		return dev.Close()
	}
	return ec.NewReader(dev, opts...), shut, nil
}
