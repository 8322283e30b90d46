// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"time"

	"github.com/go-daq/tdaq"
)

// sweepSize is the wire size of one published sweep: 256 register
// bytes followed by a 256-bit validity bitmap (bit set = genuine
// value, bit clear = failed read rendered as the Sentinel byte).
const sweepSize = 256 + 256/8

// Server publishes full EC register sweeps on a TDAQ network. One
// sweep is acquired per period while the run is started and made
// available on the output end-point the server was attached to.
type Server struct {
	freq time.Duration

	newReader func() (*Reader, func() error, error)

	rdo   *Reader
	close func() error

	data chan []byte
}

// NewServer creates a Server sampling the EC every freq. The reader
// is not built until the /init command arrives, through newReader,
// which also returns the shutdown function for the underlying
// privileged channel.
func NewServer(freq time.Duration, newReader func() (*Reader, func() error, error)) *Server {
	return &Server{
		freq:      freq,
		newReader: newReader,
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not initialize EC reader: %+v", err)
		return fmt.Errorf("could not initialize EC reader: %w", err)
	}
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not reset EC reader: %+v", err)
		return fmt.Errorf("could not reset EC reader: %w", err)
	}
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	stats := srv.rdo.Stats()
	ctx.Msg.Debugf("received /stop command... -> reads=%d fails=%d retries=%d",
		stats.Reads, stats.Fails, stats.Retries,
	)
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return srv.shutdown()
}

// Regs is the output handler for the sweep end-point.
func (srv *Server) Regs(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Run samples the whole register space every period and publishes the
// result, dropping sweeps when the consumer lags.
func (srv *Server) Run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
			start := time.Now()
			raw := srv.sweep()
			select {
			case srv.data <- raw:
			default:
			}
			if rest := srv.freq - time.Since(start); rest > 0 {
				time.Sleep(rest)
			}
		}
	}
}

// sweep reads all 256 registers and encodes values plus validity
// bitmap. Failed registers carry the Sentinel byte and a cleared
// validity bit; a failing register never aborts the sweep.
func (srv *Server) sweep() []byte {
	restore := srv.rdo.SuppressTrace()
	defer restore()

	raw := make([]byte, sweepSize)
	for i := 0; i < 256; i++ {
		v, err := srv.rdo.ReadRegister(uint8(i))
		if err != nil {
			raw[i] = Sentinel
			continue
		}
		raw[i] = v
		raw[256+i/8] |= 1 << (uint(i) % 8)
	}
	return raw
}

func (srv *Server) reset() error {
	err := srv.shutdown()
	if err != nil {
		return err
	}
	rdo, close, err := srv.newReader()
	if err != nil {
		return err
	}
	srv.rdo = rdo
	srv.close = close
	srv.data = make(chan []byte, 8)
	return nil
}

func (srv *Server) shutdown() error {
	if srv.close == nil {
		return nil
	}
	err := srv.close()
	srv.close = nil
	srv.rdo = nil
	return err
}
