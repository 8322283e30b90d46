// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ecdb stores EC register sweeps in a MySQL database, one row
// per sweep, so thermal investigations can correlate register
// activity across machines and time.
package ecdb // import "github.com/go-ec/ecr/ecdb"

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/go-ec/ecr/internal/grid"
)

const host = "localhost"

var (
	usr = "ecr"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to record and retrieve EC register
// sweeps from the sweeps database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the sweeps database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("ecdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("ecdb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ecdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// InsertSweep records one sweep for the given node. Values and the
// validity mask are stored hex-encoded.
func (db *DB) InsertSweep(ctx context.Context, node string, cells *grid.Sweep) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	regs, valid := encode(cells)
	_, err := db.db.ExecContext(
		ctx,
		"INSERT INTO sweeps (node, datetime, regs, valid) VALUES (?, NOW(), ?, ?)",
		node, regs, valid,
	)
	if err != nil {
		return fmt.Errorf("ecdb: could not insert sweep for node %q: %w", node, err)
	}

	return nil
}

// LastSweep retrieves the most recent sweep recorded for the given
// node.
func (db *DB) LastSweep(ctx context.Context, node string) (*grid.Sweep, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		regs  string
		valid string
	)
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT regs, valid FROM sweeps WHERE node = ? ORDER BY datetime DESC LIMIT 1",
		node,
	)
	if err != nil {
		return nil, fmt.Errorf("ecdb: could not query last sweep for node %q: %w", node, err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&regs, &valid)
		if err != nil {
			return nil, fmt.Errorf("ecdb: could not get sweep values for node %q: %w", node, err)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ecdb: could not scan db for node %q: %w", node, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ecdb: context error while retrieving sweep: %w", err)
	}

	if regs == "" {
		return nil, fmt.Errorf("ecdb: no sweep recorded for node %q", node)
	}

	return decode(regs, valid)
}

func encode(cells *grid.Sweep) (regs, valid string) {
	var (
		raw  [256]byte
		mask [32]byte
	)
	for i, cell := range cells {
		raw[i] = cell.Value
		if cell.OK {
			mask[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return hex.EncodeToString(raw[:]), hex.EncodeToString(mask[:])
}

func decode(regs, valid string) (*grid.Sweep, error) {
	raw, err := hex.DecodeString(regs)
	if err != nil {
		return nil, fmt.Errorf("ecdb: could not decode sweep values: %w", err)
	}
	mask, err := hex.DecodeString(valid)
	if err != nil {
		return nil, fmt.Errorf("ecdb: could not decode sweep validity mask: %w", err)
	}
	if len(raw) != 256 || len(mask) != 32 {
		return nil, fmt.Errorf("ecdb: invalid sweep encoding (regs=%d, valid=%d)", len(raw), len(mask))
	}

	var cells grid.Sweep
	for i := range cells {
		cells[i].Value = raw[i]
		cells[i].OK = mask[i/8]&(1<<(uint(i)%8)) != 0
	}
	return &cells, nil
}
