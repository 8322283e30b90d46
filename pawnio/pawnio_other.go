// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package pawnio

import "errors"

var errNotSupported = errors.New("pawnio: driver only available on windows")

func pawnioOpenImpl() (conn, error) {
	return nil, errNotSupported
}
