// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ecmutex opens the system-wide named mutex that firmware
// tools and hardware monitors share to serialize EC port access. The
// mutex is only ever opened, never created: when nothing on the
// system provides it, callers run without cross-process
// synchronization.
package ecmutex // import "github.com/go-ec/ecr/internal/ecmutex"

// Well-known names of the shared EC access mutex, tried in order.
const (
	Name       = "Access_EC"
	GlobalName = `Global\Access_EC`
)
