// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport is the non-blocking socket driver: socket creation and
// options, connect, and send/recv/peek normalized into api.Result codes.
// Descriptors are plain ints owned by the caller. The package adds no locking
// of its own; concurrent use of one descriptor follows kernel semantics.
package transport
