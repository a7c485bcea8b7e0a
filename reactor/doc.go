// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer: one kernel event queue per
// Backend, a kevent-style change list applied before every wait, and a bounded
// wait that survives signal interruptions without shortening or stretching the
// caller's deadline. Implementations: epoll (Linux) and kqueue (Darwin).
//
// A Backend has exactly one waiter. Concurrent Wait calls on the same Backend
// are outside the contract on every platform.
package reactor
