// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package facade is the integer boundary of the I/O layer: every operation
// takes and returns plain ints and native addresses, reports failure through
// its return value, and leaves the OS error code in a side channel read with
// Errno. Nothing here panics or blocks except SubmitAndWait and GetAddrInfo.
package facade
