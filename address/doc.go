// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package address builds and resolves IPv4 socket address records and owns
// their lifecycle. Every record lives in native memory at a fixed address so
// it can cross the integer boundary of the facade. A registry keyed by that
// address remembers each record's kind: freeing twice or freeing null is a
// no-op, and freeing with the wrong function is reported and changes nothing.
package address
