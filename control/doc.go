// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, and debug introspection for hioload-netio.
//
// Provides concurrent-safe state handling primitives including:
//   - Viper-backed configuration with snapshot reads and reload listeners
//   - Prometheus counters and gauges for the reactor, socket driver and address registry
//   - Debug probe registration and state export
package control
