// File: cmd/netioctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// netioctl exercises the I/O layer from the command line: layout dump, name
// resolution, non-blocking connect probes and a reactor-driven echo server.

package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by the linker or read from build info.
var Version = "DEV"

func main() {
	if Version == "DEV" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" && info.Main.Version != "" {
			Version = info.Main.Version
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newRootCmd(Version).ExecuteContext(ctx))
}
