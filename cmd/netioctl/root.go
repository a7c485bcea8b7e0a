// File: cmd/netioctl/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
)

func newRootCmd(version string) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:          "netioctl",
		Short:        "Inspect and exercise the non-blocking network I/O layer",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cfgFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file (toml, yaml or json)")

	cmd.AddCommand(
		newLayoutCmd(),
		newResolveCmd(),
		newProbeCmd(),
		newEchoCmd(),
	)
	return cmd
}

// loadConfig installs the file configuration in the process store and keeps
// the logger in step with later reloads.
func loadConfig(path string) error {
	cfg, err := control.Load(path)
	if err != nil {
		return err
	}
	store := control.Store()
	store.OnReload(func(c control.Config) {
		logger.Configure(c.Logging.LogLevel, c.Logging.LogFormat)
	})
	return store.SetConfig(*cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
