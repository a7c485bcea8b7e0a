// File: cmd/netioctl/layout.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-netio/layout"
)

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the native event record layout and platform constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), layout.Get())
		},
	}
}
