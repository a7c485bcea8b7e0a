// File: cmd/netioctl/resolve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-netio/address"
)

type resolved struct {
	Host      string   `json:"host"`
	Port      int      `json:"port"`
	Addresses []string `json:"addresses"`
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve HOST [PORT]",
		Short: "Resolve a host name to IPv4 endpoints",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port := 0
			if len(args) == 2 {
				p, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[1], err)
				}
				port = p
			}
			ai, err := address.Resolve(cmd.Context(), args[0], port)
			if err != nil {
				return err
			}
			defer address.FreeAddrInfo(ai.Pointer())

			out := resolved{Host: ai.Host(), Port: port}
			for i := 0; i < ai.Len(); i++ {
				out.Addresses = append(out.Addresses, ai.At(i).String())
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
