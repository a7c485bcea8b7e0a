// File: cmd/netioctl/probe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/reactor"
	"github.com/momentics/hioload-netio/transport"
)

type probeResult struct {
	Target    string `json:"target"`
	Endpoint  string `json:"endpoint"`
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func newProbeCmd() *cobra.Command {
	var timeoutMs int
	cmd := &cobra.Command{
		Use:   "probe HOST:PORT",
		Short: "Connect without blocking and wait for writability through the reactor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, portStr, err := net.SplitHostPort(args[0])
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", portStr, err)
			}
			res, err := probe(cmd, host, port, timeoutMs)
			if err != nil {
				return err
			}
			res.Target = args[0]
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&timeoutMs, "timeout", "t", 3000, "connect timeout in milliseconds")
	return cmd
}

func probe(cmd *cobra.Command, host string, port, timeoutMs int) (res probeResult, err error) {
	ai, err := address.Resolve(cmd.Context(), host, port)
	if err != nil {
		return res, err
	}
	defer address.FreeAddrInfo(ai.Pointer())
	res.Endpoint = ai.First().String()

	fd, err := transport.SocketTCP(false)
	if err != nil {
		return res, err
	}
	defer transport.Close(fd)

	q, err := reactor.NewQueue(1)
	if err != nil {
		return res, err
	}
	defer q.Close()
	res.Backend = q.Backend().Name()

	start := time.Now()
	defer func() { res.ElapsedMs = time.Since(start).Milliseconds() }()

	err = transport.ConnectAddrInfo(fd, ai)
	switch {
	case err == nil:
		res.Connected = true
		return res, nil
	case !errors.Is(err, api.ErrInProgress):
		res.Error = err.Error()
		return res, nil
	}

	if err := q.WriteFD(fd, uint64(fd)); err != nil {
		return res, err
	}
	n, err := q.Poll(timeoutMs)
	if err != nil {
		return res, err
	}
	if n == 0 {
		res.Error = "timed out"
		return res, nil
	}
	if err := transport.ConnectError(fd); err != nil {
		res.Error = err.Error()
		return res, nil
	}
	res.Connected = true
	return res, nil
}
