// File: transport/options.go
// Author: momentics <momentics@gmail.com>
//
// Socket option get/set. Each call is one syscall with no retry.

package transport

import (
	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
)

func setOpt(fd int, opt sockOpt, v int, op string) error {
	if err := sysSetOpt(fd, opt, v); err != nil {
		return osError(api.ErrCodeOS, op, err)
	}
	return nil
}

func getOpt(fd int, opt sockOpt, op string) (int, error) {
	v, err := sysGetOpt(fd, opt)
	if err != nil {
		return -1, osError(api.ErrCodeOS, op, err)
	}
	return v, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SetKeepAlive enables keepalive probing after seconds of idleness, repeated
// every seconds. seconds <= 0 disables keepalive.
func SetKeepAlive(fd, seconds int) error {
	if seconds <= 0 {
		return setOpt(fd, optKeepAlive, 0, "set keepalive")
	}
	if err := setOpt(fd, optKeepAlive, 1, "set keepalive"); err != nil {
		return err
	}
	if err := setOpt(fd, optKeepIdle, seconds, "set keepalive idle"); err != nil {
		return err
	}
	return setOpt(fd, optKeepIntvl, seconds, "set keepalive interval")
}

// GetKeepAlive returns the keepalive idle time in seconds, or 0 when
// keepalive is off.
func GetKeepAlive(fd int) (int, error) {
	on, err := getOpt(fd, optKeepAlive, "get keepalive")
	if err != nil || on == 0 {
		return 0, err
	}
	return getOpt(fd, optKeepIdle, "get keepalive idle")
}

// SetSndBuf sets the kernel send buffer size.
func SetSndBuf(fd, size int) error { return setOpt(fd, optSndBuf, size, "set sndbuf") }

// GetSndBuf reads the kernel send buffer size. Linux reports double the
// requested value.
func GetSndBuf(fd int) (int, error) { return getOpt(fd, optSndBuf, "get sndbuf") }

func SetRcvBuf(fd, size int) error { return setOpt(fd, optRcvBuf, size, "set rcvbuf") }

func GetRcvBuf(fd int) (int, error) { return getOpt(fd, optRcvBuf, "get rcvbuf") }

// SetTCPNoDelay toggles Nagle's algorithm off (true) or on (false).
func SetTCPNoDelay(fd int, on bool) error {
	return setOpt(fd, optNoDelay, boolInt(on), "set nodelay")
}

func GetTCPNoDelay(fd int) (bool, error) {
	v, err := getOpt(fd, optNoDelay, "get nodelay")
	return v != 0, err
}

func SetReuseAddr(fd int, on bool) error {
	return setOpt(fd, optReuseAddr, boolInt(on), "set reuseaddr")
}

// Join adds fd to the multicast group on the interface with address bind.
// Both addresses are host-order IPv4 values.
func Join(fd int, bind, group uint32) bool {
	ok, _ := JoinErr(fd, bind, group)
	return ok
}

// JoinErr is Join with the OS error.
func JoinErr(fd int, bind, group uint32) (bool, error) {
	if err := sysJoin(fd, be4(bind), be4(group)); err != nil {
		return false, osError(api.ErrCodeOS, "join "+address.FormatIPv4(group), err)
	}
	return true, nil
}

func be4(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// ConfigureKeepAlive applies the configured keepalive period to fd. A
// negative period leaves the socket untouched. Failure is logged, not fatal.
func ConfigureKeepAlive(fd int) {
	seconds := control.Store().GetSnapshot().Net.KeepAliveSeconds
	if seconds < 0 {
		return
	}
	if err := SetKeepAlive(fd, seconds); err != nil {
		l := logger.Named("transport")
		l.Error().Err(err).Int("fd", fd).Int("seconds", seconds).Msg("could not configure keepalive")
	}
}

// Configure applies keepalive, send buffer and no-delay settings from cfg.
func Configure(fd int, cfg control.NetConfig) error {
	if cfg.KeepAliveSeconds >= 0 {
		if err := SetKeepAlive(fd, cfg.KeepAliveSeconds); err != nil {
			return err
		}
	}
	if cfg.SndBuf > 0 {
		if err := SetSndBuf(fd, cfg.SndBuf); err != nil {
			return err
		}
	}
	return SetTCPNoDelay(fd, cfg.NoDelay)
}
