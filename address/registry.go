// File: address/registry.go
// Author: momentics <momentics@gmail.com>
//
// Kind-tracking registry for live address records.

package address

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
)

type kind int

const (
	kindSockAddr kind = iota + 1
	kindAddrInfo
)

func (k kind) String() string {
	if k == kindAddrInfo {
		return "addrinfo"
	}
	return "sockaddr"
}

type record interface {
	free() error
}

// QuarantineSize is how many freed records stay mapped before their memory
// is returned. While a record is quarantined its address cannot be handed to
// a new record, so a repeated free of the stale pointer finds nothing.
const QuarantineSize = 1024

var (
	regMu      sync.Mutex
	live       = make(map[uintptr]record)
	counts     [3]int64
	quarantine = queue.New()
)

func init() {
	control.Probes().RegisterProbe("address.live", func() any {
		return map[string]int64{
			kindSockAddr.String(): SockAddrCount(),
			kindAddrInfo.String(): AddrInfoCount(),
			"quarantined":         int64(Quarantined()),
		}
	})
}

func kindOf(r record) kind {
	if _, ok := r.(*AddrInfo); ok {
		return kindAddrInfo
	}
	return kindSockAddr
}

func track(ptr uintptr, r record) {
	k := kindOf(r)
	regMu.Lock()
	live[ptr] = r
	counts[k]++
	regMu.Unlock()
	control.Metrics().LiveAddresses.WithLabelValues(k.String()).Inc()
}

func release(ptr uintptr, want kind) error {
	if ptr == 0 {
		return nil
	}
	regMu.Lock()
	r, ok := live[ptr]
	if !ok {
		regMu.Unlock()
		return nil
	}
	if got := kindOf(r); got != want {
		regMu.Unlock()
		l := logger.Named("address")
		l.Warn().Str("record", got.String()).Str("freed_as", want.String()).Msg("address record freed with the wrong function")
		return fmt.Errorf("address: %#x is a %s record, not %s: %w", ptr, got, want, api.ErrWrongAddressKind)
	}
	delete(live, ptr)
	counts[want]--
	quarantine.Add(r)
	var evicted record
	if quarantine.Length() > QuarantineSize {
		evicted = quarantine.Remove().(record)
	}
	regMu.Unlock()
	control.Metrics().LiveAddresses.WithLabelValues(want.String()).Dec()
	if evicted != nil {
		if err := evicted.free(); err != nil {
			l := logger.Named("address")
			l.Error().Err(err).Msg("releasing quarantined address record failed")
		}
	}
	return nil
}

// Quarantined is the number of freed records whose memory is still held.
func Quarantined() int {
	regMu.Lock()
	defer regMu.Unlock()
	return quarantine.Length()
}

// LookupSockAddr returns the live literal record at ptr.
func LookupSockAddr(ptr uintptr) (*SockAddr, error) {
	regMu.Lock()
	r, ok := live[ptr]
	regMu.Unlock()
	if !ok {
		return nil, api.ErrUnknownAddress
	}
	sa, ok := r.(*SockAddr)
	if !ok {
		return nil, api.ErrWrongAddressKind
	}
	return sa, nil
}

// LookupAddrInfo returns the live resolved chain at ptr.
func LookupAddrInfo(ptr uintptr) (*AddrInfo, error) {
	regMu.Lock()
	r, ok := live[ptr]
	regMu.Unlock()
	if !ok {
		return nil, api.ErrUnknownAddress
	}
	ai, ok := r.(*AddrInfo)
	if !ok {
		return nil, api.ErrWrongAddressKind
	}
	return ai, nil
}

// SockAddrCount is the number of live literal records.
func SockAddrCount() int64 {
	regMu.Lock()
	defer regMu.Unlock()
	return counts[kindSockAddr]
}

// AddrInfoCount is the number of live resolved chains.
func AddrInfoCount() int64 {
	regMu.Lock()
	defer regMu.Unlock()
	return counts[kindAddrInfo]
}
