// File: transport/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Pre-resolved io_results_total children so the I/O path never hashes labels.

package transport

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
)

type ioOp uint8

const (
	opSend ioOp = iota
	opRecv
	opPeek
	numOps
)

func (o ioOp) String() string {
	switch o {
	case opSend:
		return "send"
	case opRecv:
		return "recv"
	default:
		return "peek"
	}
}

// Result slots: bytes, then the three negative codes in order.
var slotResults = [...]api.Result{0, api.ResultPeerDisconnect, api.ResultIOError, api.ResultRetry}

var (
	ioCountersOnce sync.Once
	ioCounters     [numOps][len(slotResults)]prometheus.Counter
)

func resultSlot(res api.Result) int {
	for i := 1; i < len(slotResults); i++ {
		if res == slotResults[i] {
			return i
		}
	}
	return 0
}

func observe(op ioOp, res api.Result) {
	ioCountersOnce.Do(func() {
		vec := control.Metrics().IOResults
		for o := ioOp(0); o < numOps; o++ {
			for i, r := range slotResults {
				ioCounters[o][i] = vec.WithLabelValues(o.String(), r.Label())
			}
		}
	})
	ioCounters[op][resultSlot(res)].Inc()
}
