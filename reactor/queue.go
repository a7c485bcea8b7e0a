// File: reactor/queue.go
// Author: momentics <momentics@gmail.com>
//
// Queue pairs a Backend with a change list and an event list in native
// memory, for loops that build changes one descriptor at a time.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/layout"
	"github.com/momentics/hioload-netio/pool"
)

// Fired is a copy of one fired record.
type Fired struct {
	Fd     int
	Filter int16
	Flags  uint16
	Fflags uint32
	Data   int64
	Udata  uint64
}

// EOF reports hangup or peer shutdown on the descriptor.
func (f Fired) EOF() bool { return f.Flags&layout.EvEOF() != 0 }

// Err reports a rejected change; Data carries the errno.
func (f Fired) Err() bool { return f.Flags&layout.EvError() != 0 }

// Queue is single-threaded: one goroutine builds changes and polls.
type Queue struct {
	backend  Backend
	capacity int
	t        *layout.Table

	changeBuf uintptr
	eventBuf  uintptr
	changes   layout.Records
	events    layout.Records
	offset    int
	ready     int
}

// NewQueue creates a backend for this platform and lists of capacity records.
func NewQueue(capacity int) (*Queue, error) {
	b, err := New()
	if err != nil {
		return nil, err
	}
	q, err := NewQueueWith(b, capacity)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return q, nil
}

// NewQueueWith wraps an existing backend. The Queue takes ownership of it.
func NewQueueWith(b Backend, capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("reactor: queue capacity %d: %w", capacity, api.ErrInvalidArgument)
	}
	t := new(layout.Table)
	*t = layout.Get()
	if !t.Supported {
		return nil, api.ErrNotSupported
	}
	changeBuf, err := pool.Calloc(capacity, t.SizeofEvent, pool.TagRecords)
	if err != nil {
		return nil, err
	}
	eventBuf, err := pool.Calloc(capacity, t.SizeofEvent, pool.TagRecords)
	if err != nil {
		_ = pool.Free(changeBuf)
		return nil, err
	}
	return &Queue{
		backend:   b,
		capacity:  capacity,
		t:         t,
		changeBuf: changeBuf,
		eventBuf:  eventBuf,
		changes:   layout.View(changeBuf, capacity),
		events:    layout.View(eventBuf, capacity),
	}, nil
}

// Backend returns the underlying backend.
func (q *Queue) Backend() Backend { return q.backend }

// Capacity is the size of both lists.
func (q *Queue) Capacity() int { return q.capacity }

// Offset is the next change slot ReadFD/WriteFD/RemoveFD will write.
func (q *Queue) Offset() int { return q.offset }

// SetWriteOffset moves the change cursor.
func (q *Queue) SetWriteOffset(i int) error {
	if i < 0 || i > q.capacity {
		return fmt.Errorf("reactor: write offset %d outside [0,%d]: %w", i, q.capacity, api.ErrInvalidArgument)
	}
	q.offset = i
	return nil
}

func (q *Queue) put(fd int, filter int16, flags uint16, data uint64) error {
	if q.closed() {
		return api.ErrQueueClosed
	}
	if q.offset >= q.capacity {
		return fmt.Errorf("reactor: change list full (%d): %w", q.capacity, api.ErrResourceExhausted)
	}
	q.changes.Set(q.offset, fd, filter, flags, data)
	q.offset++
	return nil
}

// ReadFD queues a one-shot read registration carrying data.
func (q *Queue) ReadFD(fd int, data uint64) error {
	return q.put(fd, q.t.EvfiltRead, q.t.EvAdd|q.t.EvOneshot, data)
}

// WriteFD queues a one-shot write registration carrying data.
func (q *Queue) WriteFD(fd int, data uint64) error {
	return q.put(fd, q.t.EvfiltWrite, q.t.EvAdd|q.t.EvOneshot, data)
}

// RemoveFD queues removal of one filter of fd.
func (q *Queue) RemoveFD(fd int, filter int16) error {
	return q.put(fd, filter, q.t.EvDelete, 0)
}

// Register submits the first n queued changes without waiting and resets the
// cursor. A rejected change fails the call.
func (q *Queue) Register(n int) error {
	if n < 0 || n > q.capacity {
		return fmt.Errorf("reactor: register %d of %d: %w", n, q.capacity, api.ErrInvalidArgument)
	}
	if q.closed() {
		return api.ErrQueueClosed
	}
	q.offset = 0
	if n == 0 {
		return nil
	}
	_, err := q.backend.Wait(q.changes.Slice(0, n), layout.Records{}, 0)
	return err
}

// Poll submits pending changes, then waits up to timeoutMs for events. It
// returns the number of fired records readable with Event.
func (q *Queue) Poll(timeoutMs int) (int, error) {
	if q.closed() {
		q.ready = 0
		return 0, api.ErrQueueClosed
	}
	n := q.offset
	q.offset = 0
	got, err := q.backend.Wait(q.changes.Slice(0, n), q.events, timeoutMs)
	if err != nil {
		q.ready = 0
		return 0, err
	}
	q.ready = got
	return got, nil
}

// Event copies fired record i of the last Poll.
func (q *Queue) Event(i int) Fired {
	if i < 0 || i >= q.ready {
		panic(fmt.Sprintf("reactor: event %d out of range [0:%d]", i, q.ready))
	}
	return Fired{
		Fd:     q.events.Fd(i),
		Filter: q.events.Filter(i),
		Flags:  q.events.Flags(i),
		Fflags: q.events.Fflags(i),
		Data:   q.events.Data(i),
		Udata:  q.events.Udata(i),
	}
}

func (q *Queue) closed() bool { return q.changeBuf == 0 }

// Close releases the backend and both lists. A second call returns
// api.ErrQueueClosed.
func (q *Queue) Close() error {
	if q.closed() {
		return api.ErrQueueClosed
	}
	err := q.backend.Close()
	if ferr := pool.Free(q.changeBuf); err == nil {
		err = ferr
	}
	if ferr := pool.Free(q.eventBuf); err == nil {
		err = ferr
	}
	q.changeBuf, q.eventBuf = 0, 0
	q.changes, q.events = layout.Records{}, layout.Records{}
	return err
}
