// File: internal/echoloop/sessions.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sharded, thread-safe session store. The loop goroutine mutates it; probes
// and the CLI read it concurrently.

package echoloop

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one accepted connection.
type Session struct {
	ID     uuid.UUID
	Fd     int
	Opened time.Time

	buf     uintptr
	pending []byte
	rx, tx  int64
}

// SessionInfo is a read-only snapshot of a Session.
type SessionInfo struct {
	ID     string `json:"id"`
	Fd     int    `json:"fd"`
	Opened string `json:"opened"`
	Rx     int64  `json:"rx"`
	Tx     int64  `json:"tx"`
}

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

type sessionStore struct {
	shards []*sessionShard
	mask   uint32
	byFd   map[int]*Session // loop goroutine only
}

func newSessionStore(shardCount int) *sessionStore {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*sessionShard, m)
	for i := range shards {
		shards[i] = &sessionShard{sessions: make(map[uuid.UUID]*Session)}
	}
	return &sessionStore{shards: shards, mask: m - 1, byFd: make(map[int]*Session)}
}

func (m *sessionStore) shard(id uuid.UUID) *sessionShard {
	return m.shards[binary.BigEndian.Uint32(id[12:])&m.mask]
}

func (m *sessionStore) add(s *Session) {
	sh := m.shard(s.ID)
	sh.mu.Lock()
	sh.sessions[s.ID] = s
	sh.mu.Unlock()
	m.byFd[s.Fd] = s
}

func (m *sessionStore) fd(fd int) *Session { return m.byFd[fd] }

func (m *sessionStore) account(s *Session, rx, tx int) {
	sh := m.shard(s.ID)
	sh.mu.Lock()
	s.rx += int64(rx)
	s.tx += int64(tx)
	sh.mu.Unlock()
}

func (m *sessionStore) remove(s *Session) {
	sh := m.shard(s.ID)
	sh.mu.Lock()
	delete(sh.sessions, s.ID)
	sh.mu.Unlock()
	delete(m.byFd, s.Fd)
}

// snapshot copies every session under the shard locks.
func (m *sessionStore) snapshot() []SessionInfo {
	var out []SessionInfo
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			out = append(out, SessionInfo{
				ID:     s.ID.String(),
				Fd:     s.Fd,
				Opened: s.Opened.Format(time.RFC3339),
				Rx:     s.rx,
				Tx:     s.tx,
			})
		}
		sh.mu.RUnlock()
	}
	return out
}

func (m *sessionStore) count() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
