package clock

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
)

// DefaultNTPServer is queried when no server is configured.
const DefaultNTPServer = "pool.ntp.org"

// SystemSource derives uptime from process start and wall time from an
// NTP offset. Until the first successful NTP exchange the epoch reads 0,
// which is below any minimum valid epoch — the wall clock starts
// untrusted even if the host's own clock happens to be correct.
type SystemSource struct {
	start  time.Time
	server string

	mu     sync.Mutex
	offset time.Duration
	synced bool

	inflight atomic.Bool
}

// NewSystemSource creates a SystemSource querying the given NTP server
// ("" selects DefaultNTPServer).
func NewSystemSource(server string) *SystemSource {
	if server == "" {
		server = DefaultNTPServer
	}
	return &SystemSource{
		start:  time.Now(),
		server: server,
	}
}

// UptimeMillis returns milliseconds since the source was created,
// truncated to 32 bits (wraps after ~49.7 days).
func (s *SystemSource) UptimeMillis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// Epoch returns wall-clock seconds, or 0 before the first successful sync.
func (s *SystemSource) Epoch() int64 {
	s.mu.Lock()
	synced, offset := s.synced, s.offset
	s.mu.Unlock()
	if !synced {
		return 0
	}
	return time.Now().Add(offset).Unix()
}

// Sync queries the NTP server in a goroutine. At most one query is in
// flight at a time; additional requests while one is pending are dropped.
// Failures are logged and otherwise silent.
func (s *SystemSource) Sync() {
	if !s.inflight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.inflight.Store(false)

		resp, err := ntp.Query(s.server)
		if err != nil {
			log.Printf("clock: ntp query %s failed: %v", s.server, err)
			return
		}
		if err := resp.Validate(); err != nil {
			log.Printf("clock: ntp response from %s invalid: %v", s.server, err)
			return
		}

		s.mu.Lock()
		first := !s.synced
		s.offset = resp.ClockOffset
		s.synced = true
		s.mu.Unlock()

		if first {
			log.Printf("clock: synchronized with %s (offset %v)", s.server, resp.ClockOffset.Truncate(time.Millisecond))
		}
	}()
}
