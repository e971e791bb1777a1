package logsink

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the number of entries retained in memory.
const DefaultCapacity = 50

// Entry is one timestamped activity log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Sink is a bounded, append-only activity log. It keeps the newest
// DefaultCapacity entries and an all-time append counter. A single mutex
// guards it; it is the only state shared between in-flight deliveries.
type Sink struct {
	mu       sync.Mutex
	entries  []Entry
	total    int64
	capacity int
	logger   *zap.Logger
}

// New creates a sink with the default capacity. Entries are mirrored to the
// structured logger as they are appended.
func New(logger *zap.Logger) *Sink {
	return &Sink{
		entries:  make([]Entry, 0, DefaultCapacity),
		capacity: DefaultCapacity,
		logger:   logger,
	}
}

// Appendf records a formatted message with the current timestamp.
func (s *Sink) Appendf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   msg,
	})
	if len(s.entries) > s.capacity {
		// Batch-trim so only the newest entries survive.
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	s.total++
	s.mu.Unlock()

	s.logger.Info(msg)
}

// Recent returns the newest n entries in chronological order.
func (s *Sink) Recent(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Total returns the all-time append count, including evicted entries.
func (s *Sink) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Len returns the number of entries currently retained.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
