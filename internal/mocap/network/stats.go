package network

import (
	"sync"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// Stats counts received payloads per event type.
type Stats struct {
	mu        sync.Mutex
	packets   int64
	bytes     int64
	dropped   int64
	byKind    map[string]int64
	lastReset time.Time
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Packets  int64            `json:"packets"`
	Bytes    int64            `json:"bytes"`
	Dropped  int64            `json:"dropped"`
	ByKind   map[string]int64 `json:"by_kind"`
	Duration time.Duration    `json:"duration"`
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{byKind: make(map[string]int64), lastReset: time.Now()}
}

// Add records one payload of n bytes. A payload that failed to dispatch is
// counted as dropped.
func (s *Stats) Add(kind string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets++
	s.bytes += int64(n)
	if err != nil {
		s.dropped++
		return
	}
	s.byKind[kind]++
}

// GetAndReset returns the counters accumulated since the last reset and
// clears them.
func (s *Stats) GetAndReset() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	snap := StatsSnapshot{
		Packets:  s.packets,
		Bytes:    s.bytes,
		Dropped:  s.dropped,
		ByKind:   s.byKind,
		Duration: now.Sub(s.lastReset),
	}
	s.packets, s.bytes, s.dropped = 0, 0, 0
	s.byKind = make(map[string]int64)
	s.lastReset = now
	return snap
}

// LogStats logs and resets the counters.
func (s *Stats) LogStats(source string) {
	snap := s.GetAndReset()
	if snap.Packets == 0 {
		monitoring.Logf("[%s] no payloads in the last %v", source, snap.Duration.Round(time.Second))
		return
	}
	secs := snap.Duration.Seconds()
	monitoring.Logf("[%s] %d payloads (%.1f/s, %d bytes): pose=%d hands=%d face=%d dropped=%d",
		source, snap.Packets, float64(snap.Packets)/secs, snap.Bytes,
		snap.ByKind[ingest.EventTypePose], snap.ByKind[ingest.EventTypeHands],
		snap.ByKind[ingest.EventTypeFace], snap.Dropped)
}
