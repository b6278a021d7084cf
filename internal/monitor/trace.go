// Package monitor records raw and filtered landmark positions for filter
// tuning and renders them as charts.
package monitor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
)

// DefaultCapacity is the number of samples kept per landmark, about ten
// seconds at 30 detections a second.
const DefaultCapacity = 300

// DefaultLandmarks are traced when NewTrace is given none.
var DefaultLandmarks = []lm.PoseIndex{lm.Nose, lm.LeftWrist, lm.RightWrist}

// Sample is one measurement of a landmark and the filter output for it.
type Sample struct {
	At       time.Time `json:"at"`
	Raw      r3.Vec    `json:"raw"`
	Filtered r3.Vec    `json:"filtered"`
}

// Trace keeps the latest samples of a few pose landmarks, read from the
// world set that drives the body. It is a pipeline.PoseObserver.
type Trace struct {
	mu        sync.RWMutex
	capacity  int
	landmarks []lm.PoseIndex
	series    map[lm.PoseIndex]*ring
}

var _ pipeline.PoseObserver = (*Trace)(nil)

// NewTrace returns a trace of capacity samples per landmark.
func NewTrace(capacity int, landmarks ...lm.PoseIndex) *Trace {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if len(landmarks) == 0 {
		landmarks = DefaultLandmarks
	}
	t := &Trace{
		capacity:  capacity,
		landmarks: append([]lm.PoseIndex(nil), landmarks...),
		series:    make(map[lm.PoseIndex]*ring, len(landmarks)),
	}
	for _, i := range landmarks {
		t.series[i] = newRing(capacity)
	}
	return t
}

// ObservePose records the traced landmarks of one measurement. Frames
// without a world set are ignored.
func (t *Trace) ObservePose(at time.Time, raw, filtered lm.PoseFrame) {
	if raw.World.Len() != lm.PoseCount || filtered.World.Len() != lm.PoseCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, i := range t.landmarks {
		t.series[i].push(Sample{At: at, Raw: raw.World.Position(i), Filtered: filtered.World.Position(i)})
	}
}

// Landmarks returns the traced landmarks.
func (t *Trace) Landmarks() []lm.PoseIndex {
	return append([]lm.PoseIndex(nil), t.landmarks...)
}

// Samples returns the samples of landmark i, oldest first. ok is false for a
// landmark that is not traced.
func (t *Trace) Samples(i lm.PoseIndex) (samples []Sample, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.series[i]
	if !ok {
		return nil, false
	}
	return r.snapshot(), true
}

// Reset drops every sample.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.series {
		t.series[i] = newRing(t.capacity)
	}
}

// ring is a fixed-size sample buffer that overwrites the oldest entry.
type ring struct {
	buf  []Sample
	next int
	full bool
}

func newRing(n int) *ring { return &ring{buf: make([]Sample, n)} }

func (r *ring) push(s Sample) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []Sample {
	if !r.full {
		return append([]Sample(nil), r.buf[:r.next]...)
	}
	out := make([]Sample, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
