// Package pipeline connects landmark ingestion to the scene.
//
// The network side feeds detections into per-entity tracks, each smoothed
// by its own velocity filter. The host side calls Driver.Tick once per
// frame, which reads the committed track snapshots, solves joint rotations
// and writes them to the scene.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/kalman"
)

// Entity identifies a tracked detection stream.
type Entity int

const (
	EntityPose Entity = iota
	EntityLeftHand
	EntityRightHand
	EntityFace
)

func (e Entity) String() string {
	switch e {
	case EntityPose:
		return "pose"
	case EntityLeftHand:
		return "left_hand"
	case EntityRightHand:
		return "right_hand"
	case EntityFace:
		return "face"
	}
	return "unknown"
}

// MarshalText encodes the entity by name.
func (e Entity) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText decodes an entity name.
func (e *Entity) UnmarshalText(b []byte) error {
	for _, c := range []Entity{EntityPose, EntityLeftHand, EntityRightHand, EntityFace} {
		if c.String() == string(b) {
			*e = c
			return nil
		}
	}
	return fmt.Errorf("unknown entity %q", b)
}

// TrackState describes one track for reporting.
type TrackState struct {
	Entity      Entity        `json:"entity"`
	Initialized bool          `json:"initialized"`
	Updates     int           `json:"updates"`
	LastUpdate  time.Time     `json:"last_update"`
	Noises      kalman.Noises `json:"noises"`
}

// track owns the filter of one entity. Updates are serialized by the write
// lock; readers only ever see the value committed by the last update.
type track[T kalman.Vector[T]] struct {
	entity Entity

	mu      sync.RWMutex
	filter  *kalman.VelocityFilter[T]
	last    time.Time
	updates int
	current T
}

func newTrack[T kalman.Vector[T]](e Entity) *track[T] {
	return &track[T]{entity: e}
}

// observe folds a measurement taken at now into the track. The first
// observation seeds the filter and is committed as is. dt is the time since
// the previous observation of this track; a clock that moved backwards
// gives dt = 0. A measurement that is not finite, or an update that would
// make the filter non-finite, is rejected with kalman.ErrNonFinite and leaves
// the track as it was.
func (t *track[T]) observe(m T, now time.Time, n kalman.Noises) (filtered T, dt float64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !m.IsFinite() {
		return t.current, 0, fmt.Errorf("%s: %w", t.entity, kalman.ErrNonFinite)
	}
	if t.filter == nil {
		t.filter = kalman.NewWithNoises(m, n)
		t.last = now
		t.updates = 1
		t.current = t.filter.Position()
		diagf("%s track initialized", t.entity)
		return t.current, 0, nil
	}

	dt = now.Sub(t.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	t.filter.SetNoises(n)
	pos, err := t.filter.TryUpdate(m, dt)
	if err != nil {
		diagf("%s update dropped after %.4fs: %v", t.entity, dt, err)
		return t.current, dt, fmt.Errorf("%s: %w", t.entity, err)
	}
	t.current = pos
	t.last = now
	t.updates++
	return t.current, dt, nil
}

// snapshot returns the committed position, or false before the first
// observation.
func (t *track[T]) snapshot() (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.filter != nil
}

func (t *track[T]) state() TrackState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := TrackState{Entity: t.entity, Initialized: t.filter != nil, Updates: t.updates, LastUpdate: t.last}
	if t.filter != nil {
		s.Noises = t.filter.Noises()
	}
	return s
}

// reset drops the filter so the next observation seeds a new one.
func (t *track[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	t.filter = nil
	t.current = zero
	t.updates = 0
	t.last = time.Time{}
}
