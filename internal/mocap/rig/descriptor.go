// Package rig turns filtered landmark sets into joint rotations for the
// humanoid skeleton.
//
// Every driven joint is described by one table entry: which landmarks form
// its two basis hints, which basis kind combines them, the fixed corrective
// rotation that aligns the result with the bind pose, and the rest rotation
// used when tracking is disabled. Solve evaluates a table into world-space
// targets; Apply converts targets into parent-relative local rotations.
package rig

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/basis"
	"github.com/banshee-data/mocap.render/internal/mocap/geom"
	"github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

// Hint is the direction from the mean of From to the mean of To.
type Hint[I landmark.Scheme] struct {
	From []I
	To   []I
}

// Span is the hint from one landmark to another.
func Span[I landmark.Scheme](from, to I) Hint[I] {
	return Hint[I]{From: []I{from}, To: []I{to}}
}

// Vector evaluates the hint on a set.
func (h Hint[I]) Vector(set landmark.Set[I]) r3.Vec {
	return r3.Sub(set.Mid(h.To...), set.Mid(h.From...))
}

// Descriptor drives one joint.
type Descriptor[I landmark.Scheme] struct {
	Joint      skeleton.Joint
	Kind       basis.Kind
	Primary    Hint[I]
	Secondary  Hint[I]
	Corrective quat.Number
	Rest       quat.Number
	// Enabled gates tracking. Nil means always tracked.
	Enabled func(Toggles) bool
}

// Target is the world-space rotation a joint should take this frame.
type Target struct {
	Joint skeleton.Joint
	World quat.Number
	// Tracked is false when the rest rotation was used.
	Tracked bool
	// Err is set when the joint could not be solved this frame.
	Err error
}

// Solve evaluates every descriptor against set, in table order. A degenerate
// joint yields a Target with Err set; the others are unaffected. An empty
// set yields no targets.
func Solve[I landmark.Scheme](set landmark.Set[I], table []Descriptor[I], toggles Toggles) []Target {
	if set.Empty() {
		return nil
	}
	out := make([]Target, 0, len(table))
	for _, d := range table {
		out = append(out, d.solve(set, toggles))
	}
	return out
}

func (d Descriptor[I]) solve(set landmark.Set[I], toggles Toggles) Target {
	if d.Enabled != nil && !d.Enabled(toggles) {
		return Target{Joint: d.Joint, World: d.Rest}
	}
	q, err := basis.Solve(d.Kind, d.Primary.Vector(set), d.Secondary.Vector(set), d.Corrective)
	if err != nil {
		return Target{Joint: d.Joint, World: d.Rest, Err: err}
	}
	return Target{Joint: d.Joint, World: q, Tracked: true}
}

// corrective composes post-multiplied offsets, applied left to right.
func corrective(qs ...quat.Number) quat.Number {
	return geom.Normalize(geom.Mul(qs...))
}
