package rig

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/geom"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

var (
	// ErrJointNotFound is reported for a target whose joint has no scene node.
	ErrJointNotFound = errors.New("joint not present in scene")
	// ErrNonFinite is reported when a solved or composed rotation is not finite.
	ErrNonFinite = geom.ErrNonFinite
)

// JointResult records what happened to one joint during Apply.
type JointResult struct {
	Joint   skeleton.Joint `json:"joint"`
	World   quat.Number    `json:"world"`
	Local   quat.Number    `json:"local"`
	Tracked bool           `json:"tracked"`
	Applied bool           `json:"applied"`
	Error   string         `json:"error,omitempty"`
	Err     error          `json:"-"`
}

// Report summarises one Apply pass.
type Report struct {
	Results []JointResult `json:"results"`
	Applied int           `json:"applied"`
	Skipped int           `json:"skipped"`
}

// Errors returns the per-joint errors of the pass, if any.
func (r Report) Errors() []error {
	var out []error
	for _, jr := range r.Results {
		if jr.Err != nil {
			out = append(out, jr.Err)
		}
	}
	return out
}

// Merge appends another report's results.
func (r *Report) Merge(o Report) {
	r.Results = append(r.Results, o.Results...)
	r.Applied += o.Applied
	r.Skipped += o.Skipped
}

// Apply writes each target as a parent-relative local rotation,
// local = inverse(parentWorld) * world, in the order given. The parent's
// world rotation is read from the scene at write time, so a parent set
// earlier in the same pass is taken into account.
//
// A target that failed to solve still has its rest rotation written; its
// error is kept in the report. Missing joints and non-finite rotations are
// skipped without affecting the others.
func Apply(scene skeleton.Scene, parts *skeleton.Parts, targets []Target) Report {
	var rep Report
	for _, t := range targets {
		jr := apply(scene, parts, t)
		if jr.Applied {
			rep.Applied++
		} else {
			rep.Skipped++
		}
		if jr.Err != nil {
			jr.Error = jr.Err.Error()
		}
		rep.Results = append(rep.Results, jr)
	}
	return rep
}

func apply(scene skeleton.Scene, parts *skeleton.Parts, t Target) JointResult {
	jr := JointResult{Joint: t.Joint, World: t.World, Tracked: t.Tracked, Err: t.Err}

	id, ok := parts.Lookup(t.Joint)
	if !ok {
		jr.Err = fmt.Errorf("%s: %w", t.Joint, ErrJointNotFound)
		return jr
	}
	if !geom.IsFinite(t.World) {
		jr.Err = fmt.Errorf("%s: %w", t.Joint, ErrNonFinite)
		return jr
	}

	local := t.World
	if parent, ok := scene.Parent(id); ok {
		pw, err := scene.WorldRotation(parent)
		if err != nil {
			jr.Err = fmt.Errorf("%s: parent rotation: %w", t.Joint, err)
			return jr
		}
		local = geom.Normalize(geom.Mul(geom.Inverse(pw), t.World))
	}
	if !geom.IsFinite(local) {
		jr.Err = fmt.Errorf("%s: %w", t.Joint, ErrNonFinite)
		return jr
	}

	if err := scene.SetLocalRotation(id, local); err != nil {
		jr.Err = fmt.Errorf("%s: %w", t.Joint, err)
		return jr
	}
	jr.Local = local
	jr.Applied = true
	return jr
}

// ApplyTranslation writes a local translation to one joint.
func ApplyTranslation(scene skeleton.Scene, parts *skeleton.Parts, j skeleton.Joint, v r3.Vec) error {
	id, ok := parts.Lookup(j)
	if !ok {
		return fmt.Errorf("%s: %w", j, ErrJointNotFound)
	}
	return scene.SetLocalTranslation(id, v)
}
