// Package basis builds orthonormal right/up/forward frames from pairs of
// direction hints taken between anatomical landmarks.
package basis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/geom"
)

// ErrDegenerate is returned when a hint is too short to normalize or the two
// hints are parallel, so no unique frame exists.
var ErrDegenerate = errors.New("degenerate basis")

const (
	// minHintNorm is the shortest hint vector accepted.
	minHintNorm = 1e-9
	// minSine is the smallest |sin| between two unit hints before they are
	// considered parallel.
	minSine = 1e-6
)

// Kind selects which two axes the hints describe and the order in which the
// third axis is derived.
type Kind int

const (
	// ForwardRight takes (forward, right): up = f x r, right = up x f.
	ForwardRight Kind = iota
	// UpForward takes (up, forward): right = up x f, forward = right x up.
	UpForward
	// UpRight takes (up, right): forward = r x up, right = up x forward.
	UpRight
)

func (k Kind) String() string {
	switch k {
	case ForwardRight:
		return "forward_right"
	case UpForward:
		return "up_forward"
	case UpRight:
		return "up_right"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is a right-handed orthonormal basis: Right x Up = Forward.
type Frame struct {
	Right   r3.Vec
	Up      r3.Vec
	Forward r3.Vec
}

// unit and cross compare with !(n >= min) so a NaN norm is degenerate too.
func unit(v r3.Vec) (r3.Vec, error) {
	n := r3.Norm(v)
	if !(n >= minHintNorm) || math.IsInf(n, 0) {
		return r3.Vec{}, ErrDegenerate
	}
	return r3.Scale(1/n, v), nil
}

// cross returns the normalized cross product of two unit vectors, failing
// when they are parallel.
func cross(a, b r3.Vec) (r3.Vec, error) {
	c := r3.Cross(a, b)
	n := r3.Norm(c)
	if !(n >= minSine) {
		return r3.Vec{}, ErrDegenerate
	}
	return r3.Scale(1/n, c), nil
}

// Build constructs a frame of the given kind from hints a and b.
func Build(kind Kind, a, b r3.Vec) (Frame, error) {
	ua, err := unit(a)
	if err != nil {
		return Frame{}, err
	}
	ub, err := unit(b)
	if err != nil {
		return Frame{}, err
	}

	switch kind {
	case ForwardRight:
		forward := ua
		up, err := cross(forward, ub)
		if err != nil {
			return Frame{}, err
		}
		right, err := cross(up, forward)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Right: right, Up: up, Forward: forward}, nil

	case UpForward:
		up := ua
		right, err := cross(up, ub)
		if err != nil {
			return Frame{}, err
		}
		forward, err := cross(right, up)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Right: right, Up: up, Forward: forward}, nil

	case UpRight:
		up := ua
		forward, err := cross(ub, up)
		if err != nil {
			return Frame{}, err
		}
		right, err := cross(up, forward)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Right: right, Up: up, Forward: forward}, nil
	}
	return Frame{}, fmt.Errorf("unknown basis kind %v", kind)
}

// Rotation converts the frame, as the columns (right, up, forward) of a
// rotation matrix, into a unit quaternion.
func (f Frame) Rotation() (quat.Number, error) {
	return geom.FromAxes(f.Right, f.Up, f.Forward)
}

// Solve builds a frame from the hints and composes corrective after it,
// returning rotation * corrective.
func Solve(kind Kind, a, b r3.Vec, corrective quat.Number) (quat.Number, error) {
	f, err := Build(kind, a, b)
	if err != nil {
		return geom.Identity, err
	}
	q, err := f.Rotation()
	if err != nil {
		return geom.Identity, err
	}
	q = geom.Normalize(quat.Mul(q, corrective))
	if !geom.IsFinite(q) {
		return geom.Identity, geom.ErrNonFinite
	}
	return q, nil
}
