// Package landmark holds the typed, fixed-size landmark sets produced by the
// perception pipeline for one detected entity (a body pose or a hand).
package landmark

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxCoordinate bounds the magnitude of every accepted raw coordinate.
// Landmarker output is normalized image space or metres, so anything past
// this is corrupt input and would overflow the filter arithmetic.
const MaxCoordinate = 1e6

// Landmark is one tracked anatomical point in engine space.
//
// Arithmetic applies to Position and Visibility independently. It exists so
// that landmarks (and sets of them) can be smoothed by a linear filter.
type Landmark struct {
	Position   r3.Vec  `json:"position"`
	Visibility float64 `json:"visibility"`
}

// RawPoint is a landmark as emitted by the perception service.
type RawPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Valid reports whether every component of p is finite and within
// MaxCoordinate.
func (p RawPoint) Valid() bool {
	for _, v := range [4]float64{p.X, p.Y, p.Z, p.Visibility} {
		if !(math.Abs(v) <= MaxCoordinate) {
			return false
		}
	}
	return true
}

// FromRaw converts a perception-space point into engine space. X and Y are
// negated, Z is preserved.
func FromRaw(p RawPoint) Landmark {
	return Landmark{
		Position:   r3.Vec{X: -p.X, Y: -p.Y, Z: p.Z},
		Visibility: p.Visibility,
	}
}

// Add returns the component-wise sum of l and o.
func (l Landmark) Add(o Landmark) Landmark {
	return Landmark{
		Position:   r3.Add(l.Position, o.Position),
		Visibility: l.Visibility + o.Visibility,
	}
}

// Sub returns the component-wise difference l - o.
func (l Landmark) Sub(o Landmark) Landmark {
	return Landmark{
		Position:   r3.Sub(l.Position, o.Position),
		Visibility: l.Visibility - o.Visibility,
	}
}

// Scale multiplies both position and visibility by f.
func (l Landmark) Scale(f float64) Landmark {
	return Landmark{
		Position:   r3.Scale(f, l.Position),
		Visibility: l.Visibility * f,
	}
}

// IsFinite reports whether position and visibility are all finite.
func (l Landmark) IsFinite() bool {
	return finite(l.Position.X) && finite(l.Position.Y) && finite(l.Position.Z) && finite(l.Visibility)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
