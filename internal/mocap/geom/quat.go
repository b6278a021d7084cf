// Package geom provides the rotation helpers shared by the retargeting
// solver. Rotations are unit quaternions (gonum num/quat) acting on
// gonum spatial/r3 vectors through q * v * conj(q).
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNonFinite is returned when a rotation would hold a NaN or an infinity.
var ErrNonFinite = errors.New("non-finite rotation")

// Identity is the no-op rotation.
var Identity = quat.Number{Real: 1}

// RotX returns a rotation of angle radians about +X.
func RotX(angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: s}
}

// RotY returns a rotation of angle radians about +Y.
func RotY(angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Jmag: s}
}

// RotZ returns a rotation of angle radians about +Z.
func RotZ(angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Kmag: s}
}

// Mul composes rotations left to right: Mul(a, b, c) = a * b * c, so c is
// applied first.
func Mul(qs ...quat.Number) quat.Number {
	out := Identity
	for _, q := range qs {
		out = quat.Mul(out, q)
	}
	return out
}

// Inverse returns the inverse of a rotation. For unit quaternions this is
// the conjugate; quat.Inv keeps it correct for slightly denormalized input.
func Inverse(q quat.Number) quat.Number {
	return quat.Inv(q)
}

// Normalize scales q to unit length. A zero quaternion becomes Identity. A
// non-finite q is returned unchanged so IsFinite still rejects it.
func Normalize(q quat.Number) quat.Number {
	if !IsFinite(q) {
		return q
	}
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// FromAxes converts an orthonormal right-handed basis, given as the columns
// of a rotation matrix, into a unit quaternion. Axes holding a NaN or an
// infinity fail with ErrNonFinite.
func FromAxes(x, y, z r3.Vec) (quat.Number, error) {
	for _, v := range [3]r3.Vec{x, y, z} {
		if !finiteVec(v) {
			return Identity, ErrNonFinite
		}
	}
	m00, m01, m02 := x.X, x.Y, x.Z
	m10, m11, m12 := y.X, y.Y, y.Z
	m20, m21, m22 := z.X, z.Y, z.Z

	var q quat.Number
	if m22 <= 0 {
		dif10 := m11 - m00
		omm22 := 1 - m22
		if dif10 <= 0 {
			fourXSq := omm22 - dif10
			inv := 0.5 / math.Sqrt(fourXSq)
			q = quat.Number{
				Real: (m12 - m21) * inv,
				Imag: fourXSq * inv,
				Jmag: (m01 + m10) * inv,
				Kmag: (m02 + m20) * inv,
			}
		} else {
			fourYSq := omm22 + dif10
			inv := 0.5 / math.Sqrt(fourYSq)
			q = quat.Number{
				Real: (m20 - m02) * inv,
				Imag: (m01 + m10) * inv,
				Jmag: fourYSq * inv,
				Kmag: (m12 + m21) * inv,
			}
		}
	} else {
		sum10 := m11 + m00
		opm22 := 1 + m22
		if sum10 <= 0 {
			fourZSq := opm22 - sum10
			inv := 0.5 / math.Sqrt(fourZSq)
			q = quat.Number{
				Real: (m01 - m10) * inv,
				Imag: (m02 + m20) * inv,
				Jmag: (m12 + m21) * inv,
				Kmag: fourZSq * inv,
			}
		} else {
			fourWSq := opm22 + sum10
			inv := 0.5 / math.Sqrt(fourWSq)
			q = quat.Number{
				Real: fourWSq * inv,
				Imag: (m12 - m21) * inv,
				Jmag: (m20 - m02) * inv,
				Kmag: (m01 - m10) * inv,
			}
		}
	}
	q = Normalize(q)
	if !IsFinite(q) {
		return Identity, ErrNonFinite
	}
	return q, nil
}

func finiteVec(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Mirror reflects a rotation across the sagittal (x = 0) plane. Applied to
// a left-side joint it yields the matching right-side rotation.
func Mirror(q quat.Number) quat.Number {
	return quat.Number{Real: q.Real, Imag: q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// ApproxEqual reports whether a and b describe the same rotation within tol.
// q and -q are treated as equal.
func ApproxEqual(a, b quat.Number, tol float64) bool {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	return 1-math.Abs(dot) <= tol
}

// IsFinite reports whether every component of q is a finite number.
func IsFinite(q quat.Number) bool {
	for _, v := range [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
