package kalman

import "gonum.org/v1/gonum/spatial/r3"

// Vec3 adapts r3.Vec to Vector so single points can be filtered.
type Vec3 r3.Vec

func (v Vec3) Add(o Vec3) Vec3      { return Vec3(r3.Add(r3.Vec(v), r3.Vec(o))) }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3(r3.Sub(r3.Vec(v), r3.Vec(o))) }
func (v Vec3) Scale(f float64) Vec3 { return Vec3(r3.Scale(f, r3.Vec(v))) }
func (v Vec3) Vec() r3.Vec          { return r3.Vec(v) }
func (v Vec3) IsFinite() bool       { return finite(v.X) && finite(v.Y) && finite(v.Z) }

// Scalar adapts float64 to Vector.
type Scalar float64

func (s Scalar) Add(o Scalar) Scalar    { return s + o }
func (s Scalar) Sub(o Scalar) Scalar    { return s - o }
func (s Scalar) Scale(f float64) Scalar { return Scalar(float64(s) * f) }
func (s Scalar) IsFinite() bool         { return finite(float64(s)) }
