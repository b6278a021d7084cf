package landmark

import (
	"encoding/json"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scheme is an anatomical index enumeration. Cardinality reports how many
// points a set of that scheme holds; it must not depend on the receiver.
type Scheme interface {
	~int
	Cardinality() int
	String() string
}

// Set is a fixed-length landmark collection indexed by a Scheme. The zero
// value is empty; use NewSet or SetFromRaw to build a usable set.
type Set[I Scheme] struct {
	points []Landmark
}

func cardinality[I Scheme]() int {
	var zero I
	return zero.Cardinality()
}

// NewSet copies points into a set, failing if the count does not match the
// scheme exactly.
func NewSet[I Scheme](points []Landmark) (Set[I], error) {
	n := cardinality[I]()
	if len(points) != n {
		return Set[I]{}, &IncorrectLengthError{Expected: n, Actual: len(points)}
	}
	cp := make([]Landmark, n)
	copy(cp, points)
	return Set[I]{points: cp}, nil
}

// SetFromRaw converts a single perception detection into a set. A point
// that is not finite or exceeds MaxCoordinate fails with InvalidPointError.
func SetFromRaw[I Scheme](raw []RawPoint) (Set[I], error) {
	n := cardinality[I]()
	if len(raw) != n {
		return Set[I]{}, &IncorrectLengthError{Expected: n, Actual: len(raw)}
	}
	pts := make([]Landmark, n)
	for i, p := range raw {
		if !p.Valid() {
			return Set[I]{}, &InvalidPointError{Index: i, Point: p}
		}
		pts[i] = FromRaw(p)
	}
	return Set[I]{points: pts}, nil
}

// SetFromDetections converts the first detection of a payload. An empty
// payload yields ErrNoKeyPoints.
func SetFromDetections[I Scheme](detections [][]RawPoint) (Set[I], error) {
	if len(detections) == 0 {
		return Set[I]{}, ErrNoKeyPoints
	}
	return SetFromRaw[I](detections[0])
}

// Len returns the number of points, which is either zero or the scheme's
// cardinality.
func (s Set[I]) Len() int { return len(s.points) }

// Empty reports whether s is the zero set.
func (s Set[I]) Empty() bool { return len(s.points) == 0 }

// At returns the landmark at index i. It panics if i is outside the scheme.
func (s Set[I]) At(i I) Landmark { return s.points[i] }

// Position returns the position of landmark i.
func (s Set[I]) Position(i I) r3.Vec { return s.points[i].Position }

// Mid returns the mean position of the given landmarks.
func (s Set[I]) Mid(idx ...I) r3.Vec {
	var sum r3.Vec
	if len(idx) == 0 {
		return sum
	}
	for _, i := range idx {
		sum = r3.Add(sum, s.points[i].Position)
	}
	return r3.Scale(1/float64(len(idx)), sum)
}

// Points returns a copy of the underlying points in index order.
func (s Set[I]) Points() []Landmark {
	cp := make([]Landmark, len(s.points))
	copy(cp, s.points)
	return cp
}

// IsFinite reports whether every landmark is finite. The zero set is.
func (s Set[I]) IsFinite() bool {
	for _, p := range s.points {
		if !p.IsFinite() {
			return false
		}
	}
	return true
}

// Add returns the element-wise sum of two sets of the same scheme.
func (s Set[I]) Add(o Set[I]) Set[I] {
	return s.zip(o, Landmark.Add)
}

// Sub returns the element-wise difference of two sets of the same scheme.
func (s Set[I]) Sub(o Set[I]) Set[I] {
	return s.zip(o, Landmark.Sub)
}

// Scale multiplies every landmark by f.
func (s Set[I]) Scale(f float64) Set[I] {
	out := make([]Landmark, len(s.points))
	for i, p := range s.points {
		out[i] = p.Scale(f)
	}
	return Set[I]{points: out}
}

func (s Set[I]) zip(o Set[I], op func(Landmark, Landmark) Landmark) Set[I] {
	// A zero set acts as the additive identity so filters can be seeded
	// from one.
	switch {
	case len(o.points) == 0:
		return Set[I]{points: s.Points()}
	case len(s.points) == 0:
		out := make([]Landmark, len(o.points))
		for i, p := range o.points {
			out[i] = op(Landmark{}, p)
		}
		return Set[I]{points: out}
	}
	out := make([]Landmark, len(s.points))
	for i, p := range s.points {
		out[i] = op(p, o.points[i])
	}
	return Set[I]{points: out}
}

// MarshalJSON encodes the set as its ordered point list.
func (s Set[I]) MarshalJSON() ([]byte, error) {
	if s.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.points)
}
