package basis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/geom"
)

const tol = 1e-4

func assertOrthonormal(t *testing.T, f Frame) {
	t.Helper()
	assert.InDelta(t, 1.0, r3.Norm(f.Right), tol)
	assert.InDelta(t, 1.0, r3.Norm(f.Up), tol)
	assert.InDelta(t, 1.0, r3.Norm(f.Forward), tol)
	assert.InDelta(t, 0.0, r3.Dot(f.Right, f.Up), tol)
	assert.InDelta(t, 0.0, r3.Dot(f.Right, f.Forward), tol)
	assert.InDelta(t, 0.0, r3.Dot(f.Up, f.Forward), tol)

	// Right-handed: right x up = forward.
	c := r3.Cross(f.Right, f.Up)
	assert.InDelta(t, f.Forward.X, c.X, tol)
	assert.InDelta(t, f.Forward.Y, c.Y, tol)
	assert.InDelta(t, f.Forward.Z, c.Z, tol)
}

func randVec(r *rand.Rand) r3.Vec {
	return r3.Vec{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}
}

// ---- Build ----

func TestBuild_OrthonormalRightHanded(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(7))
	for _, kind := range []Kind{ForwardRight, UpForward, UpRight} {
		t.Run(kind.String(), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				f, err := Build(kind, randVec(r), randVec(r))
				require.NoError(t, err)
				assertOrthonormal(t, f)
			}
		})
	}
}

func TestBuild_ForwardRightKeepsForward(t *testing.T) {
	t.Parallel()

	f, err := Build(ForwardRight, r3.Vec{Z: 2}, r3.Vec{X: 3, Z: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f.Forward.Z, 1e-12)
	assert.InDelta(t, 1.0, f.Right.X, 1e-12)
	assert.InDelta(t, 1.0, f.Up.Y, 1e-12)
	q, err := f.Rotation()
	require.NoError(t, err)
	assert.True(t, geom.ApproxEqual(geom.Identity, q, 1e-12))
}

func TestBuild_UpKindsKeepUp(t *testing.T) {
	t.Parallel()

	up := r3.Vec{X: 0.2, Y: 1, Z: -0.1}
	want := r3.Unit(up)

	f, err := Build(UpForward, up, r3.Vec{Z: 1})
	require.NoError(t, err)
	assert.InDelta(t, want.Y, f.Up.Y, 1e-12)

	g, err := Build(UpRight, up, r3.Vec{X: 1})
	require.NoError(t, err)
	assert.InDelta(t, want.X, g.Up.X, 1e-12)
}

func TestBuild_Degenerate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b r3.Vec
	}{
		{"zero first hint", r3.Vec{}, r3.Vec{X: 1}},
		{"zero second hint", r3.Vec{Y: 1}, r3.Vec{}},
		{"parallel", r3.Vec{Y: 1}, r3.Vec{Y: 2}},
		{"antiparallel", r3.Vec{Y: 1}, r3.Vec{Y: -1}},
		{"nearly zero", r3.Vec{Y: 1e-12}, r3.Vec{X: 1}},
		{"nan first hint", r3.Vec{X: math.NaN(), Y: 1}, r3.Vec{X: 1}},
		{"nan second hint", r3.Vec{Y: 1}, r3.Vec{X: 1, Z: math.NaN()}},
		{"inf hint", r3.Vec{Y: math.Inf(1)}, r3.Vec{X: 1}},
	}
	for _, tc := range cases {
		for _, kind := range []Kind{ForwardRight, UpForward, UpRight} {
			_, err := Build(kind, tc.a, tc.b)
			assert.ErrorIs(t, err, ErrDegenerate, "%s/%s", tc.name, kind)
		}
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Build(Kind(9), r3.Vec{X: 1}, r3.Vec{Y: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind(9)")
}

// ---- Solve ----

func TestSolve_ComposesCorrectiveAfter(t *testing.T) {
	t.Parallel()

	corrective := geom.RotX(math.Pi / 2)
	q, err := Solve(ForwardRight, r3.Vec{Z: 1}, r3.Vec{X: 1}, corrective)
	require.NoError(t, err)
	assert.True(t, geom.ApproxEqual(corrective, q, 1e-12))

	// Facing backwards (yaw half-turn) then corrected.
	q, err = Solve(UpRight, r3.Vec{Y: 1}, r3.Vec{X: -1}, geom.Identity)
	require.NoError(t, err)
	assert.True(t, geom.ApproxEqual(geom.RotY(math.Pi), q, 1e-12))
}

func TestSolve_DegenerateReturnsIdentity(t *testing.T) {
	t.Parallel()

	q, err := Solve(UpForward, r3.Vec{}, r3.Vec{X: 1}, geom.RotY(1))
	assert.ErrorIs(t, err, ErrDegenerate)
	assert.Equal(t, geom.Identity, q)
}

func TestSolve_NonFiniteHintsReturnIdentity(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	for _, kind := range []Kind{ForwardRight, UpForward, UpRight} {
		q, err := Solve(kind, r3.Vec{X: nan, Y: nan, Z: nan}, r3.Vec{X: 1}, geom.Identity)
		require.Error(t, err, "%s", kind)
		assert.True(t, geom.IsFinite(q), "%s: %v", kind, q)
		assert.Equal(t, geom.Identity, q)
	}
}
