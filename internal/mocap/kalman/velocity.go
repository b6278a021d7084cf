// Package kalman implements a constant-velocity Kalman filter that is generic
// over any additively composable value type.
//
// The 2x2 state covariance is a single shared scalar model broadcast across
// every dimension of T. A landmark set of 33 points is smoothed with the same
// gain on every coordinate.
package kalman

import (
	"errors"
	"math"
)

// ErrNonFinite is returned when an update would leave the state or the
// covariance holding a NaN or an infinity. The filter keeps its prior state.
var ErrNonFinite = errors.New("non-finite filter state")

// Vector is the arithmetic a filtered value must support. For composite types
// the operations must be element-wise. IsFinite reports whether every
// component is a finite number.
type Vector[T any] interface {
	Add(T) T
	Sub(T) T
	Scale(float64) T
	IsFinite() bool
}

// Noises are the tunable process and measurement noise terms.
type Noises struct {
	Position    float64 `json:"position_noise"`
	Velocity    float64 `json:"velocity_noise"`
	Measurement float64 `json:"measurement_noise"`
}

// DefaultNoises returns the noise terms used by New.
func DefaultNoises() Noises {
	return Noises{Position: 1.0, Velocity: 3.0, Measurement: 100.0}
}

const (
	initialPPos    = 5.0
	initialPPosVel = 0.0
	initialPVel    = 5.0
)

// VelocityFilter tracks a position and velocity estimate of type T.
//
// A VelocityFilter is not safe for concurrent use. Update mutates the
// covariance and is order dependent, so callers must serialize it.
type VelocityFilter[T Vector[T]] struct {
	position T
	velocity T

	pPos    float64
	pPosVel float64
	pVel    float64

	noises Noises
}

// New seeds a filter from its first observation with the default noises.
func New[T Vector[T]](initial T) *VelocityFilter[T] {
	return NewWithNoises(initial, DefaultNoises())
}

// NewWithNoises seeds a filter from its first observation. Velocity starts at
// the zero of T, computed as initial - initial.
func NewWithNoises[T Vector[T]](initial T, n Noises) *VelocityFilter[T] {
	return &VelocityFilter[T]{
		position: initial,
		velocity: initial.Sub(initial),
		pPos:     initialPPos,
		pPosVel:  initialPPosVel,
		pVel:     initialPVel,
		noises:   n,
	}
}

// Update folds one measurement taken dt seconds after the previous one into
// the estimate and returns the new position. An update that would turn the
// state non-finite is dropped; use TryUpdate to observe that.
func (f *VelocityFilter[T]) Update(measurement T, dt float64) T {
	pos, _ := f.TryUpdate(measurement, dt)
	return pos
}

// TryUpdate is Update reporting ErrNonFinite when the measurement or the
// result is not finite. On error the filter is unchanged and the prior
// position is returned.
func (f *VelocityFilter[T]) TryUpdate(measurement T, dt float64) (T, error) {
	if !measurement.IsFinite() {
		return f.position, ErrNonFinite
	}

	// Predict.
	predictedPos := f.position.Add(f.velocity.Scale(dt))
	predictedVel := f.velocity

	pPos := f.pPos + 2*dt*f.pPosVel + dt*dt*f.pVel + f.noises.Position
	pPosVel := f.pPosVel + dt*f.pVel
	pVel := f.pVel + f.noises.Velocity

	// Correct.
	innovation := measurement.Sub(predictedPos)
	s := pPos + f.noises.Measurement
	kPos := pPos / s
	kVel := pPosVel / s

	position := predictedPos.Add(innovation.Scale(kPos))
	velocity := predictedVel.Add(innovation.Scale(kVel))
	nextPPos := (1 - kPos) * pPos
	nextPPosVel := (1 - kPos) * pPosVel
	nextPVel := pVel - kVel*pPosVel

	if !position.IsFinite() || !velocity.IsFinite() ||
		!finite(nextPPos) || !finite(nextPPosVel) || !finite(nextPVel) {
		return f.position, ErrNonFinite
	}

	f.position, f.velocity = position, velocity
	f.pPos, f.pPosVel, f.pVel = nextPPos, nextPPosVel, nextPVel
	return f.position, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Position returns the current position estimate.
func (f *VelocityFilter[T]) Position() T { return f.position }

// Velocity returns the current velocity estimate.
func (f *VelocityFilter[T]) Velocity() T { return f.velocity }

// Covariance returns the scalar covariance terms (p_pos, p_pos_vel, p_vel).
func (f *VelocityFilter[T]) Covariance() (pPos, pPosVel, pVel float64) {
	return f.pPos, f.pPosVel, f.pVel
}

// Noises returns the active noise terms.
func (f *VelocityFilter[T]) Noises() Noises { return f.noises }

// SetNoises replaces all noise terms. The covariance is kept.
func (f *VelocityFilter[T]) SetNoises(n Noises) { f.noises = n }

func (f *VelocityFilter[T]) SetPositionNoise(v float64)    { f.noises.Position = v }
func (f *VelocityFilter[T]) SetVelocityNoise(v float64)    { f.noises.Velocity = v }
func (f *VelocityFilter[T]) SetMeasurementNoise(v float64) { f.noises.Measurement = v }
