package pipeline

import (
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/kalman"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

// Registry holds one track per entity. Tracks are independent: an entity
// missing from a payload leaves its track untouched.
type Registry struct {
	clock timeutil.Clock

	pose  *track[lm.PoseFrame]
	left  *track[lm.HandFrame]
	right *track[lm.HandFrame]
	face  *track[kalman.Vec3]
}

// NewRegistry returns an empty registry timed by clock. A nil clock uses
// the wall clock.
func NewRegistry(clock timeutil.Clock) *Registry {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Registry{
		clock: clock,
		pose:  newTrack[lm.PoseFrame](EntityPose),
		left:  newTrack[lm.HandFrame](EntityLeftHand),
		right: newTrack[lm.HandFrame](EntityRightHand),
		face:  newTrack[kalman.Vec3](EntityFace),
	}
}

func (r *Registry) hand(side skeleton.Side) *track[lm.HandFrame] {
	if side == skeleton.Right {
		return r.right
	}
	return r.left
}

// ObservePose updates the pose track and returns the filtered frame and the
// time step used. A rejected measurement returns the committed frame and an
// error wrapping kalman.ErrNonFinite.
func (r *Registry) ObservePose(f lm.PoseFrame, n kalman.Noises) (lm.PoseFrame, float64, error) {
	return r.pose.observe(f, r.clock.Now(), n)
}

// ObserveHand updates the track of one hand.
func (r *Registry) ObserveHand(side skeleton.Side, f lm.HandFrame, n kalman.Noises) (lm.HandFrame, float64, error) {
	return r.hand(side).observe(f, r.clock.Now(), n)
}

// ObserveFace updates the face track with (lookX, lookY, jawOpen).
func (r *Registry) ObserveFace(v kalman.Vec3, n kalman.Noises) (kalman.Vec3, float64, error) {
	return r.face.observe(v, r.clock.Now(), n)
}

// Pose returns the committed pose frame.
func (r *Registry) Pose() (lm.PoseFrame, bool) { return r.pose.snapshot() }

// Hand returns the committed frame of one hand.
func (r *Registry) Hand(side skeleton.Side) (lm.HandFrame, bool) { return r.hand(side).snapshot() }

// Face returns the committed (lookX, lookY, jawOpen) estimate.
func (r *Registry) Face() (kalman.Vec3, bool) { return r.face.snapshot() }

// States reports every track in entity order.
func (r *Registry) States() []TrackState {
	return []TrackState{r.pose.state(), r.left.state(), r.right.state(), r.face.state()}
}

// LastUpdate returns when e was last observed, or the zero time.
func (r *Registry) LastUpdate(e Entity) time.Time {
	for _, s := range r.States() {
		if s.Entity == e {
			return s.LastUpdate
		}
	}
	return time.Time{}
}

// Reset drops every filter. The next observation of each entity seeds a
// fresh one.
func (r *Registry) Reset() {
	r.pose.reset()
	r.left.reset()
	r.right.reset()
	r.face.reset()
	diagf("all tracks reset")
}
