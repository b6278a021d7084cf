package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/kalman"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/rig"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

// ErrNilScene is returned by NewDriver without a scene.
var ErrNilScene = errors.New("pipeline: nil scene")

// HandReport is the apply result for one hand.
type HandReport struct {
	Side   string     `json:"side"`
	Report rig.Report `json:"report"`
}

// FaceReport is the face state applied in one tick.
type FaceReport struct {
	LookX float64        `json:"look_x"`
	LookY float64        `json:"look_y"`
	Jaw   float64        `json:"jaw_open"`
	Mouth rig.MouthShape `json:"mouth"`
	Eyes  [2]r3.Vec      `json:"eyes"`
}

// FrameReport summarises one Tick.
type FrameReport struct {
	Seq             uint64       `json:"seq"`
	At              time.Time    `json:"at"`
	Body            *rig.Report  `json:"body,omitempty"`
	RootTranslation *r3.Vec      `json:"root_translation,omitempty"`
	Hands           []HandReport `json:"hands,omitempty"`
	Face            *FaceReport  `json:"face,omitempty"`
	Tracks          []TrackState `json:"tracks"`
	Errors          []string     `json:"errors,omitempty"`
}

// Applied returns the number of joints written this tick.
func (f FrameReport) Applied() int {
	n := 0
	if f.Body != nil {
		n += f.Body.Applied
	}
	for _, h := range f.Hands {
		n += h.Report.Applied
	}
	return n
}

// FrameObserver is notified after every Tick.
type FrameObserver interface {
	ObserveFrame(FrameReport)
}

// PoseObserver is notified of every accepted pose measurement with the raw
// and filtered frames.
type PoseObserver interface {
	ObservePose(at time.Time, raw, filtered lm.PoseFrame)
}

// Driver owns the tracks of one avatar and drives its scene. The Set*
// methods may be called from any goroutine; Tick is called from the host
// frame loop.
type Driver struct {
	scene skeleton.Scene
	parts *skeleton.Parts
	store *config.Store
	clock timeutil.Clock
	reg   *Registry

	tickMu   sync.Mutex
	seq      uint64
	lastErrs int

	mu            sync.RWMutex
	latest        FrameReport
	hands         []ingest.HandDetection
	face          rig.Blendshapes
	observers     []FrameObserver
	poseObservers []PoseObserver
}

// NewDriver returns a driver for scene. A nil store uses the default
// tuning and a nil clock the wall clock.
func NewDriver(scene skeleton.Scene, parts *skeleton.Parts, store *config.Store, clock timeutil.Clock) (*Driver, error) {
	if scene == nil {
		return nil, ErrNilScene
	}
	if parts == nil {
		parts = skeleton.ScanParts(scene, diagf)
	}
	if store == nil {
		store = config.NewStore(nil)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Driver{
		scene: scene,
		parts: parts,
		store: store,
		clock: clock,
		reg:   NewRegistry(clock),
	}, nil
}

// Registry returns the driver's tracks.
func (d *Driver) Registry() *Registry { return d.reg }

// Store returns the live tuning.
func (d *Driver) Store() *config.Store { return d.store }

// AddFrameObserver registers o for every subsequent Tick.
func (d *Driver) AddFrameObserver(o FrameObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// AddPoseObserver registers o for every subsequent pose measurement.
func (d *Driver) AddPoseObserver(o PoseObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poseObservers = append(d.poseObservers, o)
}

// SetPose feeds one pose measurement. It is a no-op while pose updates are
// disabled.
func (d *Driver) SetPose(frame lm.PoseFrame) error {
	p := d.store.Params()
	if !p.UpdatePoseData {
		tracef("pose update ignored: update_pose_data off")
		return nil
	}
	if frame.World.Empty() || frame.Image.Empty() {
		return fmt.Errorf("pose: %w", lm.ErrNoKeyPoints)
	}
	filtered, dt, err := d.reg.ObservePose(frame, p.Noises(p.MeasurementNoisePose))
	if err != nil {
		return err
	}
	tracef("pose update dt=%.4fs", dt)

	d.mu.RLock()
	obs := d.poseObservers
	d.mu.RUnlock()
	at := d.clock.Now()
	for _, o := range obs {
		o.ObservePose(at, frame, filtered)
	}
	return nil
}

// SetHands feeds one hand payload. Sides missing from the payload keep
// their previous state.
func (d *Driver) SetHands(hands []ingest.HandDetection) error {
	p := d.store.Params()
	if !p.UpdateHandsData {
		tracef("hands update ignored: update_hands_data off")
		return nil
	}
	d.mu.Lock()
	d.hands = append([]ingest.HandDetection(nil), hands...)
	d.mu.Unlock()

	noise := [2]float64{p.MeasurementNoiseLeftHand, p.MeasurementNoiseRightHand}
	var errs []error
	for side, r := range routeHands(hands, p.HandRouting) {
		if !r.ok {
			continue
		}
		s := skeleton.Side(side)
		_, dt, err := d.reg.ObserveHand(s, r.frame, p.Noises(noise[side]))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tracef("%s hand update dt=%.4fs", s, dt)
	}
	return errors.Join(errs...)
}

// SetFace feeds one set of blendshape scores.
func (d *Driver) SetFace(shapes rig.Blendshapes) error {
	p := d.store.Params()
	if !p.UpdateFaceData {
		tracef("face update ignored: update_face_data off")
		return nil
	}
	x, y := rig.EyeLook(shapes)
	v := kalman.Vec3{X: x, Y: y, Z: shapes.Get("jawOpen")}
	_, dt, err := d.reg.ObserveFace(v, p.Noises(p.MeasurementNoiseFace))
	if err != nil {
		return err
	}
	tracef("face update dt=%.4fs", dt)

	d.mu.Lock()
	d.face = shapes
	d.mu.Unlock()
	return nil
}

// Hands returns the detections of the last accepted hand payload.
func (d *Driver) Hands() []ingest.HandDetection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]ingest.HandDetection(nil), d.hands...)
}

// Face returns the blendshapes of the last accepted face payload.
func (d *Driver) Face() rig.Blendshapes {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(rig.Blendshapes, len(d.face))
	for k, v := range d.face {
		out[k] = v
	}
	return out
}

// Tick solves and applies one frame: body, then hands, then face. Entities
// that have never been observed are skipped. Per-joint failures are
// recorded in the report and do not stop the tick.
func (d *Driver) Tick() FrameReport {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	p := d.store.Params()
	d.seq++
	rep := FrameReport{Seq: d.seq, At: d.clock.Now()}

	if pose, ok := d.reg.Pose(); ok {
		body := rig.Apply(d.scene, d.parts, rig.Solve(pose.World, rig.BodyJoints, p.Toggles))
		rep.Body = &body
		rep.collect(body)

		root := rig.RootTranslation(pose.Image, p.MoveRoot, p.MoveScale)
		if err := rig.ApplyTranslation(d.scene, d.parts, skeleton.Root, root); err != nil {
			rep.Errors = append(rep.Errors, err.Error())
		} else {
			rep.RootTranslation = &root
		}
	}

	for _, side := range []skeleton.Side{skeleton.Left, skeleton.Right} {
		hand, ok := d.reg.Hand(side)
		if !ok {
			continue
		}
		hr := rig.Apply(d.scene, d.parts, rig.Solve(hand.Image, rig.HandJoints(side), p.Toggles))
		rep.Hands = append(rep.Hands, HandReport{Side: side.String(), Report: hr})
		rep.collect(hr)
	}

	if v, ok := d.reg.Face(); ok {
		face := &FaceReport{LookX: v.X, LookY: v.Y, Jaw: v.Z, Mouth: rig.MouthFor(v.Z)}
		for _, side := range []skeleton.Side{skeleton.Left, skeleton.Right} {
			eye := rig.EyeTranslation(side, v.X, v.Y, p.MoveEyesScale)
			face.Eyes[side] = eye
			if err := rig.ApplyTranslation(d.scene, d.parts, skeleton.Sided(skeleton.Eye, side), eye); err != nil {
				rep.Errors = append(rep.Errors, err.Error())
			}
		}
		rep.Face = face
	}

	rep.Tracks = d.reg.States()
	if n := len(rep.Errors); n != d.lastErrs {
		if n > 0 {
			opsf("tick %d: %d joint errors, first: %s", rep.Seq, n, rep.Errors[0])
		} else {
			opsf("tick %d: joint errors cleared", rep.Seq)
		}
		d.lastErrs = n
	}
	tracef("tick %d: applied %d joints", rep.Seq, rep.Applied())

	d.mu.Lock()
	d.latest = rep
	obs := d.observers
	d.mu.Unlock()
	for _, o := range obs {
		o.ObserveFrame(rep)
	}
	return rep
}

func (f *FrameReport) collect(r rig.Report) {
	for _, err := range r.Errors() {
		f.Errors = append(f.Errors, err.Error())
	}
}

// Latest returns the report of the most recent Tick.
func (d *Driver) Latest() FrameReport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

var _ ingest.Sink = (*Driver)(nil)
