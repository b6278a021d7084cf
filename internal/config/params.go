package config

import (
	"fmt"
	"sync"

	"github.com/banshee-data/mocap.render/internal/mocap/kalman"
	"github.com/banshee-data/mocap.render/internal/mocap/rig"
)

// Params is a fully resolved tuning snapshot.
type Params struct {
	PositionNoise             float64
	VelocityNoise             float64
	MeasurementNoisePose      float64
	MeasurementNoiseLeftHand  float64
	MeasurementNoiseRightHand float64
	MeasurementNoiseFace      float64

	MoveRoot      bool
	MoveScale     float64
	MoveEyesScale float64

	UpdatePoseData  bool
	UpdateHandsData bool
	UpdateFaceData  bool
	HandRouting     string

	Toggles rig.Toggles
}

// Noises returns the filter noises for a track with the given measurement
// noise.
func (p Params) Noises(measurement float64) kalman.Noises {
	return kalman.Noises{
		Position:    p.PositionNoise,
		Velocity:    p.VelocityNoise,
		Measurement: measurement,
	}
}

// Validate checks combinations that are only invalid once defaults are
// applied. A track whose position and measurement noise are both zero has a
// zero innovation variance and cannot be filtered.
func (p Params) Validate() error {
	if p.PositionNoise > 0 {
		return nil
	}
	for _, m := range []struct {
		name string
		v    float64
	}{
		{"measurement_noise_pose", p.MeasurementNoisePose},
		{"measurement_noise_left_hand", p.MeasurementNoiseLeftHand},
		{"measurement_noise_right_hand", p.MeasurementNoiseRightHand},
		{"measurement_noise_face", p.MeasurementNoiseFace},
	} {
		if !(m.v > 0) {
			return fmt.Errorf("%s must be positive when position_noise is zero", m.name)
		}
	}
	return nil
}

// GetToggles resolves the rotate block. Omitted toggles are on.
func (c *TuningConfig) GetToggles() rig.Toggles {
	r := c.Rotate
	if r == nil {
		r = &RotateConfig{}
	}
	return rig.Toggles{
		RotateRoot:           getBool(r.Root, true),
		RotateNeck:           getBool(r.Neck, true),
		RotateLeftUpperArm:   getBool(r.LeftUpperArm, true),
		RotateRightUpperArm:  getBool(r.RightUpperArm, true),
		RotateLeftLowerArm:   getBool(r.LeftLowerArm, true),
		RotateRightLowerArm:  getBool(r.RightLowerArm, true),
		RotateLeftLowerArmR:  getBool(r.LeftLowerArmR, true),
		RotateRightLowerArmR: getBool(r.RightLowerArmR, true),
		RotateLeftUpperLeg:   getBool(r.LeftUpperLeg, true),
		RotateRightUpperLeg:  getBool(r.RightUpperLeg, true),
		RotateLeftLowerLeg:   getBool(r.LeftLowerLeg, true),
		RotateRightLowerLeg:  getBool(r.RightLowerLeg, true),
		RotateThumbCmc:       getBool(r.ThumbCmc, true),
		RotateIndexCmc:       getBool(r.IndexCmc, true),
	}
}

// Params resolves every field, applying defaults to the ones left unset.
func (c *TuningConfig) Params() Params {
	return Params{
		PositionNoise:             c.GetPositionNoise(),
		VelocityNoise:             c.GetVelocityNoise(),
		MeasurementNoisePose:      c.GetMeasurementNoisePose(),
		MeasurementNoiseLeftHand:  c.GetMeasurementNoiseLeftHand(),
		MeasurementNoiseRightHand: c.GetMeasurementNoiseRightHand(),
		MeasurementNoiseFace:      c.GetMeasurementNoiseFace(),
		MoveRoot:                  c.GetMoveRoot(),
		MoveScale:                 c.GetMoveScale(),
		MoveEyesScale:             c.GetMoveEyesScale(),
		UpdatePoseData:            c.GetUpdatePoseData(),
		UpdateHandsData:           c.GetUpdateHandsData(),
		UpdateFaceData:            c.GetUpdateFaceData(),
		HandRouting:               c.GetHandRouting(),
		Toggles:                   c.GetToggles(),
	}
}

// Resolved returns a config with every field set from p, suitable for
// serving as the current tuning document.
func (p Params) Resolved() *TuningConfig {
	t := p.Toggles
	return &TuningConfig{
		PositionNoise:             ptrFloat64(p.PositionNoise),
		VelocityNoise:             ptrFloat64(p.VelocityNoise),
		MeasurementNoisePose:      ptrFloat64(p.MeasurementNoisePose),
		MeasurementNoiseLeftHand:  ptrFloat64(p.MeasurementNoiseLeftHand),
		MeasurementNoiseRightHand: ptrFloat64(p.MeasurementNoiseRightHand),
		MeasurementNoiseFace:      ptrFloat64(p.MeasurementNoiseFace),
		MoveRoot:                  ptrBool(p.MoveRoot),
		MoveScale:                 ptrFloat64(p.MoveScale),
		MoveEyesScale:             ptrFloat64(p.MoveEyesScale),
		UpdatePoseData:            ptrBool(p.UpdatePoseData),
		UpdateHandsData:           ptrBool(p.UpdateHandsData),
		UpdateFaceData:            ptrBool(p.UpdateFaceData),
		HandRouting:               ptrString(p.HandRouting),
		Rotate: &RotateConfig{
			Root:           ptrBool(t.RotateRoot),
			Neck:           ptrBool(t.RotateNeck),
			LeftUpperArm:   ptrBool(t.RotateLeftUpperArm),
			RightUpperArm:  ptrBool(t.RotateRightUpperArm),
			LeftLowerArm:   ptrBool(t.RotateLeftLowerArm),
			RightLowerArm:  ptrBool(t.RotateRightLowerArm),
			LeftLowerArmR:  ptrBool(t.RotateLeftLowerArmR),
			RightLowerArmR: ptrBool(t.RotateRightLowerArmR),
			LeftUpperLeg:   ptrBool(t.RotateLeftUpperLeg),
			RightUpperLeg:  ptrBool(t.RotateRightUpperLeg),
			LeftLowerLeg:   ptrBool(t.RotateLeftLowerLeg),
			RightLowerLeg:  ptrBool(t.RotateRightLowerLeg),
			ThumbCmc:       ptrBool(t.RotateThumbCmc),
			IndexCmc:       ptrBool(t.RotateIndexCmc),
		},
	}
}

// DefaultTuningConfig returns a config with every field set to its default.
func DefaultTuningConfig() *TuningConfig {
	return EmptyTuningConfig().Params().Resolved()
}

// Merge overlays the fields set in o onto c.
func (c *TuningConfig) Merge(o *TuningConfig) {
	if o == nil {
		return
	}
	mergeFloat(&c.PositionNoise, o.PositionNoise)
	mergeFloat(&c.VelocityNoise, o.VelocityNoise)
	mergeFloat(&c.MeasurementNoisePose, o.MeasurementNoisePose)
	mergeFloat(&c.MeasurementNoiseLeftHand, o.MeasurementNoiseLeftHand)
	mergeFloat(&c.MeasurementNoiseRightHand, o.MeasurementNoiseRightHand)
	mergeFloat(&c.MeasurementNoiseFace, o.MeasurementNoiseFace)
	mergeBool(&c.MoveRoot, o.MoveRoot)
	mergeFloat(&c.MoveScale, o.MoveScale)
	mergeFloat(&c.MoveEyesScale, o.MoveEyesScale)
	mergeBool(&c.UpdatePoseData, o.UpdatePoseData)
	mergeBool(&c.UpdateHandsData, o.UpdateHandsData)
	mergeBool(&c.UpdateFaceData, o.UpdateFaceData)
	if o.HandRouting != nil {
		c.HandRouting = ptrString(*o.HandRouting)
	}

	if o.Rotate == nil {
		return
	}
	if c.Rotate == nil {
		c.Rotate = &RotateConfig{}
	}
	r, or := c.Rotate, o.Rotate
	for _, pair := range [][2]**bool{
		{&r.Root, &or.Root},
		{&r.Neck, &or.Neck},
		{&r.LeftUpperArm, &or.LeftUpperArm},
		{&r.RightUpperArm, &or.RightUpperArm},
		{&r.LeftLowerArm, &or.LeftLowerArm},
		{&r.RightLowerArm, &or.RightLowerArm},
		{&r.LeftLowerArmR, &or.LeftLowerArmR},
		{&r.RightLowerArmR, &or.RightLowerArmR},
		{&r.LeftUpperLeg, &or.LeftUpperLeg},
		{&r.RightUpperLeg, &or.RightUpperLeg},
		{&r.LeftLowerLeg, &or.LeftLowerLeg},
		{&r.RightLowerLeg, &or.RightLowerLeg},
		{&r.ThumbCmc, &or.ThumbCmc},
		{&r.IndexCmc, &or.IndexCmc},
	} {
		mergeBool(pair[0], *pair[1])
	}
}

func mergeFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = ptrFloat64(*src)
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		*dst = ptrBool(*src)
	}
}

// Store holds the live tuning. It is safe for concurrent use; readers get a
// consistent snapshot.
type Store struct {
	mu     sync.RWMutex
	cfg    *TuningConfig
	params Params
}

// NewStore returns a store seeded from cfg. A nil cfg uses the defaults.
func NewStore(cfg *TuningConfig) *Store {
	s := &Store{cfg: EmptyTuningConfig()}
	s.cfg.Merge(cfg)
	s.params = s.cfg.Params()
	return s
}

// Params returns the current resolved tuning.
func (s *Store) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Apply validates a partial update against the live tuning and merges it in.
// On a validation error nothing changes.
func (s *Store) Apply(update *TuningConfig) (Params, error) {
	if update == nil {
		return s.Params(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := EmptyTuningConfig()
	next.Merge(s.cfg)
	next.Merge(update)
	if err := next.Validate(); err != nil {
		return s.params, err
	}
	s.cfg = next
	s.params = next.Params()
	return s.params, nil
}
