package rig

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/basis"
	"github.com/banshee-data/mocap.render/internal/mocap/geom"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

type bodySide struct {
	side                   skeleton.Side
	shoulder, elbow, wrist lm.PoseIndex
	index, thumb           lm.PoseIndex
	hip, otherHip          lm.PoseIndex
	knee, ankle            lm.PoseIndex

	armRest, legRest, forearmRest quat.Number
	forearmCorrective             quat.Number
	lowerLegCorrective            quat.Number

	upperArm, lowerArm, forearm func(Toggles) bool
	upperLeg, lowerLeg          func(Toggles) bool
}

var bodySides = []bodySide{
	{
		side:     skeleton.Left,
		shoulder: lm.LeftShoulder, elbow: lm.LeftElbow, wrist: lm.LeftWrist,
		index: lm.LeftIndex, thumb: lm.LeftThumb,
		hip: lm.LeftHip, otherHip: lm.RightHip,
		knee: lm.LeftKnee, ankle: lm.LeftAnkle,

		armRest:            corrective(geom.RotY(math.Pi/2), geom.RotX(-math.Pi/2)),
		legRest:            corrective(geom.RotY(math.Pi/2), geom.RotX(math.Pi)),
		forearmRest:        geom.RotY(math.Pi / 2),
		forearmCorrective:  corrective(geom.RotX(math.Pi/2), geom.RotY(math.Pi)),
		lowerLegCorrective: geom.RotY(-math.Pi / 2),

		upperArm: func(t Toggles) bool { return t.RotateLeftUpperArm },
		lowerArm: func(t Toggles) bool { return t.RotateLeftLowerArm },
		forearm:  func(t Toggles) bool { return t.RotateLeftLowerArmR },
		upperLeg: func(t Toggles) bool { return t.RotateLeftUpperLeg },
		lowerLeg: func(t Toggles) bool { return t.RotateLeftLowerLeg },
	},
	{
		side:     skeleton.Right,
		shoulder: lm.RightShoulder, elbow: lm.RightElbow, wrist: lm.RightWrist,
		index: lm.RightIndex, thumb: lm.RightThumb,
		hip: lm.RightHip, otherHip: lm.LeftHip,
		knee: lm.RightKnee, ankle: lm.RightAnkle,

		armRest:            corrective(geom.RotY(-math.Pi/2), geom.RotX(-math.Pi/2)),
		legRest:            corrective(geom.RotY(-math.Pi/2), geom.RotX(math.Pi)),
		forearmRest:        geom.RotY(-math.Pi / 2),
		forearmCorrective:  geom.RotX(math.Pi / 2),
		lowerLegCorrective: geom.RotY(math.Pi / 2),

		upperArm: func(t Toggles) bool { return t.RotateRightUpperArm },
		lowerArm: func(t Toggles) bool { return t.RotateRightLowerArm },
		forearm:  func(t Toggles) bool { return t.RotateRightLowerArmR },
		upperLeg: func(t Toggles) bool { return t.RotateRightUpperLeg },
		lowerLeg: func(t Toggles) bool { return t.RotateRightLowerLeg },
	},
}

// Rest rotations of the unsided body joints.
var (
	RootRest = geom.RotY(math.Pi)
	NeckRest = geom.RotY(math.Pi / 2)
)

// BodyJoints is the descriptor table for the torso, head, arms and legs. It
// is evaluated against world-space pose landmarks. Entries are ordered so
// that every parent precedes its children.
var BodyJoints = buildBodyJoints()

func buildBodyJoints() []Descriptor[lm.PoseIndex] {
	table := []Descriptor[lm.PoseIndex]{
		{
			Joint:      skeleton.Root,
			Kind:       basis.UpRight,
			Primary:    Hint[lm.PoseIndex]{From: []lm.PoseIndex{lm.LeftHip, lm.RightHip}, To: []lm.PoseIndex{lm.LeftShoulder, lm.RightShoulder}},
			Secondary:  Span(lm.RightHip, lm.LeftHip),
			Corrective: geom.Identity,
			Rest:       RootRest,
			Enabled:    func(t Toggles) bool { return t.RotateRoot },
		},
		{
			Joint:      skeleton.Neck,
			Kind:       basis.ForwardRight,
			Primary:    Hint[lm.PoseIndex]{From: []lm.PoseIndex{lm.LeftEar, lm.RightEar}, To: []lm.PoseIndex{lm.Nose}},
			Secondary:  Span(lm.LeftEar, lm.RightEar),
			Corrective: corrective(geom.RotY(-math.Pi/2-0.3), geom.RotX(math.Pi-0.35)),
			Rest:       NeckRest,
			Enabled:    func(t Toggles) bool { return t.RotateNeck },
		},
	}

	for _, s := range bodySides {
		table = append(table,
			Descriptor[lm.PoseIndex]{
				Joint:      skeleton.Sided(skeleton.UpperArm, s.side),
				Kind:       basis.UpForward,
				Primary:    Span(s.shoulder, s.elbow),
				Secondary:  Span(s.hip, s.shoulder),
				Corrective: geom.Identity,
				Rest:       s.armRest,
				Enabled:    s.upperArm,
			},
			Descriptor[lm.PoseIndex]{
				Joint:      skeleton.Sided(skeleton.LowerArm, s.side),
				Kind:       basis.UpForward,
				Primary:    Span(s.elbow, s.wrist),
				Secondary:  Span(s.shoulder, s.elbow),
				Corrective: geom.Identity,
				Rest:       s.armRest,
				Enabled:    s.lowerArm,
			},
			Descriptor[lm.PoseIndex]{
				Joint:      skeleton.Sided(skeleton.Forearm, s.side),
				Kind:       basis.ForwardRight,
				Primary:    Span(s.elbow, s.wrist),
				Secondary:  Span(s.thumb, s.index),
				Corrective: s.forearmCorrective,
				Rest:       s.forearmRest,
				Enabled:    s.forearm,
			},
			Descriptor[lm.PoseIndex]{
				Joint:      skeleton.Sided(skeleton.UpperLeg, s.side),
				Kind:       basis.UpRight,
				Primary:    Span(s.hip, s.knee),
				Secondary:  Span(s.otherHip, s.hip),
				Corrective: geom.RotY(math.Pi),
				Rest:       s.legRest,
				Enabled:    s.upperLeg,
			},
			Descriptor[lm.PoseIndex]{
				Joint:      skeleton.Sided(skeleton.LowerLeg, s.side),
				Kind:       basis.UpForward,
				Primary:    Span(s.knee, s.ankle),
				Secondary:  Span(s.hip, s.knee),
				Corrective: s.lowerLegCorrective,
				Rest:       s.legRest,
				Enabled:    s.lowerLeg,
			},
		)
	}
	return table
}

// rootLift raises the hip midpoint to the avatar's standing height.
var rootLift = r3.Vec{Y: 2}

// RootTranslation places the root between the hips in image-space pose
// landmarks, lifted and scaled. With move disabled the root stays at the
// origin.
func RootTranslation(image lm.PoseSet, move bool, scale float64) r3.Vec {
	if !move || image.Empty() {
		return r3.Vec{}
	}
	return r3.Scale(scale, r3.Add(image.Mid(lm.LeftHip, lm.RightHip), rootLift))
}
