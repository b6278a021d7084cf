package rig

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/banshee-data/mocap.render/internal/mocap/basis"
	"github.com/banshee-data/mocap.render/internal/mocap/geom"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

type finger struct {
	mcp, pip, dip, tip lm.HandIndex
	// lateral is the neighbouring knuckle used as the splay reference.
	lateral lm.HandIndex

	joints [3]string
	// rightMcp and rightDistal are extra post-rotations applied on the
	// right hand to its knuckle and to its two distal joints.
	rightMcp, rightDistal quat.Number
	enabled               func(Toggles) bool
}

var (
	fingerBend   = geom.RotX(math.Pi / 2)
	rightSplay   = geom.RotY(-math.Pi / 2)
	thumbMcpFlip = geom.RotX(-math.Pi)
	thumbIpFlip  = geom.RotX(math.Pi / 2)
)

var fingers = []finger{
	{
		mcp: lm.IndexFingerMcp, pip: lm.IndexFingerPip, dip: lm.IndexFingerDip, tip: lm.IndexFingerTip,
		lateral:  lm.ThumbMcp,
		joints:   [3]string{skeleton.IndexMcp, skeleton.IndexPip, skeleton.IndexDip},
		rightMcp: rightSplay, rightDistal: geom.Identity,
		enabled: func(t Toggles) bool { return t.RotateIndexCmc },
	},
	{
		mcp: lm.MiddleFingerMcp, pip: lm.MiddleFingerPip, dip: lm.MiddleFingerDip, tip: lm.MiddleFingerTip,
		lateral:  lm.IndexFingerMcp,
		joints:   [3]string{skeleton.MiddleMcp, skeleton.MiddlePip, skeleton.MiddleDip},
		rightMcp: rightSplay, rightDistal: geom.Identity,
	},
	{
		mcp: lm.RingFingerMcp, pip: lm.RingFingerPip, dip: lm.RingFingerDip, tip: lm.RingFingerTip,
		lateral:  lm.MiddleFingerMcp,
		joints:   [3]string{skeleton.RingMcp, skeleton.RingPip, skeleton.RingDip},
		rightMcp: rightSplay, rightDistal: rightSplay,
	},
	{
		mcp: lm.PinkyMcp, pip: lm.PinkyPip, dip: lm.PinkyDip, tip: lm.PinkyTip,
		lateral:  lm.RingFingerMcp,
		joints:   [3]string{skeleton.PinkyMcp, skeleton.PinkyPip, skeleton.PinkyDip},
		rightMcp: rightSplay, rightDistal: rightSplay,
	},
}

var (
	leftHandJoints  = buildHandJoints(skeleton.Left)
	rightHandJoints = buildHandJoints(skeleton.Right)
)

// HandJoints returns the descriptor table for one hand: palm, thumb, then
// the four fingers from knuckle to tip. It is evaluated against image-space
// hand landmarks.
func HandJoints(side skeleton.Side) []Descriptor[lm.HandIndex] {
	if side == skeleton.Right {
		return rightHandJoints
	}
	return leftHandJoints
}

func buildHandJoints(side skeleton.Side) []Descriptor[lm.HandIndex] {
	right := side == skeleton.Right
	pick := func(q quat.Number) quat.Number {
		if right {
			return q
		}
		return geom.Identity
	}

	// Thumb-to-pinky on the left hand, pinky-to-thumb on the right.
	palmRight := Span(lm.PinkyMcp, lm.ThumbCmc)
	if right {
		palmRight = Span(lm.ThumbCmc, lm.PinkyMcp)
	}
	thumbRight := Span(lm.IndexFingerMcp, lm.ThumbMcp)
	thumbEnabled := func(t Toggles) bool { return t.RotateThumbCmc }

	table := []Descriptor[lm.HandIndex]{
		{
			Joint:      skeleton.Sided(skeleton.Palm, side),
			Kind:       basis.ForwardRight,
			Primary:    Span(lm.Wrist, lm.MiddleFingerMcp),
			Secondary:  palmRight,
			Corrective: fingerBend,
			Rest:       geom.Identity,
		},
		{
			Joint:      skeleton.Sided(skeleton.ThumbMcp, side),
			Kind:       basis.ForwardRight,
			Primary:    Span(lm.ThumbMcp, lm.ThumbIp),
			Secondary:  thumbRight,
			Corrective: pick(thumbMcpFlip),
			Rest:       geom.Identity,
			Enabled:    thumbEnabled,
		},
		{
			Joint:      skeleton.Sided(skeleton.ThumbIp, side),
			Kind:       basis.ForwardRight,
			Primary:    Span(lm.ThumbIp, lm.ThumbTip),
			Secondary:  thumbRight,
			Corrective: pick(thumbIpFlip),
			Rest:       geom.Identity,
			Enabled:    thumbEnabled,
		},
	}

	for _, f := range fingers {
		lateral := Span(f.mcp, f.lateral)
		segments := [3]Hint[lm.HandIndex]{
			Span(f.mcp, f.pip),
			Span(f.pip, f.dip),
			Span(f.dip, f.tip),
		}
		extras := [3]quat.Number{pick(f.rightMcp), pick(f.rightDistal), pick(f.rightDistal)}
		for i, seg := range segments {
			d := Descriptor[lm.HandIndex]{
				Joint:      skeleton.Sided(f.joints[i], side),
				Kind:       basis.ForwardRight,
				Primary:    seg,
				Secondary:  lateral,
				Corrective: corrective(fingerBend, extras[i]),
				Rest:       geom.Identity,
			}
			if i == 0 {
				d.Enabled = f.enabled
			}
			table = append(table, d)
		}
	}
	return table
}
