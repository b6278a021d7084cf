package rig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

// BlendshapeNames lists the face coefficients in the perception service's
// category order.
var BlendshapeNames = []string{
	"_neutral",
	"browDownLeft", "browDownRight", "browInnerUp", "browOuterUpLeft", "browOuterUpRight",
	"cheekPuff", "cheekSquintLeft", "cheekSquintRight",
	"eyeBlinkLeft", "eyeBlinkRight",
	"eyeLookDownLeft", "eyeLookDownRight", "eyeLookInLeft", "eyeLookInRight",
	"eyeLookOutLeft", "eyeLookOutRight", "eyeLookUpLeft", "eyeLookUpRight",
	"eyeSquintLeft", "eyeSquintRight", "eyeWideLeft", "eyeWideRight",
	"jawForward", "jawLeft", "jawOpen", "jawRight",
	"mouthClose", "mouthDimpleLeft", "mouthDimpleRight", "mouthFrownLeft", "mouthFrownRight",
	"mouthFunnel", "mouthLeft", "mouthLowerDownLeft", "mouthLowerDownRight",
	"mouthPressLeft", "mouthPressRight", "mouthPucker", "mouthRight",
	"mouthRollLower", "mouthRollUpper", "mouthShrugLower", "mouthShrugUpper",
	"mouthSmileLeft", "mouthSmileRight", "mouthStretchLeft", "mouthStretchRight",
	"mouthUpperUpLeft", "mouthUpperUpRight", "noseSneerLeft", "noseSneerRight",
}

// Blendshapes maps a category name to its score. Missing names read as 0.
type Blendshapes map[string]float64

// Get returns the score for name.
func (b Blendshapes) Get(name string) float64 { return b[name] }

// EyeLook derives a gaze vector from the eye blendshapes. Positive x looks
// toward the avatar's left, positive y looks up.
func EyeLook(b Blendshapes) (x, y float64) {
	y = (b.Get("eyeLookUpLeft")+b.Get("eyeLookUpRight"))/2 -
		(b.Get("eyeLookDownLeft")+b.Get("eyeLookDownRight"))/2
	x = (b.Get("eyeLookInLeft")+b.Get("eyeLookOutRight"))/2 -
		(b.Get("eyeLookOutLeft")+b.Get("eyeLookInRight"))/2
	return x, y
}

// Eye socket placement relative to the neck.
const (
	eyeForward = 0.2
	eyeHeight  = 0.31
	eyeSpacing = 0.15
	eyeTravel  = 0.1
)

// EyeTranslation returns the local translation of one eye for a gaze vector.
// scale is the look sensitivity.
func EyeTranslation(side skeleton.Side, x, y, scale float64) r3.Vec {
	lateral := -eyeSpacing
	if side == skeleton.Right {
		lateral = eyeSpacing
	}
	return r3.Vec{
		X: eyeForward,
		Y: y*eyeTravel*scale + eyeHeight,
		Z: -x*eyeTravel*scale + lateral,
	}
}

// MouthShape is the discrete jaw state shown by the mouth node.
type MouthShape int

const (
	MouthClosed MouthShape = iota
	MouthOpenSmall
	MouthOpenBig
)

func (m MouthShape) String() string {
	switch m {
	case MouthOpenSmall:
		return "open_small"
	case MouthOpenBig:
		return "open_big"
	default:
		return "closed"
	}
}

// MarshalText encodes the shape by name.
func (m MouthShape) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a shape name.
func (m *MouthShape) UnmarshalText(b []byte) error {
	for _, c := range []MouthShape{MouthClosed, MouthOpenSmall, MouthOpenBig} {
		if c.String() == string(b) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown mouth shape %q", b)
}

// MouthFor picks the mouth shape for a jawOpen score.
func MouthFor(jawOpen float64) MouthShape {
	switch {
	case jawOpen > 0.5:
		return MouthOpenBig
	case jawOpen > 0.2:
		return MouthOpenSmall
	default:
		return MouthClosed
	}
}
