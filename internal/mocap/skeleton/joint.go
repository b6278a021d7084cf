// Package skeleton maps humanoid joint names onto the nodes of a host scene
// graph and provides an in-memory scene graph for headless use.
package skeleton

// Joint is the exact node name a rig uses for a bone, e.g. "Root" or
// "IndexMcp.R".
type Joint string

// Side is a body side.
type Side int

const (
	Left Side = iota
	Right
)

// Suffix returns the rig naming suffix for the side.
func (s Side) Suffix() string {
	if s == Right {
		return ".R"
	}
	return ".L"
}

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Unsided joints.
const (
	Root  Joint = "Root"
	Neck  Joint = "Neck"
	Mouth Joint = "Mouth"
)

// Base names of sided joints. Combine with Sided.
const (
	Eye       = "Eye"
	UpperArm  = "UpperArm"
	LowerArm  = "LowerArm"
	Forearm   = "LowerArmR" // forearm twist bone between elbow and palm
	Palm      = "Palm"
	ThumbMcp  = "ThumbMcp"
	ThumbIp   = "ThumbIp"
	IndexMcp  = "IndexMcp"
	IndexPip  = "IndexPip"
	IndexDip  = "IndexDip"
	MiddleMcp = "MiddleMcp"
	MiddlePip = "MiddlePip"
	MiddleDip = "MiddleDip"
	RingMcp   = "RingMcp"
	RingPip   = "RingPip"
	RingDip   = "RingDip"
	PinkyMcp  = "PinkyMcp"
	PinkyPip  = "PinkyPip"
	PinkyDip  = "PinkyDip"
	UpperLeg  = "UpperLeg"
	LowerLeg  = "LowerLeg"
)

var sidedBases = []string{
	Eye, UpperArm, LowerArm, Forearm, Palm,
	ThumbMcp, ThumbIp,
	IndexMcp, IndexPip, IndexDip,
	MiddleMcp, MiddlePip, MiddleDip,
	RingMcp, RingPip, RingDip,
	PinkyMcp, PinkyPip, PinkyDip,
	UpperLeg, LowerLeg,
}

// Sided returns the joint name for base on side s.
func Sided(base string, s Side) Joint {
	return Joint(base + s.Suffix())
}

var known = func() map[Joint]struct{} {
	m := map[Joint]struct{}{Root: {}, Neck: {}, Mouth: {}}
	for _, b := range sidedBases {
		m[Sided(b, Left)] = struct{}{}
		m[Sided(b, Right)] = struct{}{}
	}
	return m
}()

// Known reports whether j is a joint the retargeting solver drives.
func Known(j Joint) bool {
	_, ok := known[j]
	return ok
}

// AllJoints returns every driven joint name.
func AllJoints() []Joint {
	out := []Joint{Root, Neck, Mouth}
	for _, s := range []Side{Left, Right} {
		for _, b := range sidedBases {
			out = append(out, Sided(b, s))
		}
	}
	return out
}
