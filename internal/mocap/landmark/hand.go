package landmark

import "strconv"

// HandIndex names the 21 landmarks of the hand scheme.
type HandIndex int

const (
	Wrist HandIndex = iota
	ThumbCmc
	ThumbMcp
	ThumbIp
	ThumbTip
	IndexFingerMcp
	IndexFingerPip
	IndexFingerDip
	IndexFingerTip
	MiddleFingerMcp
	MiddleFingerPip
	MiddleFingerDip
	MiddleFingerTip
	RingFingerMcp
	RingFingerPip
	RingFingerDip
	RingFingerTip
	PinkyMcp
	PinkyPip
	PinkyDip
	PinkyTip

	// HandCount is the number of points in a hand set.
	HandCount = int(PinkyTip) + 1
)

var handNames = [HandCount]string{
	"wrist", "thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_finger_mcp", "index_finger_pip", "index_finger_dip", "index_finger_tip",
	"middle_finger_mcp", "middle_finger_pip", "middle_finger_dip", "middle_finger_tip",
	"ring_finger_mcp", "ring_finger_pip", "ring_finger_dip", "ring_finger_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// Cardinality implements Scheme.
func (HandIndex) Cardinality() int { return HandCount }

func (i HandIndex) String() string {
	if i < 0 || int(i) >= HandCount {
		return "hand(" + strconv.Itoa(int(i)) + ")"
	}
	return handNames[i]
}

// HandSet is a single hand detection.
type HandSet = Set[HandIndex]
