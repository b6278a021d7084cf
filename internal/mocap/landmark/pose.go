package landmark

import "strconv"

// PoseIndex names the 33 body landmarks of the pose scheme.
type PoseIndex int

const (
	Nose PoseIndex = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// PoseCount is the number of points in a pose set.
	PoseCount = int(RightFootIndex) + 1
)

var poseNames = [PoseCount]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Cardinality implements Scheme.
func (PoseIndex) Cardinality() int { return PoseCount }

func (i PoseIndex) String() string {
	if i < 0 || int(i) >= PoseCount {
		return "pose(" + strconv.Itoa(int(i)) + ")"
	}
	return poseNames[i]
}

// ParsePoseIndex returns the landmark with the given name.
func ParsePoseIndex(name string) (PoseIndex, bool) {
	for i, n := range poseNames {
		if n == name {
			return PoseIndex(i), true
		}
	}
	return 0, false
}

// PoseSet is a full body detection.
type PoseSet = Set[PoseIndex]
