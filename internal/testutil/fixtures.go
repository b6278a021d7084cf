package testutil

import (
	"encoding/json"

	"gonum.org/v1/gonum/spatial/r3"

	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
)

// poseLeft holds the left half of a standing pose in engine space, with the
// avatar's left side toward -X. The right half is its mirror image.
var poseLeft = map[lm.PoseIndex]r3.Vec{
	lm.LeftEyeInner:  {X: -0.02, Y: 0.68, Z: -0.08},
	lm.LeftEye:       {X: -0.035, Y: 0.68, Z: -0.08},
	lm.LeftEyeOuter:  {X: -0.05, Y: 0.68, Z: -0.08},
	lm.LeftEar:       {X: -0.07, Y: 0.65, Z: 0},
	lm.MouthLeft:     {X: -0.03, Y: 0.6, Z: -0.08},
	lm.LeftShoulder:  {X: -0.2, Y: 0.5, Z: 0},
	lm.LeftElbow:     {X: -0.45, Y: 0.5, Z: 0},
	lm.LeftWrist:     {X: -0.7, Y: 0.55, Z: -0.05},
	lm.LeftPinky:     {X: -0.78, Y: 0.55, Z: -0.03},
	lm.LeftIndex:     {X: -0.8, Y: 0.56, Z: -0.06},
	lm.LeftThumb:     {X: -0.75, Y: 0.57, Z: -0.1},
	lm.LeftHip:       {X: -0.1, Y: 0, Z: 0},
	lm.LeftKnee:      {X: -0.1, Y: -0.45, Z: -0.02},
	lm.LeftAnkle:     {X: -0.1, Y: -0.9, Z: 0},
	lm.LeftHeel:      {X: -0.1, Y: -0.95, Z: 0.03},
	lm.LeftFootIndex: {X: -0.1, Y: -0.95, Z: -0.1},
}

var poseMirror = map[lm.PoseIndex]lm.PoseIndex{
	lm.LeftEyeInner:  lm.RightEyeInner,
	lm.LeftEye:       lm.RightEye,
	lm.LeftEyeOuter:  lm.RightEyeOuter,
	lm.LeftEar:       lm.RightEar,
	lm.MouthLeft:     lm.MouthRight,
	lm.LeftShoulder:  lm.RightShoulder,
	lm.LeftElbow:     lm.RightElbow,
	lm.LeftWrist:     lm.RightWrist,
	lm.LeftPinky:     lm.RightPinky,
	lm.LeftIndex:     lm.RightIndex,
	lm.LeftThumb:     lm.RightThumb,
	lm.LeftHip:       lm.RightHip,
	lm.LeftKnee:      lm.RightKnee,
	lm.LeftAnkle:     lm.RightAnkle,
	lm.LeftHeel:      lm.RightHeel,
	lm.LeftFootIndex: lm.RightFootIndex,
}

func mirrorX(v r3.Vec) r3.Vec { return r3.Vec{X: -v.X, Y: v.Y, Z: v.Z} }

// StandingPose returns a left/right symmetric pose with slightly bent elbows
// and knees, so every body joint has a well-defined basis.
func StandingPose() lm.PoseSet { return SymmetricPose(nil) }

// SymmetricPose returns the standing pose with the given left-side landmarks
// moved. The right side is always the mirror image of the left. Keys must be
// left-side indices.
func SymmetricPose(left map[lm.PoseIndex]r3.Vec) lm.PoseSet {
	pts := make([]lm.Landmark, lm.PoseCount)
	pts[lm.Nose] = lm.Landmark{Position: r3.Vec{Y: 0.65, Z: -0.1}, Visibility: 1}
	for l, p := range poseLeft {
		if moved, ok := left[l]; ok {
			p = moved
		}
		pts[l] = lm.Landmark{Position: p, Visibility: 1}
		pts[poseMirror[l]] = lm.Landmark{Position: mirrorX(p), Visibility: 1}
	}
	set, err := lm.NewSet[lm.PoseIndex](pts)
	if err != nil {
		panic(err)
	}
	return set
}

// openHand is a flat left hand in engine space with fingers along +Y and the
// thumb toward +X.
var openHand = [lm.HandCount]r3.Vec{
	lm.Wrist:           {},
	lm.ThumbCmc:        {X: 0.12, Y: 0.1},
	lm.ThumbMcp:        {X: 0.2, Y: 0.2},
	lm.ThumbIp:         {X: 0.27, Y: 0.3},
	lm.ThumbTip:        {X: 0.32, Y: 0.38},
	lm.IndexFingerMcp:  {X: 0.12, Y: 0.4},
	lm.IndexFingerPip:  {X: 0.12, Y: 0.6, Z: 0.01},
	lm.IndexFingerDip:  {X: 0.12, Y: 0.75, Z: 0.02},
	lm.IndexFingerTip:  {X: 0.12, Y: 0.85, Z: 0.03},
	lm.MiddleFingerMcp: {X: 0.04, Y: 0.4},
	lm.MiddleFingerPip: {X: 0.04, Y: 0.62, Z: 0.01},
	lm.MiddleFingerDip: {X: 0.04, Y: 0.78, Z: 0.02},
	lm.MiddleFingerTip: {X: 0.04, Y: 0.9, Z: 0.03},
	lm.RingFingerMcp:   {X: -0.04, Y: 0.38},
	lm.RingFingerPip:   {X: -0.04, Y: 0.58, Z: 0.01},
	lm.RingFingerDip:   {X: -0.04, Y: 0.72, Z: 0.02},
	lm.RingFingerTip:   {X: -0.04, Y: 0.82, Z: 0.03},
	lm.PinkyMcp:        {X: -0.12, Y: 0.34},
	lm.PinkyPip:        {X: -0.12, Y: 0.5, Z: 0.01},
	lm.PinkyDip:        {X: -0.12, Y: 0.6, Z: 0.02},
	lm.PinkyTip:        {X: -0.12, Y: 0.68, Z: 0.03},
}

// OpenHand returns a flat, spread hand. The right hand is the mirror image
// of the left.
func OpenHand(right bool) lm.HandSet {
	pts := make([]lm.Landmark, lm.HandCount)
	for i, p := range openHand {
		if right {
			p = mirrorX(p)
		}
		pts[i] = lm.Landmark{Position: p, Visibility: 1}
	}
	set, err := lm.NewSet[lm.HandIndex](pts)
	if err != nil {
		panic(err)
	}
	return set
}

// Reflect mirrors every landmark of a set across the x = 0 plane, keeping
// indices. Reflecting a left hand yields the matching right hand.
func Reflect[I lm.Scheme](set lm.Set[I]) lm.Set[I] {
	pts := set.Points()
	for i := range pts {
		pts[i].Position = mirrorX(pts[i].Position)
	}
	out, err := lm.NewSet[I](pts)
	if err != nil {
		panic(err)
	}
	return out
}

// Offset translates every landmark of a set by d.
func Offset[I lm.Scheme](set lm.Set[I], d r3.Vec) lm.Set[I] {
	pts := set.Points()
	for i := range pts {
		pts[i].Position = r3.Add(pts[i].Position, d)
	}
	out, err := lm.NewSet[I](pts)
	if err != nil {
		panic(err)
	}
	return out
}

// Raw converts a set back into perception-space points.
func Raw[I lm.Scheme](set lm.Set[I]) []lm.RawPoint {
	pts := set.Points()
	out := make([]lm.RawPoint, len(pts))
	for i, p := range pts {
		out[i] = lm.RawPoint{X: -p.Position.X, Y: -p.Position.Y, Z: p.Position.Z, Visibility: p.Visibility}
	}
	return out
}

// PosePayload encodes a pose landmarker result carrying set as both the
// image and world detection.
func PosePayload(set lm.PoseSet) []byte {
	raw := Raw(set)
	return mustJSON(map[string]interface{}{
		"poseLandmarkerResult": map[string]interface{}{
			"landmarks":      [][]lm.RawPoint{raw},
			"worldLandmarks": [][]lm.RawPoint{raw},
		},
	})
}

// HandsPayload encodes a hand landmarker result with one detection per set,
// labelled in order.
func HandsPayload(labels []string, sets ...lm.HandSet) []byte {
	landmarks := make([][]lm.RawPoint, len(sets))
	handedness := make([][]map[string]interface{}, len(sets))
	for i, s := range sets {
		landmarks[i] = Raw(s)
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		handedness[i] = []map[string]interface{}{{
			"index": i, "score": 0.98, "categoryName": label, "displayName": label,
		}}
	}
	return mustJSON(map[string]interface{}{
		"handLandmarkerResult": map[string]interface{}{
			"handedness":     handedness,
			"landmarks":      landmarks,
			"worldLandmarks": landmarks,
		},
	})
}

// FacePayload encodes a face landmarker result with the given scores.
func FacePayload(scores map[string]float64) []byte {
	var cats []map[string]interface{}
	i := 0
	for name, score := range scores {
		cats = append(cats, map[string]interface{}{
			"index": i, "score": score, "categoryName": name, "displayName": "",
		})
		i++
	}
	return mustJSON(map[string]interface{}{
		"faceLandmarkerResult": map[string]interface{}{
			"faceBlendshapes": []map[string]interface{}{{
				"categories": cats, "headIndex": -1, "headName": "",
			}},
		},
	})
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
