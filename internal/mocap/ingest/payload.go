// Package ingest decodes the landmarker results streamed by the perception
// service and routes them to a Sink.
package ingest

import (
	"fmt"

	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/rig"
)

// Category is one classifier output, used for handedness and blendshapes.
type Category struct {
	Index        int     `json:"index"`
	Score        float64 `json:"score"`
	CategoryName string  `json:"categoryName"`
	DisplayName  string  `json:"displayName"`
}

// PoseResult is the body landmarker output.
type PoseResult struct {
	Landmarks      [][]lm.RawPoint `json:"landmarks"`
	WorldLandmarks [][]lm.RawPoint `json:"worldLandmarks"`
}

// HandResult is the hand landmarker output, one entry per detected hand.
type HandResult struct {
	Handedness     [][]Category    `json:"handedness"`
	Handednesses   [][]Category    `json:"handednesses,omitempty"`
	Landmarks      [][]lm.RawPoint `json:"landmarks"`
	WorldLandmarks [][]lm.RawPoint `json:"worldLandmarks"`
}

// Classifications groups the categories produced for one face.
type Classifications struct {
	Categories []Category `json:"categories"`
	HeadIndex  int        `json:"headIndex"`
	HeadName   string     `json:"headName"`
}

// FaceResult is the face landmarker output. Only the blendshapes drive the
// rig; landmarks and transforms are carried for recording.
type FaceResult struct {
	FaceLandmarks                [][]lm.RawPoint   `json:"faceLandmarks,omitempty"`
	FaceBlendshapes              []Classifications `json:"faceBlendshapes"`
	FacialTransformationMatrixes [][]float64       `json:"facialTransformationMatrixes,omitempty"`
}

// Frame converts the first detection into a pose frame.
func (p *PoseResult) Frame() (lm.PoseFrame, error) {
	return lm.FrameFromDetections[lm.PoseIndex](p.Landmarks, p.WorldLandmarks)
}

// HandDetection is one detected hand with its classifier label.
type HandDetection struct {
	// Index is the detection's position in the payload.
	Index int `json:"index"`
	// Label is the handedness category name, "Left" or "Right".
	Label string       `json:"label"`
	Score float64      `json:"score"`
	Frame lm.HandFrame `json:"frame"`
}

// Detections converts every hand in the result. A payload with no hands
// yields no detections and no error. A detection whose image or world view
// has the wrong shape fails the whole payload.
func (h *HandResult) Detections() ([]HandDetection, error) {
	out := make([]HandDetection, 0, len(h.Landmarks))
	for i, image := range h.Landmarks {
		if i >= len(h.WorldLandmarks) {
			return nil, fmt.Errorf("hand %d: world landmarks: %w", i, lm.ErrNoKeyPoints)
		}
		img, err := lm.SetFromRaw[lm.HandIndex](image)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		world, err := lm.SetFromRaw[lm.HandIndex](h.WorldLandmarks[i])
		if err != nil {
			return nil, fmt.Errorf("hand %d world: %w", i, err)
		}
		d := HandDetection{Index: i, Frame: lm.HandFrame{Image: img, World: world}}
		if c, ok := h.label(i); ok {
			d.Label = c.CategoryName
			d.Score = c.Score
		}
		out = append(out, d)
	}
	return out, nil
}

func (h *HandResult) label(i int) (Category, bool) {
	for _, src := range [][][]Category{h.Handedness, h.Handednesses} {
		if i < len(src) && len(src[i]) > 0 {
			return src[i][0], true
		}
	}
	return Category{}, false
}

// Blendshapes returns the scores of the first face. A result with no face
// yields ErrNoKeyPoints.
func (f *FaceResult) Blendshapes() (rig.Blendshapes, error) {
	if len(f.FaceBlendshapes) == 0 {
		return nil, lm.ErrNoKeyPoints
	}
	cats := f.FaceBlendshapes[0].Categories
	out := make(rig.Blendshapes, len(cats))
	for _, c := range cats {
		name := c.CategoryName
		if name == "" && c.Index >= 0 && c.Index < len(rig.BlendshapeNames) {
			name = rig.BlendshapeNames[c.Index]
		}
		if name == "" {
			continue
		}
		out[name] = c.Score
	}
	return out, nil
}
