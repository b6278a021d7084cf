package pipeline

import (
	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
)

// Handedness labels produced by the hand classifier.
const (
	LabelLeft  = "Left"
	LabelRight = "Right"
)

// routed is the hand frame chosen for one side, if any.
type routed struct {
	frame lm.HandFrame
	score float64
	ok    bool
}

// routeHands assigns detections to sides. In index mode detection 0 drives
// the left hand and detection 1 the right hand. In label mode the
// classifier label decides; when two detections share a label the higher
// score wins. Detections that map to no side are dropped.
func routeHands(hands []ingest.HandDetection, mode string) [2]routed {
	var out [2]routed
	for _, h := range hands {
		side, ok := sideFor(h, mode)
		if !ok {
			diagf("dropping hand detection %d (label %q, routing %s)", h.Index, h.Label, mode)
			continue
		}
		cur := &out[side]
		if cur.ok && cur.score >= h.Score {
			diagf("dropping duplicate %s hand detection %d", side, h.Index)
			continue
		}
		*cur = routed{frame: h.Frame, score: h.Score, ok: true}
	}
	return out
}

func sideFor(h ingest.HandDetection, mode string) (skeleton.Side, bool) {
	if mode == config.HandRoutingLabel {
		switch h.Label {
		case LabelLeft:
			return skeleton.Left, true
		case LabelRight:
			return skeleton.Right, true
		}
		return 0, false
	}
	switch h.Index {
	case 0:
		return skeleton.Left, true
	case 1:
		return skeleton.Right, true
	}
	return 0, false
}
