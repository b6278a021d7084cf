package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/rig"
)

const (
	EventTypePose    = "pose"
	EventTypeHands   = "hands"
	EventTypeFace    = "face"
	EventTypeUnknown = "unknown"
)

var (
	// ErrUnknownPayload is returned for JSON that carries no landmarker result.
	ErrUnknownPayload = errors.New("payload has no landmarker result")
	// ErrAmbiguousPayload is returned when one payload carries several results.
	ErrAmbiguousPayload = errors.New("payload has more than one landmarker result")
)

// Envelope is the top-level message. Exactly one field is set.
type Envelope struct {
	Pose  *PoseResult `json:"poseLandmarkerResult,omitempty"`
	Hands *HandResult `json:"handLandmarkerResult,omitempty"`
	Face  *FaceResult `json:"faceLandmarkerResult,omitempty"`
}

// EventType returns the event type token of the envelope.
func (e Envelope) EventType() string {
	if countSet(e) != 1 {
		return EventTypeUnknown
	}
	switch {
	case e.Pose != nil:
		return EventTypePose
	case e.Hands != nil:
		return EventTypeHands
	default:
		return EventTypeFace
	}
}

// Decode parses one payload.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	switch n := countSet(env); {
	case n == 0:
		return Envelope{}, ErrUnknownPayload
	case n > 1:
		return Envelope{}, ErrAmbiguousPayload
	}
	return env, nil
}

func countSet(e Envelope) int {
	n := 0
	for _, set := range []bool{e.Pose != nil, e.Hands != nil, e.Face != nil} {
		if set {
			n++
		}
	}
	return n
}

// Sink receives validated detections.
type Sink interface {
	SetPose(frame lm.PoseFrame) error
	SetHands(hands []HandDetection) error
	SetFace(shapes rig.Blendshapes) error
}

// Dispatch decodes data and hands the result to sink. It returns the event
// type so callers can keep per-kind statistics, including on failure.
func Dispatch(data []byte, sink Sink) (string, error) {
	env, err := Decode(data)
	if err != nil {
		return EventTypeUnknown, err
	}
	kind := env.EventType()
	switch kind {
	case EventTypePose:
		frame, err := env.Pose.Frame()
		if err != nil {
			return kind, fmt.Errorf("failed to handle pose event: %w", err)
		}
		if err := sink.SetPose(frame); err != nil {
			return kind, fmt.Errorf("failed to handle pose event: %w", err)
		}
	case EventTypeHands:
		hands, err := env.Hands.Detections()
		if err != nil {
			return kind, fmt.Errorf("failed to handle hands event: %w", err)
		}
		if err := sink.SetHands(hands); err != nil {
			return kind, fmt.Errorf("failed to handle hands event: %w", err)
		}
	case EventTypeFace:
		shapes, err := env.Face.Blendshapes()
		if err != nil {
			return kind, fmt.Errorf("failed to handle face event: %w", err)
		}
		if err := sink.SetFace(shapes); err != nil {
			return kind, fmt.Errorf("failed to handle face event: %w", err)
		}
	}
	return kind, nil
}

// Handler consumes raw payloads from a transport.
type Handler interface {
	HandlePayload(data []byte) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(data []byte) (string, error)

// HandlePayload calls f(data).
func (f HandlerFunc) HandlePayload(data []byte) (string, error) { return f(data) }

// SinkHandler returns a Handler that dispatches every payload into sink.
func SinkHandler(sink Sink) Handler {
	return HandlerFunc(func(data []byte) (string, error) {
		return Dispatch(data, sink)
	})
}
