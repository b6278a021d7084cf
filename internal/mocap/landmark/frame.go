package landmark

// Frame pairs the image-space and world-space detections of one entity in a
// single message. It is filtered as a unit so both views share one gain.
type Frame[I Scheme] struct {
	Image Set[I] `json:"landmarks"`
	World Set[I] `json:"world_landmarks"`
}

// PoseFrame is a body detection.
type PoseFrame = Frame[PoseIndex]

// HandFrame is one hand detection.
type HandFrame = Frame[HandIndex]

// FrameFromDetections builds a frame from the first image and world
// detection of a payload. Either list being empty yields ErrNoKeyPoints.
func FrameFromDetections[I Scheme](image, world [][]RawPoint) (Frame[I], error) {
	img, err := SetFromDetections[I](image)
	if err != nil {
		return Frame[I]{}, err
	}
	w, err := SetFromDetections[I](world)
	if err != nil {
		return Frame[I]{}, err
	}
	return Frame[I]{Image: img, World: w}, nil
}

// Empty reports whether neither view holds points.
func (f Frame[I]) Empty() bool { return f.Image.Empty() && f.World.Empty() }

// IsFinite reports whether both views are finite.
func (f Frame[I]) IsFinite() bool { return f.Image.IsFinite() && f.World.IsFinite() }

func (f Frame[I]) Add(o Frame[I]) Frame[I] {
	return Frame[I]{Image: f.Image.Add(o.Image), World: f.World.Add(o.World)}
}

func (f Frame[I]) Sub(o Frame[I]) Frame[I] {
	return Frame[I]{Image: f.Image.Sub(o.Image), World: f.World.Sub(o.World)}
}

func (f Frame[I]) Scale(s float64) Frame[I] {
	return Frame[I]{Image: f.Image.Scale(s), World: f.World.Scale(s)}
}
