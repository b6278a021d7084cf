package landmark

import (
	"errors"
	"fmt"
)

// ErrNoKeyPoints is returned when the upstream payload held no detection at
// all for an entity. Callers usually treat it as "not visible this frame".
var ErrNoKeyPoints = errors.New("unable to find any keypoint")

// IncorrectLengthError reports a detection whose point count does not match
// the scheme's cardinality.
type IncorrectLengthError struct {
	Expected int
	Actual   int
}

func (e *IncorrectLengthError) Error() string {
	return fmt.Sprintf("expected %d landmarks, got %d", e.Expected, e.Actual)
}

// InvalidPointError reports a detection holding a coordinate that is not a
// finite number within MaxCoordinate.
type InvalidPointError struct {
	Index int
	Point RawPoint
}

func (e *InvalidPointError) Error() string {
	return fmt.Sprintf("landmark %d out of range: (%g, %g, %g, %g)",
		e.Index, e.Point.X, e.Point.Y, e.Point.Z, e.Point.Visibility)
}
