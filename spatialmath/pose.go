// Package spatialmath provides the planar rigid-body geometry used by the
// open-space planner: SE(2) poses and oriented rectangles with
// separating-axis overlap tests.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a planar rigid-body configuration: a position in metres and a
// heading in radians. Headings produced by NewPose are normalized into
// (-pi, pi].
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// NewPose creates a Pose with its heading normalized into (-pi, pi].
func NewPose(x, y, heading float64) Pose {
	return Pose{X: x, Y: y, Heading: NormalizeAngle(heading)}
}

// Point returns the position component of the pose.
func (p Pose) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Heading)
}

// NormalizeAngle wraps theta into the half-open interval (-pi, pi].
func NormalizeAngle(theta float64) float64 {
	a := math.Mod(theta+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
