package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Rect is an oriented rectangle in the plane, defined by its center, its
// heading, and its full dimensions along the heading axis (length) and the
// axis normal to it (width). Dimensions must be nonnegative.
type Rect struct {
	center     r2.Point
	heading    float64
	halfLength float64
	halfWidth  float64

	// radius of the bounding circle, for an early exit in overlap tests
	boundingR float64
}

// NewRect instantiates an oriented rectangle from its center, heading and
// full dimensions.
func NewRect(center r2.Point, heading, length, width float64) Rect {
	return Rect{
		center:     center,
		heading:    NormalizeAngle(heading),
		halfLength: length / 2,
		halfWidth:  width / 2,
		boundingR:  math.Hypot(length/2, width/2),
	}
}

// NewRectFromExtents builds an axis-aligned rectangle spanning
// [xMin, xMax] x [yMin, yMax].
func NewRectFromExtents(xMin, xMax, yMin, yMax float64) Rect {
	center := r2.Point{X: (xMin + xMax) / 2, Y: (yMin + yMax) / 2}
	return NewRect(center, 0, xMax-xMin, yMax-yMin)
}

// Center returns the center of the rectangle.
func (r Rect) Center() r2.Point {
	return r.center
}

// Heading returns the heading of the rectangle's length axis.
func (r Rect) Heading() float64 {
	return r.heading
}

// Length returns the full dimension along the heading axis.
func (r Rect) Length() float64 {
	return 2 * r.halfLength
}

// Width returns the full dimension normal to the heading axis.
func (r Rect) Width() float64 {
	return 2 * r.halfWidth
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect | Center: (%.2f, %.2f) | Heading: %.3f | Dims: %.2f x %.2f",
		r.center.X, r.center.Y, r.heading, 2*r.halfLength, 2*r.halfWidth)
}

// axes returns the unit length axis and the unit width axis of the rectangle.
func (r Rect) axes() (r2.Point, r2.Point) {
	sin, cos := math.Sincos(r.heading)
	u := r2.Point{X: cos, Y: sin}
	return u, u.Ortho()
}

// Vertices returns the four corners of the rectangle in counterclockwise
// order starting from the front-left corner.
func (r Rect) Vertices() [4]r2.Point {
	u, v := r.axes()
	du := u.Mul(r.halfLength)
	dv := v.Mul(r.halfWidth)
	return [4]r2.Point{
		r.center.Add(du).Add(dv),
		r.center.Sub(du).Add(dv),
		r.center.Sub(du).Sub(dv),
		r.center.Add(du).Sub(dv),
	}
}

// HasOverlap returns whether the two oriented rectangles overlap, using the
// separating-axis test over the four face normals. Touching rectangles count
// as overlapping.
func (r Rect) HasOverlap(other Rect) bool {
	centerDist := other.center.Sub(r.center)

	// check the bounding circles to potentially exit early
	if centerDist.Norm() > r.boundingR+other.boundingR {
		return false
	}

	uA, vA := r.axes()
	uB, vB := other.axes()
	for _, plane := range []r2.Point{uA, vA, uB, vB} {
		if separatingAxisTest(centerDist, plane, r, other) > 0 {
			return false
		}
	}
	return true
}

// separatingAxisTest projects both rectangles onto the given unit axis and
// returns the gap between them along it. Per the separating hyperplane
// theorem, a positive gap on any face normal proves the rectangles disjoint.
func separatingAxisTest(positionDelta, plane r2.Point, a, b Rect) float64 {
	uA, vA := a.axes()
	uB, vB := b.axes()
	sum := math.Abs(positionDelta.Dot(plane))
	sum -= math.Abs(uA.Mul(a.halfLength).Dot(plane))
	sum -= math.Abs(vA.Mul(a.halfWidth).Dot(plane))
	sum -= math.Abs(uB.Mul(b.halfLength).Dot(plane))
	sum -= math.Abs(vB.Mul(b.halfWidth).Dot(plane))
	return sum
}
