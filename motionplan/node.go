package motionplan

import (
	"math"

	"github.com/golang/geo/r2"

	"openspace/spatialmath"
)

// Bounds is the axis-aligned planning region [XMin, XMax] x [YMin, YMax].
type Bounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

func (b Bounds) valid() bool {
	return b.XMax > b.XMin && b.YMax > b.YMin
}

func (b Bounds) contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// node3d is one vertex of the search graph: a continuous terminal pose
// together with the samples of the motion primitive that reached it, collapsed
// onto a 3D grid cell for deduplication. The sample arrays are never mutated
// after construction.
type node3d struct {
	pose spatialmath.Pose
	xs   []float64
	ys   []float64
	phis []float64

	ix    int
	iy    int
	iphi  int
	index int64

	parent    *node3d
	direction bool // true = forward
	steer     float64
	trajCost  float64
	heuCost   float64
}

// newNode constructs a node holding a single pose sample, used for the start
// and goal configurations.
func newNode(pose spatialmath.Pose, bounds Bounds, opt *PlannerOptions) *node3d {
	return newNodeFromSamples(
		[]float64{pose.X}, []float64{pose.Y}, []float64{pose.Heading}, bounds, opt)
}

// newNodeFromSamples constructs a node from the continuous samples of a motion
// primitive or analytic curve; the last sample is the node's terminal pose.
// Headings must already be normalized into (-pi, pi].
func newNodeFromSamples(xs, ys, phis []float64, bounds Bounds, opt *PlannerOptions) *node3d {
	last := len(xs) - 1
	n := &node3d{
		pose:      spatialmath.Pose{X: xs[last], Y: ys[last], Heading: phis[last]},
		xs:        xs,
		ys:        ys,
		phis:      phis,
		direction: true,
	}
	n.ix = int(math.Floor((n.pose.X - bounds.XMin) / opt.XYGridResolution))
	n.iy = int(math.Floor((n.pose.Y - bounds.YMin) / opt.XYGridResolution))
	n.iphi = int(math.Floor((n.pose.Heading + math.Pi) / opt.PhiGridResolution))
	nx := int64(math.Ceil((bounds.XMax-bounds.XMin)/opt.XYGridResolution)) + 1
	ny := int64(math.Ceil((bounds.YMax-bounds.YMin)/opt.XYGridResolution)) + 1
	n.index = (int64(n.iphi)*ny+int64(n.iy))*nx + int64(n.ix)
	return n
}

// cost is the priority-queue key f = g + h.
func (n *node3d) cost() float64 {
	return n.trajCost + n.heuCost
}

// vehicleFootprint returns the vehicle's oriented bounding box when its pose
// reference point, the rear axle center, sits at the given pose.
func vehicleFootprint(pose spatialmath.Pose, vehicle *VehicleConfig) spatialmath.Rect {
	length := vehicle.FrontToCenter + vehicle.BackToCenter
	width := vehicle.LeftToCenter + vehicle.RightToCenter
	shift := length/2 - vehicle.BackToCenter
	sin, cos := math.Sincos(pose.Heading)
	center := r2.Point{X: pose.X + shift*cos, Y: pose.Y + shift*sin}
	return spatialmath.NewRect(center, pose.Heading, length, width)
}
