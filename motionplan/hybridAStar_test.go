package motionplan

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"openspace/spatialmath"
)

func testVehicle() *VehicleConfig {
	return &VehicleConfig{
		WheelBase:     1.0,
		MaxSteerAngle: 0.6,
		SteerRatio:    1.0,
		FrontToCenter: 0.8,
		BackToCenter:  0.8,
		LeftToCenter:  0.5,
		RightToCenter: 0.5,
	}
}

func newTestPlanner(t *testing.T) *HybridAStarPlanner {
	t.Helper()
	planner, err := NewHybridAStarPlanner(testVehicle(), nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return planner
}

// checkResultShape asserts the size relations every successful plan satisfies:
// N states, N-1 controls, terminal velocity zero, start and goal hit exactly.
func checkResultShape(t *testing.T, result *Result, start, goal spatialmath.Pose) {
	t.Helper()
	n := len(result.X)
	test.That(t, n, test.ShouldBeGreaterThanOrEqualTo, 2)
	test.That(t, result.Y, test.ShouldHaveLength, n)
	test.That(t, result.Phi, test.ShouldHaveLength, n)
	test.That(t, result.V, test.ShouldHaveLength, n)
	test.That(t, result.A, test.ShouldHaveLength, n-1)
	test.That(t, result.Steer, test.ShouldHaveLength, n-1)
	test.That(t, result.V[n-1], test.ShouldEqual, 0)

	test.That(t, result.X[0], test.ShouldAlmostEqual, start.X, 1e-6)
	test.That(t, result.Y[0], test.ShouldAlmostEqual, start.Y, 1e-6)
	test.That(t, result.X[n-1], test.ShouldAlmostEqual, goal.X, 1e-6)
	test.That(t, result.Y[n-1], test.ShouldAlmostEqual, goal.Y, 1e-6)
	headingDiff := spatialmath.NormalizeAngle(result.Phi[n-1] - goal.Heading)
	test.That(t, math.Abs(headingDiff), test.ShouldAlmostEqual, 0, 1e-6)
}

// checkCollisionFree sweeps every sample of the result, asserting the vehicle
// footprint at that sample overlaps none of the obstacles.
func checkCollisionFree(t *testing.T, result *Result, vehicle *VehicleConfig, obstacles *ObstacleSet) {
	t.Helper()
	for i := range result.X {
		pose := spatialmath.Pose{X: result.X[i], Y: result.Y[i], Heading: result.Phi[i]}
		footprint := vehicleFootprint(pose, vehicle)
		for _, obstacle := range obstacles.Items() {
			test.That(t, footprint.HasOverlap(obstacle.PerceptionBoundingBox()), test.ShouldBeFalse)
		}
	}
}

func TestPlanStraight(t *testing.T) {
	planner := newTestPlanner(t)
	start := spatialmath.NewPose(0, 0, 0)
	goal := spatialmath.NewPose(10, 0, 0)
	bounds := Bounds{XMin: -5, XMax: 15, YMin: -5, YMax: 5}

	result, err := planner.Plan(context.Background(), start, goal, bounds, nil)
	test.That(t, err, test.ShouldBeNil)
	checkResultShape(t, result, start, goal)

	for i := 0; i < len(result.V)-1; i++ {
		test.That(t, result.V[i], test.ShouldBeGreaterThan, 0)
	}
	for i := range result.Phi {
		test.That(t, result.Phi[i], test.ShouldAlmostEqual, 0, 1e-6)
	}
	for i := range result.Steer {
		test.That(t, result.Steer[i], test.ShouldAlmostEqual, 0, 1e-6)
	}
}

func TestPlanParallelPark(t *testing.T) {
	planner := newTestPlanner(t)
	start := spatialmath.NewPose(0, 0, 0)
	goal := spatialmath.NewPose(0, -2.5, 0)
	bounds := Bounds{XMin: -10, XMax: 10, YMin: -6, YMax: 2}
	obstacles := NewObstacleSet()
	obstacles.Add("parked_car", spatialmath.NewRectFromExtents(1, 5, -1, 0))

	result, err := planner.Plan(context.Background(), start, goal, bounds, obstacles)
	test.That(t, err, test.ShouldBeNil)
	checkResultShape(t, result, start, goal)
	checkCollisionFree(t, result, testVehicle(), obstacles)

	// a pure lateral shift is impossible without reversing
	reverses := false
	for i := 0; i < len(result.V)-1; i++ {
		if result.V[i] < 0 {
			reverses = true
		}
	}
	test.That(t, reverses, test.ShouldBeTrue)
}

func TestPlanUTurn(t *testing.T) {
	planner := newTestPlanner(t)
	start := spatialmath.NewPose(0, 0, 0)
	goal := spatialmath.NewPose(0, 0, math.Pi)
	bounds := Bounds{XMin: -6, XMax: 6, YMin: -6, YMax: 6}

	result, err := planner.Plan(context.Background(), start, goal, bounds, nil)
	test.That(t, err, test.ShouldBeNil)
	checkResultShape(t, result, start, goal)
}

func TestNextNodeGenerator(t *testing.T) {
	planner := newTestPlanner(t)
	planner.bounds = Bounds{XMin: -10, XMax: 10, YMin: -10, YMax: 10}
	vehicle := testVehicle()
	current := newNode(spatialmath.NewPose(1, 2, 0.3), planner.bounds, planner.opts)

	for k := 0; k < planner.opts.NextNodeNum; k++ {
		next := planner.nextNodeGenerator(current, k)
		test.That(t, len(next.xs), test.ShouldBeGreaterThanOrEqualTo, 2)
		test.That(t, next.xs[0], test.ShouldEqual, current.pose.X)
		test.That(t, next.ys[0], test.ShouldEqual, current.pose.Y)
		test.That(t, next.phis[0], test.ShouldEqual, current.pose.Heading)
		test.That(t, next.direction, test.ShouldEqual, k < planner.opts.NextNodeNum/2)
		test.That(t, math.Abs(next.steer), test.ShouldBeLessThanOrEqualTo, planner.maxSteer+1e-9)

		// every substep must obey the bicycle model at the commanded
		// steering angle
		traveled := planner.opts.StepSize
		if !next.direction {
			traveled = -planner.opts.StepSize
		}
		for i := 1; i < len(next.xs); i++ {
			dx := next.xs[i] - next.xs[i-1]
			dy := next.ys[i] - next.ys[i-1]
			test.That(t, dx, test.ShouldAlmostEqual, traveled*math.Cos(next.phis[i-1]), 1e-9)
			test.That(t, dy, test.ShouldAlmostEqual, traveled*math.Sin(next.phis[i-1]), 1e-9)
			dphi := spatialmath.NormalizeAngle(next.phis[i] - next.phis[i-1])
			test.That(t, dphi, test.ShouldAlmostEqual,
				traveled/vehicle.WheelBase*math.Tan(next.steer), 1e-9)
		}
	}
}

func TestPlanStartAtGoal(t *testing.T) {
	planner := newTestPlanner(t)
	pose := spatialmath.NewPose(1, 1, 0.5)
	bounds := Bounds{XMin: -3, XMax: 3, YMin: -3, YMax: 3}

	result, err := planner.Plan(context.Background(), pose, pose, bounds, nil)
	test.That(t, err, test.ShouldBeNil)
	checkResultShape(t, result, pose, pose)
}

func TestPlanStartInCollision(t *testing.T) {
	planner := newTestPlanner(t)
	bounds := Bounds{XMin: -5, XMax: 5, YMin: -5, YMax: 5}
	obstacles := NewObstacleSet()
	obstacles.Add("blocker", spatialmath.NewRectFromExtents(-1, 1, -1, 1))

	result, err := planner.Plan(context.Background(),
		spatialmath.NewPose(0, 0, 0), spatialmath.NewPose(3, 3, 0), bounds, obstacles)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)

	// same box blocking the goal instead
	result, err = planner.Plan(context.Background(),
		spatialmath.NewPose(3, 3, 0), spatialmath.NewPose(0, 0, 0), bounds, obstacles)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)

	// a pose outside the bounds is rejected the same way
	result, err = planner.Plan(context.Background(),
		spatialmath.NewPose(-20, 0, 0), spatialmath.NewPose(3, 3, 0), bounds, obstacles)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)
}

func TestPlanGoalUnreachable(t *testing.T) {
	planner := newTestPlanner(t)
	start := spatialmath.NewPose(-2, 0, 0)
	goal := spatialmath.NewPose(2, 0, 0)
	bounds := Bounds{XMin: -3, XMax: 3, YMin: -3, YMax: 3}

	// a wall through the whole region, taller than the bounds so the
	// footprint cannot slip around its ends
	obstacles := NewObstacleSet()
	obstacles.Add("wall", spatialmath.NewRectFromExtents(-0.1, 0.1, -4, 4))

	result, err := planner.Plan(context.Background(), start, goal, bounds, obstacles)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)
}

func TestPlanInvalidBounds(t *testing.T) {
	planner := newTestPlanner(t)
	bounds := Bounds{XMin: 5, XMax: -5, YMin: -5, YMax: 5}
	result, err := planner.Plan(context.Background(),
		spatialmath.NewPose(0, 0, 0), spatialmath.NewPose(1, 0, 0), bounds, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)
}

func TestPlanDeterminism(t *testing.T) {
	planner := newTestPlanner(t)
	start := spatialmath.NewPose(0, 0, 0)
	goal := spatialmath.NewPose(0, -2.5, 0)
	bounds := Bounds{XMin: -10, XMax: 10, YMin: -6, YMax: 2}
	obstacles := NewObstacleSet()
	obstacles.Add("parked_car", spatialmath.NewRectFromExtents(1, 5, -1, 0))

	first, err := planner.Plan(context.Background(), start, goal, bounds, obstacles)
	test.That(t, err, test.ShouldBeNil)
	second, err := planner.Plan(context.Background(), start, goal, bounds, obstacles)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, second.X, test.ShouldResemble, first.X)
	test.That(t, second.Y, test.ShouldResemble, first.Y)
	test.That(t, second.Phi, test.ShouldResemble, first.Phi)
	test.That(t, second.V, test.ShouldResemble, first.V)
}

func TestPlanCancellation(t *testing.T) {
	planner := newTestPlanner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := planner.Plan(ctx,
		spatialmath.NewPose(0, 0, 0), spatialmath.NewPose(5, 0, 0),
		Bounds{XMin: -2, XMax: 8, YMin: -3, YMax: 3}, nil)
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, result, test.ShouldBeNil)
}

func TestNewHybridAStarPlanner(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := NewHybridAStarPlanner(nil, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	badVehicle := testVehicle()
	badVehicle.WheelBase = 0
	_, err = NewHybridAStarPlanner(badVehicle, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	badOpts := NewBasicPlannerOptions()
	badOpts.NextNodeNum = 7
	_, err = NewHybridAStarPlanner(testVehicle(), badOpts, logger)
	test.That(t, err, test.ShouldNotBeNil)

	badOpts = NewBasicPlannerOptions()
	badOpts.BackPenalty = 0.5
	_, err = NewHybridAStarPlanner(testVehicle(), badOpts, logger)
	test.That(t, err, test.ShouldNotBeNil)

	planner, err := NewHybridAStarPlanner(testVehicle(), nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, planner, test.ShouldNotBeNil)
}
