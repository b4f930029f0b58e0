// Package motionplan computes collision-free, kinematically feasible paths
// for a car-like vehicle inside a bounded planar region with oriented box
// obstacles, for open-space maneuvers such as parking and U-turns.
package motionplan

import (
	"container/heap"
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"openspace/spatialmath"
)

// HybridAStarPlanner solves for vehicle paths using hybrid A* search over a
// 3D (x, y, heading) grid with bicycle-model motion primitives, closed to the
// goal by an analytic Reeds-Shepp expansion.
// Dolgov et al. 2008, "Practical Search Techniques in Path Planning for
// Autonomous Driving".
type HybridAStarPlanner struct {
	logger   golog.Logger
	opts     *PlannerOptions
	vehicle  *VehicleConfig
	maxSteer float64
	rsGen    rsPathGenerator

	// mutable search state, cleared at the top of every invocation; a
	// planner instance must not run two plans concurrently
	bounds    Bounds
	obstacles []Obstacle
	openSet   map[int64]*node3d
	closedSet map[int64]*node3d
	openQueue openNodeQueue
	pushSeq   int
	rsCache   map[int64]*ReedsSheppPath
	startNode *node3d
	endNode   *node3d
	finalNode *node3d
}

// NewHybridAStarPlanner creates a HybridAStarPlanner for the given vehicle.
// A nil opts selects the basic defaults.
func NewHybridAStarPlanner(vehicle *VehicleConfig, opts *PlannerOptions, logger golog.Logger) (*HybridAStarPlanner, error) {
	if err := vehicle.validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &HybridAStarPlanner{
		logger:   logger,
		opts:     opts,
		vehicle:  vehicle,
		maxSteer: vehicle.maxSteer(),
		rsGen:    newReedsSheppGenerator(vehicle, opts.StepSize),
	}, nil
}

type planReturn struct {
	result *Result
	err    error
}

// Plan searches for a path from the start pose to the goal pose that stays
// inside bounds and clear of every obstacle. On success the returned Result
// holds the sampled states and the derived control profile; on failure no
// partial result is returned.
func (p *HybridAStarPlanner) Plan(
	ctx context.Context,
	start, goal spatialmath.Pose,
	bounds Bounds,
	obstacles *ObstacleSet,
) (*Result, error) {
	solutionChan := make(chan *planReturn, 1)
	utils.PanicCapturingGo(func() {
		solutionChan <- p.planRunner(ctx, start, goal, bounds, obstacles)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ret := <-solutionChan:
		return ret.result, ret.err
	}
}

func (p *HybridAStarPlanner) planRunner(
	ctx context.Context,
	start, goal spatialmath.Pose,
	bounds Bounds,
	obstacles *ObstacleSet,
) *planReturn {
	if !bounds.valid() {
		return &planReturn{err: newInvalidBoundsError(bounds)}
	}

	// clear containers and take a stable snapshot of the obstacles
	p.bounds = bounds
	p.obstacles = nil
	if obstacles != nil {
		p.obstacles = obstacles.Items()
	}
	p.openSet = map[int64]*node3d{}
	p.closedSet = map[int64]*node3d{}
	p.openQueue = openNodeQueue{}
	p.pushSeq = 0
	p.rsCache = map[int64]*ReedsSheppPath{}
	p.finalNode = nil

	start = spatialmath.NewPose(start.X, start.Y, start.Heading)
	goal = spatialmath.NewPose(goal.X, goal.Y, goal.Heading)
	p.startNode = newNode(start, bounds, p.opts)
	p.endNode = newNode(goal, bounds, p.opts)
	if !p.validityCheck(p.startNode) {
		return &planReturn{err: newStartInCollisionError()}
	}
	if !p.validityCheck(p.endNode) {
		return &planReturn{err: newGoalInCollisionError()}
	}

	// load the open set, the queue and the curve cache with the start
	rsp, err := p.rsGen.ShortestRSP(start, goal)
	if err != nil {
		return &planReturn{err: errors.Wrap(err, "no analytic curve from start to goal")}
	}
	p.startNode.heuCost = p.calculateRSPCost(rsp)
	p.rsCache[p.startNode.index] = rsp
	p.openSet[p.startNode.index] = p.startNode
	p.pushOpen(p.startNode)

	explored := 0
	for p.openQueue.Len() > 0 {
		select {
		case <-ctx.Done():
			return &planReturn{err: ctx.Err()}
		default:
		}

		item := heap.Pop(&p.openQueue).(*openQueueItem)
		current := p.openSet[item.index]

		// check whether an analytic curve reaches the goal configuration
		// without collision; if so, the search ends here
		if p.analyticExpansion(current) {
			break
		}
		p.closedSet[current.index] = current

		for k := 0; k < p.opts.NextNodeNum; k++ {
			next := p.nextNodeGenerator(current, k)
			if !p.validityCheck(next) {
				continue
			}
			if _, ok := p.closedSet[next.index]; ok {
				continue
			}
			if _, ok := p.openSet[next.index]; !ok {
				explored++
				nextRSP, err := p.rsGen.ShortestRSP(next.pose, goal)
				if err != nil {
					p.logger.Debugw("skipping successor without analytic curve", "pose", next.pose, "error", err)
					continue
				}
				p.rsCache[next.index] = nextRSP
				p.calculateNodeCost(current, next, nextRSP)
				p.openSet[next.index] = next
				p.pushOpen(next)
			}
			// TODO: rewire when a cheaper path reaches a node already in the open set.
		}
	}

	if p.finalNode == nil {
		return &planReturn{err: newGoalUnreachableError()}
	}
	result, err := p.getResult()
	if err != nil {
		return &planReturn{err: err}
	}
	p.logger.Debugf("hybrid A* explored %d nodes", explored)
	return &planReturn{result: result}
}

// analyticExpansion tries to substitute the node's cached Reeds-Shepp curve
// for the remainder of the search; it succeeds only when every sample along
// the curve is collision-free.
func (p *HybridAStarPlanner) analyticExpansion(current *node3d) bool {
	rsp, ok := p.rsCache[current.index]
	if !ok || !p.rspCheck(rsp) {
		return false
	}
	p.logger.Debugf("reached the goal configuration with an analytic curve from %v", current.pose)
	p.finalNode = p.loadRSPInClosedSet(rsp, current)
	return true
}

func (p *HybridAStarPlanner) rspCheck(rsp *ReedsSheppPath) bool {
	for i := range rsp.X {
		pose := spatialmath.Pose{X: rsp.X[i], Y: rsp.Y[i], Heading: rsp.Phi[i]}
		if !p.poseValid(pose) {
			return false
		}
	}
	return true
}

// poseValid returns whether the pose lies inside the planning bounds with
// the vehicle footprint clear of every obstacle.
func (p *HybridAStarPlanner) poseValid(pose spatialmath.Pose) bool {
	if !p.bounds.contains(pose.X, pose.Y) {
		return false
	}
	if len(p.obstacles) == 0 {
		return true
	}
	footprint := vehicleFootprint(pose, p.vehicle)
	for _, obstacle := range p.obstacles {
		if footprint.HasOverlap(obstacle.PerceptionBoundingBox()) {
			return false
		}
	}
	return true
}

// validityCheck tests only the node's terminal pose; the analytic curve is
// swept per sample in rspCheck because it is long relative to the grid.
func (p *HybridAStarPlanner) validityCheck(n *node3d) bool {
	return p.poseValid(n.pose)
}

// loadRSPInClosedSet wraps a collision-free analytic curve into the terminal
// node of the search.
func (p *HybridAStarPlanner) loadRSPInClosedSet(rsp *ReedsSheppPath, current *node3d) *node3d {
	xs := append([]float64(nil), rsp.X...)
	ys := append([]float64(nil), rsp.Y...)
	phis := append([]float64(nil), rsp.Phi...)
	end := newNodeFromSamples(xs, ys, phis, p.bounds, p.opts)
	end.parent = current
	end.trajCost = current.trajCost + p.calculateRSPCost(rsp)
	p.closedSet[end.index] = end
	return end
}

// nextNodeGenerator integrates the k-th motion primitive from the current
// node: the first half of the indices drive forward, the second half reverse,
// each sweeping steering linearly from -maxSteer to +maxSteer. The arc is
// sized so the terminal pose always lands in a different xy grid cell.
func (p *HybridAStarPlanner) nextNodeGenerator(current *node3d, k int) *node3d {
	halfK := p.opts.NextNodeNum / 2
	steerStep := 2 * p.maxSteer / float64(halfK-1)
	var steering, traveled float64
	if k < halfK {
		steering = -p.maxSteer + steerStep*float64(k)
		traveled = p.opts.StepSize
	} else {
		steering = -p.maxSteer + steerStep*float64(k-halfK)
		traveled = -p.opts.StepSize
	}

	arc := math.Sqrt2 * p.opts.XYGridResolution
	lastX := current.pose.X
	lastY := current.pose.Y
	lastPhi := current.pose.Heading
	xs := []float64{lastX}
	ys := []float64{lastY}
	phis := []float64{lastPhi}
	for i := 0; float64(i) < arc/p.opts.StepSize; i++ {
		nextX := lastX + traveled*math.Cos(lastPhi)
		nextY := lastY + traveled*math.Sin(lastPhi)
		nextPhi := spatialmath.NormalizeAngle(lastPhi + traveled/p.vehicle.WheelBase*math.Tan(steering))
		xs = append(xs, nextX)
		ys = append(ys, nextY)
		phis = append(phis, nextPhi)
		lastX = nextX
		lastY = nextY
		lastPhi = nextPhi
	}

	next := newNodeFromSamples(xs, ys, phis, p.bounds, p.opts)
	next.parent = current
	next.direction = traveled > 0
	next.steer = steering
	return next
}

// calculateNodeCost accumulates the piecewise travel cost onto next and sets
// its heuristic from the obstacle-free analytic curve to the goal.
func (p *HybridAStarPlanner) calculateNodeCost(current, next *node3d, rsp *ReedsSheppPath) {
	piecewiseCost := 0.0
	if next.direction {
		piecewiseCost += p.opts.XYGridResolution
	} else {
		piecewiseCost += p.opts.XYGridResolution * p.opts.BackPenalty
	}
	if current.direction != next.direction {
		piecewiseCost += p.opts.GearSwitchPenalty
	}
	piecewiseCost += p.opts.SteerPenalty * math.Abs(next.steer)
	piecewiseCost += p.opts.SteerChangePenalty * math.Abs(next.steer-current.steer)
	next.trajCost = current.trajCost + piecewiseCost
	next.heuCost = p.calculateRSPCost(rsp)
}

// calculateRSPCost scores an analytic curve with the same penalty weights the
// grid expansion pays: reverse arc length is multiplied up, every gear switch
// and every turning segment is charged, and so is every left/right
// alternation between turning segments.
func (p *HybridAStarPlanner) calculateRSPCost(rsp *ReedsSheppPath) float64 {
	cost := 0.0
	for _, l := range rsp.SegsLengths {
		if l > 0 {
			cost += l
		} else {
			cost += -l * p.opts.BackPenalty
		}
	}
	for i := 0; i+1 < len(rsp.SegsLengths); i++ {
		if rsp.SegsLengths[i]*rsp.SegsLengths[i+1] < 0 {
			cost += p.opts.GearSwitchPenalty
		}
	}

	firstTurning := true
	var lastTurning byte
	for _, m := range rsp.SegsTypes {
		if m == 'S' {
			continue
		}
		cost += p.opts.SteerPenalty * p.maxSteer
		if !firstTurning && m != lastTurning {
			cost += 2 * p.opts.SteerChangePenalty * p.maxSteer
		}
		firstTurning = false
		lastTurning = m
	}
	return cost
}

func (p *HybridAStarPlanner) pushOpen(n *node3d) {
	heap.Push(&p.openQueue, &openQueueItem{index: n.index, cost: n.cost(), seq: p.pushSeq})
	p.pushSeq++
}

// openQueueItem pairs a node's index key with the f value it was queued at.
// Each key is pushed exactly once (no rewiring), so entries never go stale.
type openQueueItem struct {
	index int64
	cost  float64
	seq   int
}

// openNodeQueue is a min-heap on cost; ties pop in push order so the
// expansion order is deterministic for identical inputs.
type openNodeQueue []*openQueueItem

func (q openNodeQueue) Len() int { return len(q) }

func (q openNodeQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}

func (q openNodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openNodeQueue) Push(x any) { *q = append(*q, x.(*openQueueItem)) }

func (q *openNodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
