package motionplan

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Result is a planned open-space trajectory, ordered from start to goal:
// N sampled states (X, Y, Phi, V) and N-1 per-step controls (A, Steer).
// V carries sign, negative meaning the vehicle reverses; the final velocity
// is always zero.
type Result struct {
	X   []float64
	Y   []float64
	Phi []float64
	V   []float64

	A     []float64
	Steer []float64
}

// getResult reconstructs the state sequence by walking parent links from the
// terminal node back to the start, then derives the control profile.
func (p *HybridAStarPlanner) getResult() (*Result, error) {
	var xs, ys, phis []float64
	current := p.finalNode
	for current.parent != nil {
		if len(current.xs) == 0 || len(current.ys) == 0 || len(current.phis) == 0 {
			return nil, newEmptySegmentError()
		}
		segX := append([]float64(nil), current.xs...)
		segY := append([]float64(nil), current.ys...)
		segPhi := append([]float64(nil), current.phis...)
		floats.Reverse(segX)
		floats.Reverse(segY)
		floats.Reverse(segPhi)
		// the last sample duplicates the parent's terminal pose
		xs = append(xs, segX[:len(segX)-1]...)
		ys = append(ys, segY[:len(segY)-1]...)
		phis = append(phis, segPhi[:len(segPhi)-1]...)
		current = current.parent
	}
	xs = append(xs, current.pose.X)
	ys = append(ys, current.pose.Y)
	phis = append(phis, current.pose.Heading)

	// the walk accumulated samples goal-first; flip them start-first
	floats.Reverse(xs)
	floats.Reverse(ys)
	floats.Reverse(phis)

	result := &Result{X: xs, Y: ys, Phi: phis}
	if err := p.generateSpeedAcceleration(result); err != nil {
		return nil, err
	}
	if len(result.X) != len(result.Y) || len(result.X) != len(result.Phi) || len(result.X) != len(result.V) {
		return nil, newResultSizeError(len(result.X), len(result.V))
	}
	if len(result.A) != len(result.Steer) || len(result.X)-len(result.A) != 1 {
		return nil, newResultSizeError(len(result.X), len(result.A))
	}
	return result, nil
}

// generateSpeedAcceleration derives the signed forward velocity from
// consecutive positions, acceleration from consecutive velocities, and the
// steering angle from consecutive headings. Reverse gear flips the effective
// steering sign.
func (p *HybridAStarPlanner) generateSpeedAcceleration(result *Result) error {
	n := len(result.X)
	if n < 2 {
		return newPathTooShortError(n)
	}

	result.V = make([]float64, 0, n)
	for i := 0; i < n-1; i++ {
		sin, cos := math.Sincos(result.Phi[i])
		discreteV := (result.X[i+1]-result.X[i])/p.opts.DeltaT*cos +
			(result.Y[i+1]-result.Y[i])/p.opts.DeltaT*sin
		result.V = append(result.V, discreteV)
	}
	result.V = append(result.V, 0)

	result.A = make([]float64, 0, n-1)
	for i := 0; i < n-1; i++ {
		result.A = append(result.A, (result.V[i+1]-result.V[i])/p.opts.DeltaT)
	}

	result.Steer = make([]float64, 0, n-1)
	for i := 0; i < n-1; i++ {
		discreteSteer := (result.Phi[i+1] - result.Phi[i]) * p.vehicle.WheelBase / p.opts.StepSize
		if result.V[i] > 0 {
			discreteSteer = math.Atan(discreteSteer)
		} else {
			discreteSteer = math.Atan(-discreteSteer)
		}
		result.Steer = append(result.Steer, discreteSteer)
	}
	return nil
}
