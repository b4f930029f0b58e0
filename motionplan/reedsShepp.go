package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"openspace/spatialmath"
)

// ReedsSheppPath is the shortest path between two poses for a car that moves
// forward and backward with bounded curvature: a concatenation of straight
// segments ('S') and minimum-radius arcs ('L' left, 'R' right). Samples are
// spaced uniformly in arc length; segment lengths are signed, negative
// meaning the segment is driven in reverse.
type ReedsSheppPath struct {
	X   []float64
	Y   []float64
	Phi []float64

	SegsLengths []float64
	SegsTypes   []byte

	// TotalLength is the unsigned arc length of the whole curve, metres.
	TotalLength float64
}

// rsPathGenerator produces shortest Reeds-Shepp curves between poses.
type rsPathGenerator interface {
	ShortestRSP(from, to spatialmath.Pose) (*ReedsSheppPath, error)
}

// reedsSheppGenerator computes Reeds-Shepp curves for a vehicle with a fixed
// maximum curvature, sampling them at a fixed arc-length step.
type reedsSheppGenerator struct {
	maxKappa float64
	stepSize float64
}

func newReedsSheppGenerator(vehicle *VehicleConfig, stepSize float64) *reedsSheppGenerator {
	return &reedsSheppGenerator{
		maxKappa: math.Tan(vehicle.maxSteer()) / vehicle.WheelBase,
		stepSize: stepSize,
	}
}

// ShortestRSP returns the shortest Reeds-Shepp curve from one pose to
// another, ignoring obstacles.
func (g *reedsSheppGenerator) ShortestRSP(from, to spatialmath.Pose) (*ReedsSheppPath, error) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dphi := spatialmath.NormalizeAngle(to.Heading - from.Heading)

	// target expressed in the start frame, scaled to unit turning radius
	sin, cos := math.Sincos(from.Heading)
	x := (cos*dx + sin*dy) * g.maxKappa
	y := (-sin*dx + cos*dy) * g.maxKappa

	best, ok := shortestRSWord(x, y, dphi)
	if !ok {
		return nil, errors.Errorf("no Reeds-Shepp curve from %v to %v", from, to)
	}
	return g.interpolate(from, best), nil
}

// rsWord is one candidate solution of the Reeds-Shepp equations: per-segment
// signed arc lengths in unit-turning-radius units, and the segment types.
type rsWord struct {
	lengths []float64
	types   string
}

func (w rsWord) length() float64 {
	total := 0.0
	for _, l := range w.lengths {
		total += math.Abs(l)
	}
	return total
}

// shortestRSWord enumerates every word family of the Reeds-Shepp sufficient
// set, expanded through timeflip and reflection, and returns the candidate of
// minimum unsigned length.
func shortestRSWord(x, y, phi float64) (rsWord, bool) {
	words := make([]rsWord, 0, 48)
	words = appendSCS(words, x, y, phi)
	words = appendCSC(words, x, y, phi)
	words = appendCCC(words, x, y, phi)
	words = appendCCCC(words, x, y, phi)
	words = appendCCSC(words, x, y, phi)
	words = appendCCSCC(words, x, y, phi)

	best := rsWord{}
	bestLen := math.Inf(1)
	for _, w := range words {
		if l := w.length(); l < bestLen {
			best = w
			bestLen = l
		}
	}
	return best, !math.IsInf(bestLen, 1)
}

const rsEps = 1e-10

func polar(x, y float64) (float64, float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}

// tauOmega solves for the first and last arc of the four- and five-segment
// words, formulas 8.7 and onward of the Reeds-Shepp paper.
func tauOmega(u, v, xi, eta, phi float64) (float64, float64) {
	delta := spatialmath.NormalizeAngle(u - v)
	a := math.Sin(u) - math.Sin(delta)
	b := math.Cos(u) - math.Cos(delta) - 1
	t1 := math.Atan2(eta*a-xi*b, xi*a+eta*b)
	t2 := 2*(math.Cos(delta)-math.Cos(v)-math.Cos(u)) + 3
	var tau float64
	if t2 < 0 {
		tau = spatialmath.NormalizeAngle(t1 + math.Pi)
	} else {
		tau = spatialmath.NormalizeAngle(t1)
	}
	omega := spatialmath.NormalizeAngle(tau - u + v - phi)
	return tau, omega
}

// formula 8.1: L+ S+ L+
func lpSpLp(x, y, phi float64) (t, u, v float64, ok bool) {
	u, t = polar(x-math.Sin(phi), y-1+math.Cos(phi))
	if t >= -rsEps {
		v = spatialmath.NormalizeAngle(phi - t)
		if v >= -rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formula 8.2: L+ S+ R+
func lpSpRp(x, y, phi float64) (t, u, v float64, ok bool) {
	u1, t1 := polar(x+math.Sin(phi), y-1-math.Cos(phi))
	if u1*u1 >= 4 {
		u = math.Sqrt(u1*u1 - 4)
		theta := math.Atan2(2, u)
		t = spatialmath.NormalizeAngle(t1 + theta)
		v = spatialmath.NormalizeAngle(t - phi)
		if t >= -rsEps && v >= -rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formulas 8.3 and 8.4: L+ R- L
func lpRmL(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x - math.Sin(phi)
	eta := y - 1 + math.Cos(phi)
	u1, theta := polar(xi, eta)
	if u1 <= 4 {
		u = -2 * math.Asin(0.25*u1)
		t = spatialmath.NormalizeAngle(theta + 0.5*u + math.Pi)
		v = spatialmath.NormalizeAngle(phi - t + u)
		if t >= -rsEps && u <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formula 8.7: L+ R+ L- R-
func lpRupLumRm(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho := 0.25 * (2 + math.Hypot(xi, eta))
	if rho <= 1 {
		u = math.Acos(rho)
		t, v = tauOmega(u, -u, xi, eta, phi)
		if t >= -rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formula 8.8: L+ R- L- R+
func lpRumLumRp(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho := (20 - xi*xi - eta*eta) / 16
	if rho >= 0 && rho <= 1 {
		u = -math.Acos(rho)
		if u >= -math.Pi/2 {
			t, v = tauOmega(u, u, xi, eta, phi)
			if t >= -rsEps && v >= -rsEps {
				return t, u, v, true
			}
		}
	}
	return 0, 0, 0, false
}

// formula 8.9: L+ R- S- L-
func lpRmSmLm(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x - math.Sin(phi)
	eta := y - 1 + math.Cos(phi)
	rho, theta := polar(xi, eta)
	if rho >= 2 {
		r := math.Sqrt(rho*rho - 4)
		u = 2 - r
		t = spatialmath.NormalizeAngle(theta + math.Atan2(r, -2))
		v = spatialmath.NormalizeAngle(phi - math.Pi/2 - t)
		if t >= -rsEps && u <= rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formula 8.10: L+ R- S- R-
func lpRmSmRm(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho, theta := polar(-eta, xi)
	if rho >= 2 {
		t = theta
		u = 2 - rho
		v = spatialmath.NormalizeAngle(t + math.Pi/2 - phi)
		if t >= -rsEps && u <= rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// formula 8.11: L+ R- S- L- R+
func lpRmSLmRp(x, y, phi float64) (t, u, v float64, ok bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho, _ := polar(xi, eta)
	if rho >= 2 {
		u = 4 - math.Sqrt(rho*rho-4)
		if u <= rsEps {
			t = spatialmath.NormalizeAngle(math.Atan2((4-u)*xi-2*eta, -2*xi+(u-4)*eta))
			v = spatialmath.NormalizeAngle(t - phi)
			if t >= -rsEps && v >= -rsEps {
				return t, u, v, true
			}
		}
	}
	return 0, 0, 0, false
}

// sLpS solves S t, L phi, S v directly; only defined when the heading change
// is a single left arc strictly inside (0, pi).
func sLpS(x, y, phi float64) (t, u, v float64, ok bool) {
	phiMod := spatialmath.NormalizeAngle(phi)
	if phiMod <= rsEps || phiMod >= 0.99*math.Pi {
		return 0, 0, 0, false
	}
	sin, cos := math.Sincos(phiMod)
	v = (y - 1 + cos) / sin
	t = x - sin - v*cos
	return t, phiMod, v, true
}

func appendSCS(words []rsWord, x, y, phi float64) []rsWord {
	if t, u, v, ok := sLpS(x, y, phi); ok {
		words = append(words, rsWord{types: "SLS", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := sLpS(x, -y, -phi); ok { // reflect
		words = append(words, rsWord{types: "SRS", lengths: []float64{t, u, v}})
	}
	return words
}

func appendCSC(words []rsWord, x, y, phi float64) []rsWord {
	if t, u, v, ok := lpSpLp(x, y, phi); ok {
		words = append(words, rsWord{types: "LSL", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpSpLp(-x, y, -phi); ok { // timeflip
		words = append(words, rsWord{types: "LSL", lengths: []float64{-t, -u, -v}})
	}
	if t, u, v, ok := lpSpLp(x, -y, -phi); ok { // reflect
		words = append(words, rsWord{types: "RSR", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpSpLp(-x, -y, phi); ok { // timeflip + reflect
		words = append(words, rsWord{types: "RSR", lengths: []float64{-t, -u, -v}})
	}
	if t, u, v, ok := lpSpRp(x, y, phi); ok {
		words = append(words, rsWord{types: "LSR", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpSpRp(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LSR", lengths: []float64{-t, -u, -v}})
	}
	if t, u, v, ok := lpSpRp(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RSL", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpSpRp(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RSL", lengths: []float64{-t, -u, -v}})
	}
	return words
}

func appendCCC(words []rsWord, x, y, phi float64) []rsWord {
	if t, u, v, ok := lpRmL(x, y, phi); ok {
		words = append(words, rsWord{types: "LRL", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpRmL(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRL", lengths: []float64{-t, -u, -v}})
	}
	if t, u, v, ok := lpRmL(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLR", lengths: []float64{t, u, v}})
	}
	if t, u, v, ok := lpRmL(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLR", lengths: []float64{-t, -u, -v}})
	}

	// the same family driven backwards, by swapping the roles of the endpoints
	xb := x*math.Cos(phi) + y*math.Sin(phi)
	yb := x*math.Sin(phi) - y*math.Cos(phi)
	if t, u, v, ok := lpRmL(xb, yb, phi); ok {
		words = append(words, rsWord{types: "LRL", lengths: []float64{v, u, t}})
	}
	if t, u, v, ok := lpRmL(-xb, yb, -phi); ok {
		words = append(words, rsWord{types: "LRL", lengths: []float64{-v, -u, -t}})
	}
	if t, u, v, ok := lpRmL(xb, -yb, -phi); ok {
		words = append(words, rsWord{types: "RLR", lengths: []float64{v, u, t}})
	}
	if t, u, v, ok := lpRmL(-xb, -yb, phi); ok {
		words = append(words, rsWord{types: "RLR", lengths: []float64{-v, -u, -t}})
	}
	return words
}

func appendCCCC(words []rsWord, x, y, phi float64) []rsWord {
	if t, u, v, ok := lpRupLumRm(x, y, phi); ok {
		words = append(words, rsWord{types: "LRLR", lengths: []float64{t, u, -u, v}})
	}
	if t, u, v, ok := lpRupLumRm(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRLR", lengths: []float64{-t, -u, u, -v}})
	}
	if t, u, v, ok := lpRupLumRm(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLRL", lengths: []float64{t, u, -u, v}})
	}
	if t, u, v, ok := lpRupLumRm(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLRL", lengths: []float64{-t, -u, u, -v}})
	}

	if t, u, v, ok := lpRumLumRp(x, y, phi); ok {
		words = append(words, rsWord{types: "LRLR", lengths: []float64{t, u, u, v}})
	}
	if t, u, v, ok := lpRumLumRp(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRLR", lengths: []float64{-t, -u, -u, -v}})
	}
	if t, u, v, ok := lpRumLumRp(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLRL", lengths: []float64{t, u, u, v}})
	}
	if t, u, v, ok := lpRumLumRp(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLRL", lengths: []float64{-t, -u, -u, -v}})
	}
	return words
}

func appendCCSC(words []rsWord, x, y, phi float64) []rsWord {
	halfPi := math.Pi / 2
	if t, u, v, ok := lpRmSmLm(x, y, phi); ok {
		words = append(words, rsWord{types: "LRSL", lengths: []float64{t, -halfPi, u, v}})
	}
	if t, u, v, ok := lpRmSmLm(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRSL", lengths: []float64{-t, halfPi, -u, -v}})
	}
	if t, u, v, ok := lpRmSmLm(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLSR", lengths: []float64{t, -halfPi, u, v}})
	}
	if t, u, v, ok := lpRmSmLm(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLSR", lengths: []float64{-t, halfPi, -u, -v}})
	}
	if t, u, v, ok := lpRmSmRm(x, y, phi); ok {
		words = append(words, rsWord{types: "LRSR", lengths: []float64{t, -halfPi, u, v}})
	}
	if t, u, v, ok := lpRmSmRm(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRSR", lengths: []float64{-t, halfPi, -u, -v}})
	}
	if t, u, v, ok := lpRmSmRm(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLSL", lengths: []float64{t, -halfPi, u, v}})
	}
	if t, u, v, ok := lpRmSmRm(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLSL", lengths: []float64{-t, halfPi, -u, -v}})
	}

	// backwards
	xb := x*math.Cos(phi) + y*math.Sin(phi)
	yb := x*math.Sin(phi) - y*math.Cos(phi)
	if t, u, v, ok := lpRmSmLm(xb, yb, phi); ok {
		words = append(words, rsWord{types: "LSRL", lengths: []float64{v, u, -halfPi, t}})
	}
	if t, u, v, ok := lpRmSmLm(-xb, yb, -phi); ok {
		words = append(words, rsWord{types: "LSRL", lengths: []float64{-v, -u, halfPi, -t}})
	}
	if t, u, v, ok := lpRmSmLm(xb, -yb, -phi); ok {
		words = append(words, rsWord{types: "RSLR", lengths: []float64{v, u, -halfPi, t}})
	}
	if t, u, v, ok := lpRmSmLm(-xb, -yb, phi); ok {
		words = append(words, rsWord{types: "RSLR", lengths: []float64{-v, -u, halfPi, -t}})
	}
	if t, u, v, ok := lpRmSmRm(xb, yb, phi); ok {
		words = append(words, rsWord{types: "RSRL", lengths: []float64{v, u, -halfPi, t}})
	}
	if t, u, v, ok := lpRmSmRm(-xb, yb, -phi); ok {
		words = append(words, rsWord{types: "RSRL", lengths: []float64{-v, -u, halfPi, -t}})
	}
	if t, u, v, ok := lpRmSmRm(xb, -yb, -phi); ok {
		words = append(words, rsWord{types: "LSLR", lengths: []float64{v, u, -halfPi, t}})
	}
	if t, u, v, ok := lpRmSmRm(-xb, -yb, phi); ok {
		words = append(words, rsWord{types: "LSLR", lengths: []float64{-v, -u, halfPi, -t}})
	}
	return words
}

func appendCCSCC(words []rsWord, x, y, phi float64) []rsWord {
	halfPi := math.Pi / 2
	if t, u, v, ok := lpRmSLmRp(x, y, phi); ok {
		words = append(words, rsWord{types: "LRSLR", lengths: []float64{t, -halfPi, u, -halfPi, v}})
	}
	if t, u, v, ok := lpRmSLmRp(-x, y, -phi); ok {
		words = append(words, rsWord{types: "LRSLR", lengths: []float64{-t, halfPi, -u, halfPi, -v}})
	}
	if t, u, v, ok := lpRmSLmRp(x, -y, -phi); ok {
		words = append(words, rsWord{types: "RLSRL", lengths: []float64{t, -halfPi, u, -halfPi, v}})
	}
	if t, u, v, ok := lpRmSLmRp(-x, -y, phi); ok {
		words = append(words, rsWord{types: "RLSRL", lengths: []float64{-t, halfPi, -u, halfPi, -v}})
	}
	return words
}

// interpolate integrates the chosen word from the start pose, emitting
// samples every stepSize metres of arc plus the exact endpoint of every
// nonzero segment. Positions are integrated at unit turning radius in the
// start frame and scaled back to world coordinates at the end.
func (g *reedsSheppGenerator) interpolate(from spatialmath.Pose, word rsWord) *ReedsSheppPath {
	stepScaled := g.stepSize * g.maxKappa
	xs := []float64{0}
	ys := []float64{0}
	phis := []float64{from.Heading}

	for i, segLen := range word.lengths {
		if math.Abs(segLen) < rsEps {
			continue
		}
		m := word.types[i]
		ox, oy, ophi := xs[len(xs)-1], ys[len(ys)-1], phis[len(phis)-1]
		d := stepScaled
		if segLen < 0 {
			d = -stepScaled
		}
		for pd := d; math.Abs(pd) < math.Abs(segLen)-rsEps; pd += d {
			sx, sy, sphi := rsSegmentPoint(ox, oy, ophi, pd, m)
			xs = append(xs, sx)
			ys = append(ys, sy)
			phis = append(phis, sphi)
		}
		sx, sy, sphi := rsSegmentPoint(ox, oy, ophi, segLen, m)
		xs = append(xs, sx)
		ys = append(ys, sy)
		phis = append(phis, sphi)
	}
	if len(xs) == 1 {
		// zero-motion path; keep it well formed with a duplicate endpoint
		xs = append(xs, xs[0])
		ys = append(ys, ys[0])
		phis = append(phis, phis[0])
	}

	path := &ReedsSheppPath{
		X:           make([]float64, len(xs)),
		Y:           make([]float64, len(ys)),
		Phi:         make([]float64, len(phis)),
		SegsLengths: make([]float64, len(word.lengths)),
		SegsTypes:   []byte(word.types),
	}
	for i := range xs {
		path.X[i] = xs[i]/g.maxKappa + from.X
		path.Y[i] = ys[i]/g.maxKappa + from.Y
		path.Phi[i] = spatialmath.NormalizeAngle(phis[i])
	}
	for i, l := range word.lengths {
		path.SegsLengths[i] = l / g.maxKappa
		path.TotalLength += math.Abs(l) / g.maxKappa
	}
	return path
}

// rsSegmentPoint returns the pose a signed arc length pd into a segment of
// type m that starts at (ox, oy, ophi), at unit turning radius.
func rsSegmentPoint(ox, oy, ophi, pd float64, m byte) (float64, float64, float64) {
	sin, cos := math.Sincos(ophi)
	switch m {
	case 'S':
		return ox + pd*cos, oy + pd*sin, ophi
	case 'L':
		ldx := math.Sin(pd)
		ldy := 1 - math.Cos(pd)
		return ox + cos*ldx - sin*ldy, oy + sin*ldx + cos*ldy, ophi + pd
	default: // 'R'
		ldx := math.Sin(pd)
		ldy := -(1 - math.Cos(pd))
		return ox + cos*ldx - sin*ldy, oy + sin*ldx + cos*ldy, ophi - pd
	}
}
