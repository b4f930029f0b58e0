package motionplan

import "math"

// default values for planning options.
const (
	// total motion primitives per expansion; the first half drive forward,
	// the second half reverse.
	defaultNextNodeNum = 10

	// bicycle-model integration substep, metres.
	defaultStepSize = 0.25

	// xy grid cell size used to collapse nearby continuous states, metres.
	defaultXYGridResolution = 0.5

	// heading grid cell size used to collapse nearby continuous states, radians.
	defaultPhiGridResolution = 0.1

	// multiplier on distance traveled in reverse gear.
	defaultBackPenalty = 1.0

	// flat penalty per forward/reverse direction change.
	defaultGearSwitchPenalty = 10.0

	// penalty linear in the magnitude of the steering angle.
	defaultSteerPenalty = 10.0

	// penalty linear in the magnitude of the steering angle change.
	defaultSteerChangePenalty = 5.0

	// sampling interval used when deriving velocity and acceleration, seconds.
	defaultDeltaT = 0.5
)

// PlannerOptions are a set of options to be passed to the planner which
// specify how the state space is discretized and how path costs are weighed.
type PlannerOptions struct {
	// Total number of motion primitives generated per expansion. Must be an
	// even number of at least 4.
	NextNodeNum int `json:"next_node_num"`

	// Arc length of one bicycle-model integration substep, metres.
	StepSize float64 `json:"step_size"`

	// Side length of one xy grid cell, metres.
	XYGridResolution float64 `json:"xy_grid_resolution"`

	// Size of one heading grid cell, radians.
	PhiGridResolution float64 `json:"phi_grid_resolution"`

	// Multiplier on arc length traveled in reverse. Must be >= 1.
	BackPenalty float64 `json:"back_penalty"`

	// Flat penalty added for every forward/reverse gear switch.
	GearSwitchPenalty float64 `json:"gear_switch_penalty"`

	// Penalty per radian of steering angle.
	SteerPenalty float64 `json:"steer_penalty"`

	// Penalty per radian of steering angle change between primitives.
	SteerChangePenalty float64 `json:"steer_change_penalty"`

	// Sampling interval assumed between consecutive path samples when
	// deriving the velocity and acceleration profile, seconds.
	DeltaT float64 `json:"delta_t"`
}

// NewBasicPlannerOptions specifies a set of basic options for the planner.
func NewBasicPlannerOptions() *PlannerOptions {
	opt := &PlannerOptions{}
	opt.NextNodeNum = defaultNextNodeNum
	opt.StepSize = defaultStepSize
	opt.XYGridResolution = defaultXYGridResolution
	opt.PhiGridResolution = defaultPhiGridResolution
	opt.BackPenalty = defaultBackPenalty
	opt.GearSwitchPenalty = defaultGearSwitchPenalty
	opt.SteerPenalty = defaultSteerPenalty
	opt.SteerChangePenalty = defaultSteerChangePenalty
	opt.DeltaT = defaultDeltaT
	return opt
}

func (opt *PlannerOptions) validate() error {
	if opt.NextNodeNum < 4 || opt.NextNodeNum%2 != 0 {
		return newBadOptionError("next_node_num must be an even number of at least 4")
	}
	if opt.StepSize <= 0 {
		return newBadOptionError("step_size must be positive")
	}
	if opt.XYGridResolution <= 0 || opt.PhiGridResolution <= 0 {
		return newBadOptionError("grid resolutions must be positive")
	}
	if opt.BackPenalty < 1 {
		return newBadOptionError("back_penalty must be at least 1")
	}
	if opt.DeltaT <= 0 {
		return newBadOptionError("delta_t must be positive")
	}
	return nil
}

// VehicleConfig describes the car-like vehicle being planned for. Poses refer
// to the rear axle center; the front/back/left/right distances locate the
// vehicle's bounding box relative to that point.
type VehicleConfig struct {
	// Distance between the rear and front axles, metres.
	WheelBase float64 `json:"wheel_base"`

	// Maximum angle of the steering wheel, radians.
	MaxSteerAngle float64 `json:"max_steer_angle"`

	// Ratio between steering wheel angle and road wheel angle.
	SteerRatio float64 `json:"steer_ratio"`

	// Distances from the pose reference point to the edges of the vehicle's
	// bounding box, metres.
	FrontToCenter float64 `json:"front_to_center"`
	BackToCenter  float64 `json:"back_to_center"`
	LeftToCenter  float64 `json:"left_to_center"`
	RightToCenter float64 `json:"right_to_center"`
}

// maxSteer returns the maximum road wheel angle in radians.
func (v *VehicleConfig) maxSteer() float64 {
	return v.MaxSteerAngle / v.SteerRatio
}

func (v *VehicleConfig) validate() error {
	if v == nil {
		return newBadOptionError("vehicle config may not be nil")
	}
	if v.WheelBase <= 0 {
		return newBadOptionError("wheel_base must be positive")
	}
	if v.SteerRatio <= 0 {
		return newBadOptionError("steer_ratio must be positive")
	}
	if s := v.maxSteer(); s <= 0 || s >= math.Pi/2 {
		return newBadOptionError("max road wheel angle must be in (0, pi/2)")
	}
	if v.FrontToCenter <= 0 || v.BackToCenter <= 0 || v.LeftToCenter <= 0 || v.RightToCenter <= 0 {
		return newBadOptionError("vehicle edge distances must be positive")
	}
	return nil
}
