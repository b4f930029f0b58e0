package motionplan

import "github.com/pkg/errors"

func newBadOptionError(msg string) error {
	return errors.New(msg)
}

func newInvalidBoundsError(b Bounds) error {
	return errors.Errorf("invalid planning bounds [%f, %f] x [%f, %f]", b.XMin, b.XMax, b.YMin, b.YMax)
}

func newStartInCollisionError() error {
	return errors.New("start pose is in collision or out of bounds")
}

func newGoalInCollisionError() error {
	return errors.New("goal pose is in collision or out of bounds")
}

func newGoalUnreachableError() error {
	return errors.New("open set exhausted before reaching the goal")
}

func newResultSizeError(states, controls int) error {
	return errors.Errorf("reconstructed path has %d states but %d controls", states, controls)
}

func newEmptySegmentError() error {
	return errors.New("path node holds no trajectory samples")
}

func newPathTooShortError(states int) error {
	return errors.Errorf("path has %d states, need at least 2", states)
}
