package fan

import (
	"errors"
	"fmt"
	"math"
)

var ErrSpeedOutOfRange = errors.New("fan speed out of range")

const (
	MinSpeed float32 = 0
	MaxSpeed float32 = 1
)

// ValidateSpeed accepts a relative speed within [0, 1], bounds included.
// Nothing is sent to the fan; which register takes the speed is not known
// yet.
func ValidateSpeed(speed float32) error {
	if math.IsNaN(float64(speed)) || speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %v", ErrSpeedOutOfRange, speed)
	}
	return nil
}
