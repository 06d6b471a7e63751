package agent

import (
	"errors"
	"fmt"
	"time"
)

// ObservationSize is the length of every observation the encoder produces.
const ObservationSize = 5

var (
	ErrInvalidConfig   = errors.New("invalid agent config")
	ErrObservationSize = errors.New("observation size mismatch")
)

// Config holds the movement, reward and feedback constants of the agent.
// The controller keeps its own copy, so changing a Config after
// NewController has no effect on a running controller.
type Config struct {
	MoveSpeed    float64
	TurnSpeed    float64 // degrees per second
	TickDuration time.Duration

	StepPenalty      float64
	CollisionPenalty float64
	SuccessBonus     float64

	// MaxSteps ends an episode after this many ticks. Zero keeps episodes
	// unbounded.
	MaxSteps int

	FlashDelay   time.Duration
	AlertColor   Color
	SuccessColor Color

	// PolicyInputSize is the observation length the driving policy expects.
	// Zero skips the check.
	PolicyInputSize int
}

func DefaultConfig() Config {
	return Config{
		MoveSpeed:        30,
		TurnSpeed:        100,
		TickDuration:     20 * time.Millisecond,
		StepPenalty:      -0.001,
		CollisionPenalty: -1.0,
		SuccessBonus:     2.0,
		MaxSteps:         0,
		FlashDelay:       500 * time.Millisecond,
		AlertColor:       Red,
		SuccessColor:     Green,
		PolicyInputSize:  ObservationSize,
	}
}

// Validate reports configuration errors that must stop the agent from
// starting.
func (c Config) Validate() error {
	if c.PolicyInputSize != 0 && c.PolicyInputSize != ObservationSize {
		return fmt.Errorf("%w: policy expects %d values, encoder produces %d", ErrObservationSize, c.PolicyInputSize, ObservationSize)
	}
	if c.TickDuration <= 0 {
		return fmt.Errorf("%w: tick duration must be positive", ErrInvalidConfig)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max steps must not be negative", ErrInvalidConfig)
	}
	if c.FlashDelay < 0 {
		return fmt.Errorf("%w: flash delay must not be negative", ErrInvalidConfig)
	}
	return nil
}
