package core

import (
	"context"
	"errors"
)

var (
	ErrObservationMismatch = errors.New("observation size does not match policy input")
)

// Observation is the numeric vector an environment hands to the policy.
type Observation []float64

// Action is the continuous command a policy emits.
type Action []float64

// Transition is the outcome of a single step.
type Transition struct {
	Observation Observation
	Reward      float64
	Done        bool
	Outcome     string
	// Info is a human readable status line for progress output.
	Info string
}

type Environment interface {
	Reset(*EpisodeContext) (Observation, error)
	Step(Action, *StepContext) (*Transition, error)
	// ObservationSize is the fixed length of every observation.
	ObservationSize() int
	Close() error
}

type EpisodeContext struct {
	Context       context.Context
	Episode       int
	Horizon       int
	Run           int
	StartTimeStep int

	Trace *Trace

	err     error
	timeout bool
	doneCh  chan struct{}
}

func NewEpisodeContext(ctx context.Context) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		Trace:   NewTrace(),
		doneCh:  make(chan struct{}),
	}
}

func (e *EpisodeContext) Error(err error) {
	e.err = err
	close(e.doneCh)
}

// Timeout ends the episode on its deadline. Err still reports err, so the
// episode also counts as failed for analyzers.
func (e *EpisodeContext) Timeout(err error) {
	e.err = err
	e.timeout = true
	close(e.doneCh)
}

func (e *EpisodeContext) Finish() {
	close(e.doneCh)
}

func (e *EpisodeContext) Err() error {
	return e.err
}

func (e *EpisodeContext) IsError() bool {
	return e.err != nil
}

func (e *EpisodeContext) IsTimeout() bool {
	return e.timeout
}

func (e *EpisodeContext) Done() <-chan struct{} {
	return e.doneCh
}

type StepContext struct {
	Step int
	*EpisodeContext
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment with the given instance number.
	NewEnvironment(int) (Environment, error)
}
