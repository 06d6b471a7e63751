package core

import "sync"

type Step struct {
	Observation Observation
	Action      Action
	Transition  *Transition
}

type Trace struct {
	mtx   *sync.Mutex
	steps []*Step
}

func NewTrace() *Trace {
	return &Trace{
		steps: make([]*Step, 0),
		mtx:   &sync.Mutex{},
	}
}

func (t *Trace) AddStep(s *Step) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.steps = append(t.steps, s)
}

func (t *Trace) Step(i int) *Step {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.steps[i]
}

func (t *Trace) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.steps)
}

// Last returns the final step, nil for an empty trace.
func (t *Trace) Last() *Step {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if len(t.steps) == 0 {
		return nil
	}
	return t.steps[len(t.steps)-1]
}

// TotalReward sums the rewards of every recorded transition.
func (t *Trace) TotalReward() float64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	total := 0.0
	for _, s := range t.steps {
		if s.Transition != nil {
			total += s.Transition.Reward
		}
	}
	return total
}

// Outcome is the outcome of the final transition, "" if the episode did
// not end on its own.
func (t *Trace) Outcome() string {
	last := t.Last()
	if last == nil || last.Transition == nil || !last.Transition.Done {
		return ""
	}
	return last.Transition.Outcome
}
