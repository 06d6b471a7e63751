package agent

// RewardModel accumulates the episode reward. Nothing is clamped.
type RewardModel struct {
	stepPenalty      float64
	collisionPenalty float64
	successBonus     float64

	cumulative float64
	pending    float64
}

func NewRewardModel(cfg Config) *RewardModel {
	return &RewardModel{
		stepPenalty:      cfg.StepPenalty,
		collisionPenalty: cfg.CollisionPenalty,
		successBonus:     cfg.SuccessBonus,
	}
}

// Reset zeroes the episode total and anything not yet drained.
func (r *RewardModel) Reset() {
	r.cumulative = 0
	r.pending = 0
}

// Tick applies the time penalty of one running step.
func (r *RewardModel) Tick() float64 {
	r.Add(r.stepPenalty)
	return r.stepPenalty
}

// TerminalDelta is the reward delta a terminal event carries.
func (r *RewardModel) TerminalDelta(e Event) float64 {
	switch e {
	case EventCollisionWithWall:
		return r.collisionPenalty
	case EventEntryToTargetZone:
		return r.successBonus
	}
	return 0
}

func (r *RewardModel) Add(delta float64) {
	r.cumulative += delta
	r.pending += delta
}

func (r *RewardModel) Cumulative() float64 {
	return r.cumulative
}

// Drain returns the reward added since the previous Drain.
func (r *RewardModel) Drain() float64 {
	d := r.pending
	r.pending = 0
	return d
}
