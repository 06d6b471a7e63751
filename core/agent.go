package core

type Policy interface {
	ResetEpisode(*EpisodeContext)
	UpdateEpisode(*EpisodeContext)
	PickAction(*StepContext, Observation) Action
	UpdateStep(*StepContext, Observation, Action, *Transition)
	Reset()
	// InputSize is the observation length the policy consumes, 0 for any.
	InputSize() int
}

type PolicyConstructor interface {
	NewPolicy() Policy
}
