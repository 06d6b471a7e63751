package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type fakeEnv struct {
	size    int
	doneAt  int // 0 never ends on its own
	outcome string
	delay   time.Duration
	failAt  int // 0 never fails

	step   int
	closed bool
}

func (e *fakeEnv) Reset(_ *EpisodeContext) (Observation, error) {
	e.step = 0
	return make(Observation, e.size), nil
}

func (e *fakeEnv) Step(_ Action, _ *StepContext) (*Transition, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.step++
	if e.failAt > 0 && e.step >= e.failAt {
		return nil, errors.New("boom")
	}
	t := &Transition{
		Observation: make(Observation, e.size),
		Reward:      -0.5,
		Info:        "ok",
	}
	if e.doneAt > 0 && e.step >= e.doneAt {
		t.Done = true
		t.Outcome = e.outcome
	}
	return t, nil
}

func (e *fakeEnv) ObservationSize() int { return e.size }

func (e *fakeEnv) Close() error {
	e.closed = true
	return nil
}

type fakeEnvConstructor struct {
	template fakeEnv
	fail     bool
}

func (c *fakeEnvConstructor) NewEnvironment(_ int) (Environment, error) {
	if c.fail {
		return nil, errors.New("no environment")
	}
	env := c.template
	return &env, nil
}

type fakePolicy struct {
	input    int
	episodes int
	steps    int
}

func (p *fakePolicy) ResetEpisode(_ *EpisodeContext)  {}
func (p *fakePolicy) UpdateEpisode(_ *EpisodeContext) { p.episodes++ }
func (p *fakePolicy) PickAction(_ *StepContext, _ Observation) Action {
	return Action{0, 0}
}
func (p *fakePolicy) UpdateStep(_ *StepContext, _ Observation, _ Action, _ *Transition) {
	p.steps++
}
func (p *fakePolicy) Reset()         {}
func (p *fakePolicy) InputSize() int { return p.input }

type fakePolicyConstructor struct{ input int }

func (c *fakePolicyConstructor) NewPolicy() Policy { return &fakePolicy{input: c.input} }

type rewardAnalyzer struct {
	mu      sync.Mutex
	rewards []float64
}

func (a *rewardAnalyzer) Analyze(_ *EpisodeContext, t *Trace) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rewards = append(a.rewards, t.TotalReward())
}

func (a *rewardAnalyzer) DataSet() DataSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.rewards...)
}

func (a *rewardAnalyzer) Reset() {}

type rewardAnalyzerConstructor struct{}

func (rewardAnalyzerConstructor) NewAnalyzer(_ string, _ int) Analyzer { return &rewardAnalyzer{} }

type recordingComparator struct {
	mu       sync.Mutex
	runs     []int
	names    [][]string
	datasets [][]DataSet
}

type runComparator struct {
	run int
	rec *recordingComparator
}

func (c *runComparator) Compare(names []string, ds []DataSet) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.runs = append(c.rec.runs, c.run)
	c.rec.names = append(c.rec.names, names)
	c.rec.datasets = append(c.rec.datasets, ds)
}

func (c *recordingComparator) NewComparator(run int) Comparator {
	return &runComparator{run: run, rec: c}
}

func TestExperimentRejectsObservationMismatch(t *testing.T) {
	exp := &Experiment{
		Name:        "mismatch",
		Environment: &fakeEnv{size: 5},
		Policy:      &fakePolicy{input: 4},
	}
	res := exp.Run(context.Background(), &RunConfig{Episodes: 1, Horizon: 1}, nil, nil)
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrObservationMismatch)
	assert.Zero(t, res.TotalEpisodes)
}

func TestExperimentHorizonBoundsEpisodes(t *testing.T) {
	policy := &fakePolicy{input: 5}
	exp := &Experiment{Name: "horizon", Environment: &fakeEnv{size: 5}, Policy: policy}
	analyzer := &rewardAnalyzer{}

	res := exp.Run(context.Background(), &RunConfig{
		Episodes: 3,
		Horizon:  7,
		Logger:   zaptest.NewLogger(t),
	}, nil, map[string]Analyzer{"reward": analyzer})

	require.NoError(t, res.Error)
	assert.Equal(t, 3, res.CompletedEpisodes)
	assert.Equal(t, 3, res.TotalEpisodes)
	assert.Equal(t, 21, res.TotalTimeSteps)
	assert.Equal(t, map[string]int{"horizon": 3}, res.Outcomes)
	assert.Equal(t, 3, policy.episodes)
	assert.Equal(t, 21, policy.steps)
	assert.Equal(t, []float64{-3.5, -3.5, -3.5}, res.Datasets["reward"])
}

func TestExperimentEpisodesEndOnTheirOwn(t *testing.T) {
	exp := &Experiment{
		Name:        "parked",
		Environment: &fakeEnv{size: 5, doneAt: 4, outcome: "parked"},
		Policy:      &fakePolicy{},
	}
	res := exp.Run(context.Background(), &RunConfig{Episodes: 2}, nil, nil)

	require.NoError(t, res.Error)
	assert.Equal(t, 8, res.TotalTimeSteps)
	assert.Equal(t, map[string]int{"parked": 2}, res.Outcomes)
}

func TestExperimentCountsTimeouts(t *testing.T) {
	defer goleak.VerifyNone(t)

	exp := &Experiment{
		Name:        "slow",
		Environment: &fakeEnv{size: 5, delay: 2 * time.Millisecond},
		Policy:      &fakePolicy{},
	}
	res := exp.Run(context.Background(), &RunConfig{
		Episodes:       2,
		EpisodeTimeout: 20 * time.Millisecond,
	}, nil, nil)

	require.NoError(t, res.Error)
	assert.Equal(t, 2, res.TimeoutEpisodes)
	assert.Equal(t, 2, res.TotalEpisodes)
	assert.Zero(t, res.CompletedEpisodes)
	assert.Zero(t, res.TotalTimeSteps)

	res = exp.Run(context.Background(), &RunConfig{
		Episodes:                     5,
		EpisodeTimeout:               20 * time.Millisecond,
		ThresholdConsecutiveTimeouts: 1,
	}, nil, nil)
	assert.ErrorIs(t, res.Error, ErrTooManyTimeouts)
	assert.Equal(t, 1, res.TimeoutEpisodes)
}

type timeoutAnalyzer struct {
	timeouts []bool
	errors   []bool
}

func (a *timeoutAnalyzer) Analyze(eCtx *EpisodeContext, _ *Trace) {
	a.timeouts = append(a.timeouts, eCtx.IsTimeout())
	a.errors = append(a.errors, eCtx.IsError())
}

func (a *timeoutAnalyzer) DataSet() DataSet { return a.timeouts }
func (a *timeoutAnalyzer) Reset()           {}

func TestEpisodeContextMarksTimeouts(t *testing.T) {
	defer goleak.VerifyNone(t)

	exp := &Experiment{Name: "paced", Environment: &fakeEnv{size: 5}, Policy: &fakePolicy{}}
	analyzer := &timeoutAnalyzer{}
	// the second tick is a second away, past the episode deadline
	res := exp.Run(context.Background(), &RunConfig{
		Episodes:       2,
		EpisodeTimeout: 20 * time.Millisecond,
		TickRate:       1,
	}, nil, map[string]Analyzer{"timeouts": analyzer})

	require.NoError(t, res.Error)
	assert.Equal(t, 2, res.TimeoutEpisodes)
	assert.Zero(t, res.ErrorEpisodes)
	assert.Equal(t, []bool{true, true}, analyzer.timeouts)
	assert.Equal(t, []bool{true, true}, analyzer.errors)
}

func TestCancelledRunIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eCtx := NewEpisodeContext(ctx)
	cancel()

	exp := &Experiment{}
	exp.abortEpisode(&experimentRunContext{ctx: ctx}, eCtx)
	<-eCtx.Done()
	assert.False(t, eCtx.IsTimeout())
	assert.ErrorIs(t, eCtx.Err(), context.Canceled)
}

func TestExperimentCountsErrors(t *testing.T) {
	exp := &Experiment{
		Name:        "broken",
		Environment: &fakeEnv{size: 5, failAt: 2},
		Policy:      &fakePolicy{},
	}
	res := exp.Run(context.Background(), &RunConfig{Episodes: 4, Horizon: 10}, nil, nil)
	require.NoError(t, res.Error)
	assert.Equal(t, 4, res.ErrorEpisodes)

	res = exp.Run(context.Background(), &RunConfig{
		Episodes:                   4,
		Horizon:                    10,
		ThresholdConsecutiveErrors: 2,
	}, nil, nil)
	assert.ErrorIs(t, res.Error, ErrTooManyErrors)
	assert.Equal(t, 2, res.ErrorEpisodes)
}

func TestExperimentStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exp := &Experiment{Name: "cancelled", Environment: &fakeEnv{size: 5}, Policy: &fakePolicy{}}
	res := exp.Run(ctx, &RunConfig{Episodes: 3, Horizon: 3}, nil, nil)
	assert.Error(t, res.Error)
	assert.Zero(t, res.TotalEpisodes)
}

func TestParallelComparisonRunsEveryExperiment(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmp := NewParallelComparison()
	cmp.AddExperiment(&ParallelExperiment{
		Name:        "b",
		Environment: &fakeEnvConstructor{template: fakeEnv{size: 5, doneAt: 3, outcome: "parked"}},
		Policy:      &fakePolicyConstructor{input: 5},
	})
	cmp.AddExperiment(&ParallelExperiment{
		Name:        "a",
		Environment: &fakeEnvConstructor{template: fakeEnv{size: 5}},
		Policy:      &fakePolicyConstructor{input: 5},
	})
	cmp.AddExperiment(&ParallelExperiment{
		Name:        "c",
		Environment: &fakeEnvConstructor{fail: true},
		Policy:      &fakePolicyConstructor{},
	})
	rec := &recordingComparator{}
	cmp.AddAnalysis("reward", rewardAnalyzerConstructor{}, rec)

	results := cmp.Run(context.Background(), 2, &RunConfig{
		Episodes:       2,
		Horizon:        5,
		PrintFrequency: time.Millisecond,
		Output:         io.Discard,
	}, 2)

	require.Len(t, results, 2)
	for _, run := range results {
		require.Len(t, run, 3)
		assert.Equal(t, map[string]int{"parked": 2}, run["b"].Outcomes)
		assert.Equal(t, map[string]int{"horizon": 2}, run["a"].Outcomes)
		assert.True(t, run["c"].IsError())
	}

	require.Len(t, rec.runs, 2)
	assert.Equal(t, []int{0, 1}, rec.runs)
	assert.Equal(t, []string{"a", "b", "c"}, rec.names[0])
	assert.Equal(t, []float64{-2.5, -2.5}, rec.datasets[0][0])
	assert.Equal(t, []float64{-1.5, -1.5}, rec.datasets[0][1])
	assert.Nil(t, rec.datasets[0][2])
}
