package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zeu5/self-parking/util"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
)

type experimentRunContext struct {
	run       int
	ctx       context.Context
	analyzers map[string]Analyzer

	output *util.ParallelOutput
	logger *zap.Logger

	*RunConfig
}

type ExperimentResult struct {
	CompletedEpisodes int
	TotalEpisodes     int
	ErrorEpisodes     int
	TimeoutEpisodes   int
	TotalTimeSteps    int
	Outcomes          map[string]int

	Error    error
	Datasets map[string]DataSet
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// Run runs the experiment once with the given analyzers. Progress lines go
// to out when it is not nil.
func (e *Experiment) Run(ctx context.Context, rConfig *RunConfig, out *util.ParallelOutput, analyzers map[string]Analyzer) *ExperimentResult {
	if analyzers == nil {
		analyzers = make(map[string]Analyzer)
	}
	return e.run(&experimentRunContext{
		ctx:       ctx,
		analyzers: analyzers,
		output:    out,
		logger:    loggerOf(rConfig),
		RunConfig: rConfig,
	})
}

func loggerOf(rConfig *RunConfig) *zap.Logger {
	if rConfig.Logger == nil {
		return zap.NewNop()
	}
	return rConfig.Logger
}

func (c *experimentRunContext) episodeContext() (context.Context, context.CancelFunc) {
	if c.EpisodeTimeout > 0 {
		return context.WithTimeout(c.ctx, c.EpisodeTimeout)
	}
	return context.WithCancel(c.ctx)
}

func (e *Experiment) checkSizes() error {
	want := e.Policy.InputSize()
	have := e.Environment.ObservationSize()
	if want != 0 && want != have {
		return fmt.Errorf("%w: experiment %s: environment produces %d, policy takes %d", ErrObservationMismatch, e.Name, have, want)
	}
	return nil
}

func (e *Experiment) run(ctx *experimentRunContext) *ExperimentResult {
	result := &ExperimentResult{
		Outcomes: make(map[string]int),
		Datasets: make(map[string]DataSet),
	}
	if err := e.checkSizes(); err != nil {
		result.Error = err
		return result
	}
	e.Policy.Reset()

	var limiter *rate.Limiter
	if ctx.TickRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(ctx.TickRate), 1)
	}

	consecutiveErrors := 0
	consecutiveTimeouts := 0
EpisodeLoop:
	for episode := 0; episode < ctx.Episodes; episode++ {
		select {
		case <-ctx.ctx.Done():
			result.Error = errors.New("context cancelled")
			break EpisodeLoop
		default:
		}

		episodeCtx, episodeCancel := ctx.episodeContext()
		eCtx := NewEpisodeContext(episodeCtx)
		eCtx.Run = ctx.run
		eCtx.Episode = episode
		eCtx.Horizon = ctx.Horizon
		eCtx.StartTimeStep = result.TotalTimeSteps

		go e.runEpisode(ctx, eCtx, limiter, result)

		// the episode goroutine checks its context every step
		<-eCtx.Done()
		episodeCancel()

		timedout := eCtx.IsTimeout()
		errorred := eCtx.IsError() && !timedout

		if errorred {
			result.ErrorEpisodes++
			ctx.logger.Warn("episode failed",
				zap.String("experiment", e.Name),
				zap.Int("run", ctx.run),
				zap.Int("episode", episode),
				zap.Error(eCtx.Err()),
			)
			if consecutiveErrors++; ctx.ThresholdConsecutiveErrors > 0 && consecutiveErrors >= ctx.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				break EpisodeLoop
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			result.TimeoutEpisodes++
			if consecutiveTimeouts++; ctx.ThresholdConsecutiveTimeouts > 0 && consecutiveTimeouts >= ctx.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				break EpisodeLoop
			}
		} else {
			consecutiveTimeouts = 0
		}

		if !errorred && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.CompletedEpisodes++
			outcome := eCtx.Trace.Outcome()
			if outcome == "" {
				outcome = "horizon"
			}
			result.Outcomes[outcome]++
		}
		result.TotalEpisodes++

		for _, a := range ctx.analyzers {
			a.Analyze(eCtx, eCtx.Trace)
		}
	}
	if result.Error != nil {
		ctx.logger.Error("experiment stopped",
			zap.String("experiment", e.Name),
			zap.Int("run", ctx.run),
			zap.Error(result.Error),
		)
	}

	for name, a := range ctx.analyzers {
		result.Datasets[name] = a.DataSet()
	}

	e.Policy.Reset()
	return result
}

func (e *Experiment) runEpisode(ctx *experimentRunContext, eCtx *EpisodeContext, limiter *rate.Limiter, result *ExperimentResult) {
	obs, err := e.Environment.Reset(eCtx)
	if err != nil {
		eCtx.Error(err)
		return
	}
	e.Policy.ResetEpisode(eCtx)
	for step := 0; ctx.Horizon <= 0 || step < ctx.Horizon; step++ {
		select {
		case <-eCtx.Context.Done():
			e.abortEpisode(ctx, eCtx)
			return
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(eCtx.Context); err != nil {
				// Wait fails early when the next tick would pass the deadline
				<-eCtx.Context.Done()
				e.abortEpisode(ctx, eCtx)
				return
			}
		}

		sCtx := &StepContext{Step: step, EpisodeContext: eCtx}
		action := e.Policy.PickAction(sCtx, obs)
		transition, err := e.Environment.Step(action, sCtx)
		if err != nil {
			eCtx.Error(err)
			return
		}
		e.Policy.UpdateStep(sCtx, obs, action, transition)
		eCtx.Trace.AddStep(&Step{
			Observation: obs,
			Action:      action,
			Transition:  transition,
		})
		obs = transition.Observation

		if ctx.output != nil {
			ctx.output.TrySet(fmt.Sprintf(
				"Experiment: %s, Run %d, Episode %d/%d, Timesteps: %d, Error: %d, Timedout: %d | %s",
				e.Name, ctx.run, eCtx.Episode+1, ctx.Episodes, eCtx.StartTimeStep+step+1,
				result.ErrorEpisodes, result.TimeoutEpisodes, transition.Info,
			))
		}
		if transition.Done {
			break
		}
	}
	e.Policy.UpdateEpisode(eCtx)
	eCtx.Finish()
}

// abortEpisode ends an episode whose context is done. Only the episode's
// own deadline counts as a timeout; a cancelled run is an error.
func (e *Experiment) abortEpisode(ctx *experimentRunContext, eCtx *EpisodeContext) {
	err := eCtx.Context.Err()
	if errors.Is(err, context.DeadlineExceeded) && ctx.ctx.Err() == nil {
		eCtx.Timeout(err)
		return
	}
	eCtx.Error(err)
}

// parallelWorker is a worker that runs experiments
type parallelWorker struct {
	id int
}

// parallelWork is a struct that contains all the information needed to run an experiment
type parallelWork struct {
	experiment *ParallelExperiment
	comp       *ParallelComparison
	runNumber  int
	output     *util.ParallelOutput
	rConfig    *RunConfig
}

// parallelResult is a struct that contains the result of running an experiment
type parallelResult struct {
	experimentName string
	run            int
	result         *ExperimentResult
}

// Worker main loop that consumes work from a channel
func (w *parallelWorker) run(ctx context.Context, workCh <-chan *parallelWork, resultsCh chan<- *parallelResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case work, more := <-workCh:
			if !more {
				return
			}
			result := w.runWork(ctx, work)
			resultsCh <- result
		}
	}
}

// Run an experiment by constructing the environment and policy of the worker
func (w *parallelWorker) runWork(ctx context.Context, work *parallelWork) *parallelResult {
	eCtx := &experimentRunContext{
		run:       work.runNumber,
		ctx:       ctx,
		analyzers: make(map[string]Analyzer),
		output:    work.output,
		logger:    loggerOf(work.rConfig).With(zap.Int("worker", w.id)),
		RunConfig: work.rConfig,
	}

	for name, aC := range work.comp.Analyzers {
		eCtx.analyzers[name] = aC.NewAnalyzer(work.experiment.Name, work.runNumber)
	}

	env, err := work.experiment.Environment.NewEnvironment(w.id)
	if err != nil {
		return &parallelResult{
			experimentName: work.experiment.Name,
			run:            work.runNumber,
			result:         &ExperimentResult{Error: fmt.Errorf("create environment: %w", err)},
		}
	}
	defer env.Close()

	// Construct the experiment
	exp := &Experiment{
		Name:        work.experiment.Name,
		Environment: env,
		Policy:      work.experiment.Policy.NewPolicy(),
	}

	return &parallelResult{
		experimentName: work.experiment.Name,
		run:            work.runNumber,
		result:         exp.run(eCtx),
	}
}

// Run runs every experiment runs times, parallelism experiments at a time,
// and returns the results keyed by run and then experiment name.
func (c *ParallelComparison) Run(ctx context.Context, runs int, rConfig *RunConfig, parallelism int) []map[string]*ExperimentResult {
	if parallelism <= 0 {
		parallelism = 1
	}
	allResults := make([]map[string]*ExperimentResult, 0, runs)
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return allResults
		default:
		}
		printer := util.NewTerminalPrinter(rConfig.PrintFrequency, rConfig.Output)
		outputs := make([]*util.ParallelOutput, len(c.Experiments))
		for i := range c.Experiments {
			outputs[i] = printer.NewOutput()
		}
		printer.Start(ctx)
		printer.Write(fmt.Sprintf("Run %d\n", run))

		// Create workers and channels
		workCh := make(chan *parallelWork, len(c.Experiments))
		resultsCh := make(chan *parallelResult, len(c.Experiments))

		workers := new(sync.WaitGroup)
		for i := 0; i < parallelism; i++ {
			workers.Add(1)
			w := &parallelWorker{id: i}
			go w.run(ctx, workCh, resultsCh, workers)
		}

		// Run experiments by sending work to workers
		for i, e := range c.Experiments {
			workCh <- &parallelWork{
				experiment: e,
				comp:       c,
				runNumber:  run,
				rConfig:    rConfig,
				output:     outputs[i],
			}
		}
		close(workCh)

		// Workers exit once the work channel is drained
		workers.Wait()
		close(resultsCh)
		printer.Stop()

		results := make(map[string]*ExperimentResult)
		for result := range resultsCh {
			results[result.experimentName] = result.result
		}
		allResults = append(allResults, results)

		// Gather datasets to run comparisons
		datasets := make(map[string][]DataSet)
		experimentNames := make([]string, 0, len(results))
		for name := range results {
			experimentNames = append(experimentNames, name)
		}
		sort.Strings(experimentNames)
		for name := range c.Analyzers {
			for _, exp := range experimentNames {
				result := results[exp]
				if result.IsError() {
					datasets[name] = append(datasets[name], nil)
				} else {
					datasets[name] = append(datasets[name], result.Datasets[name])
				}
			}
		}
		for name, cmp := range c.Comparators {
			select {
			case <-ctx.Done():
				return allResults
			default:
			}
			cmp.NewComparator(run).Compare(experimentNames, datasets[name])
		}
	}
	return allResults
}
