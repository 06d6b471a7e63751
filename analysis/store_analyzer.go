package analysis

import (
	"go.uber.org/zap"

	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/store"
)

// StoreAnalyzer appends every finished episode to the episode store.
type StoreAnalyzer struct {
	store  *store.Store
	runID  string
	exp    string
	run    int
	logger *zap.Logger
}

var _ core.Analyzer = &StoreAnalyzer{}

func (a *StoreAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() {
		return
	}
	outcome := trace.Outcome()
	if outcome == "" {
		outcome = OutcomeHorizon
	}
	err := a.store.RecordEpisode(store.EpisodeRecord{
		RunID:      a.runID,
		Experiment: a.exp,
		Run:        a.run,
		Episode:    eCtx.Episode,
		Steps:      trace.Len(),
		Reward:     trace.TotalReward(),
		Outcome:    outcome,
	})
	if err != nil {
		a.logger.Warn("failed to record episode",
			zap.String("experiment", a.exp),
			zap.Int("episode", eCtx.Episode),
			zap.Error(err),
		)
	}
}

func (a *StoreAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *StoreAnalyzer) Reset() {}

type StoreAnalyzerConstructor struct {
	Store  *store.Store
	RunID  string
	Logger *zap.Logger
}

var _ core.AnalyzerConstructor = &StoreAnalyzerConstructor{}

func NewStoreAnalyzerConstructor(s *store.Store, runID string, logger *zap.Logger) *StoreAnalyzerConstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreAnalyzerConstructor{Store: s, RunID: runID, Logger: logger}
}

func (c *StoreAnalyzerConstructor) NewAnalyzer(exp string, run int) core.Analyzer {
	return &StoreAnalyzer{
		store:  c.Store,
		runID:  c.RunID,
		exp:    exp,
		run:    run,
		logger: c.Logger,
	}
}
