package parking

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/analysis"
	"github.com/zeu5/self-parking/config"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/policies"
	"github.com/zeu5/self-parking/store"
)

var ErrUnknownPolicy = errors.New("unknown policy")

// Options are the collaborators of a comparison that do not come from the
// configuration.
type Options struct {
	Store  *store.Store
	RunID  string
	Input  agent.Input
	Logger *zap.Logger
}

func policyConstructor(name string, opts Options) (core.PolicyConstructor, error) {
	switch name {
	case "random":
		return &policies.RandomPolicyConstructor{}, nil
	case "seek":
		return policies.SeekPolicyConstructor{}, nil
	case "input":
		if opts.Input == nil {
			return nil, fmt.Errorf("%w: input policy needs an input device", ErrUnknownPolicy)
		}
		return &policies.InputPolicyConstructor{Input: opts.Input}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
}

// PrepareComparison builds one experiment per configured policy, all
// sharing the same environment configuration.
func PrepareComparison(cfg *config.Config, opts Options) (*core.ParallelComparison, error) {
	cmp := core.NewParallelComparison()

	envConstructor := NewParkingEnvConstructor(ParkingEnvConfig{
		Agent:  cfg.AgentConfig(),
		World:  cfg.WorldConfig(),
		Logger: opts.Logger,
	})

	savePath := cfg.Run.SavePath
	if cfg.Run.Debug {
		cmp.AddAnalysis("Debug", analysis.NewPrintDebugAnalyzerConstructor(savePath, cfg.Run.TraceFrom), analysis.NewLogComparatorConstructor("Debug", opts.Logger))
	}
	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzerConstructor(savePath), analysis.NewLogComparatorConstructor("Errors", opts.Logger))
	cmp.AddAnalysis("Rewards", analysis.RewardAnalyzerConstructor{}, analysis.NewRewardComparatorConstructor(savePath))
	cmp.AddAnalysis("Outcomes",
		analysis.NewOutcomeAnalyzerConstructor(agent.EventEntryToTargetZone.String(), savePath),
		analysis.NewOutcomeComparatorConstructor(savePath),
	)
	if opts.Store != nil {
		cmp.AddAnalysis("Store", analysis.NewStoreAnalyzerConstructor(opts.Store, opts.RunID, opts.Logger), analysis.NewLogComparatorConstructor("Store", opts.Logger))
	}

	seen := make(map[string]bool)
	for _, name := range cfg.Run.Policies {
		if seen[name] {
			continue
		}
		seen[name] = true
		policy, err := policyConstructor(name, opts)
		if err != nil {
			return nil, err
		}
		cmp.AddExperiment(&core.ParallelExperiment{
			Name:        name,
			Environment: envConstructor,
			Policy:      policy,
		})
	}
	return cmp, nil
}
