package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zeu5/self-parking/analysis"
	"github.com/zeu5/self-parking/benchmarks/parking"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/policies"
	"github.com/zeu5/self-parking/store"
)

var ErrInterrupted = errors.New("interrupted")

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the parking experiments for every configured policy",
		RunE:  a.run,
	}
	AddRunFlags(cmd)
	return cmd
}

func (a *app) run(cmd *cobra.Command, _ []string) error {
	cfg := a.cfg
	out := cmd.OutOrStdout()
	if err := cfg.Record(); err != nil {
		return fmt.Errorf("record config: %w", err)
	}

	opts := parking.Options{Logger: a.logger}
	if cfg.Store.Enabled {
		s, err := store.NewStore(cfg.Store.Path, a.logger)
		if err != nil {
			return err
		}
		defer s.Close()
		runID, err := s.BeginRun(cfg)
		if err != nil {
			return err
		}
		opts.Store = s
		opts.RunID = runID
	}
	if cfg.Run.InputScript != "" {
		input, err := policies.LoadScript(cfg.Run.InputScript)
		if err != nil {
			return err
		}
		opts.Input = input
	}

	cmp, err := parking.PrepareComparison(cfg, opts)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	g, ctx := errgroup.WithContext(cmd.Context())
	doneCh := make(chan struct{})
	var results []map[string]*core.ExperimentResult
	g.Go(func() error {
		defer close(doneCh)
		results = cmp.Run(ctx, cfg.Run.NumRuns, cfg.RunConfig(a.logger, out), cfg.Run.Parallelism)
		return nil
	})
	g.Go(func() error {
		select {
		case <-sigCh:
			a.logger.Warn("interrupted, stopping experiments")
			return ErrInterrupted
		case <-doneCh:
			return nil
		}
	})
	err = g.Wait()

	printResults(out, results)
	if opts.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", opts.RunID)
	}
	a.logger.Info("experiments finished", zap.Int("runs", len(results)), zap.Error(err))
	return err
}

func printResults(out io.Writer, results []map[string]*core.ExperimentResult) {
	for run, byExp := range results {
		names := make([]string, 0, len(byExp))
		for name := range byExp {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(out, "Run %d\n", run)
		for _, name := range names {
			res := byExp[name]
			line := fmt.Sprintf("  %s: episodes %d/%d, errors %d, timeouts %d, steps %d, outcomes %s",
				name, res.CompletedEpisodes, res.TotalEpisodes, res.ErrorEpisodes, res.TimeoutEpisodes,
				res.TotalTimeSteps, formatOutcomes(res.Outcomes))
			if curve, ok := res.Datasets["Rewards"].(*analysis.RewardCurve); ok {
				line += fmt.Sprintf(", mean reward %.3f", curve.MeanReward(0))
			}
			if res.IsError() {
				line += fmt.Sprintf(", error: %s", res.Error)
			}
			fmt.Fprintln(out, line)
		}
	}
}

func formatOutcomes(outcomes map[string]int) string {
	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, outcomes[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
