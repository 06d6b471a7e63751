package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeu5/self-parking/store"
)

func (a *app) reportCommand() *cobra.Command {
	var (
		runID    string
		episodes bool
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a recorded run, the latest one by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewStore(a.cfg.Store.Path, a.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if list {
				runs, err := s.Runs()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN\tSTARTED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			if runID == "" {
				if runID, err = s.LatestRun(); err != nil {
					return err
				}
			}
			if episodes {
				eps, err := s.Episodes(runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "EXPERIMENT\tRUN\tEPISODE\tSTEPS\tREWARD\tOUTCOME")
				for _, e := range eps {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.3f\t%s\n", e.Experiment, e.Run, e.Episode, e.Steps, e.Reward, e.Outcome)
				}
				return nil
			}

			sums, err := s.Summaries(runID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Run ID: %s\n", runID)
			fmt.Fprintln(w, "EXPERIMENT\tEPISODES\tMEAN REWARD\tMEAN STEPS\tOUTCOMES")
			for _, sum := range sums {
				fmt.Fprintf(w, "%s\t%d\t%.3f\t%.1f\t%s\n", sum.Experiment, sum.Episodes, sum.MeanReward, sum.MeanSteps, formatOutcomes(sum.Outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to report")
	cmd.Flags().BoolVar(&episodes, "episodes", false, "List every episode instead of the summary")
	cmd.Flags().BoolVar(&list, "list", false, "List recorded runs")
	return cmd
}
