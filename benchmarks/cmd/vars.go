package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zeu5/self-parking/config"
)

// persistentFlags maps the flags shared by every command to config keys.
var persistentFlags = map[string]string{
	"save-path":     "run.save_path",
	"log-level":     "logger.level",
	"log-format":    "logger.format",
	"log-file":      "logger.log_file",
	"store":         "store.path",
	"store-enabled": "store.enabled",
}

// runFlags maps the flags of the run command to config keys.
var runFlags = map[string]string{
	"policies":                 "run.policies",
	"num-runs":                 "run.num_runs",
	"episodes":                 "run.episodes",
	"horizon":                  "run.horizon",
	"parallelism":              "run.parallelism",
	"episode-timeout":          "run.episode_timeout",
	"max-consecutive-errors":   "run.max_consecutive_errors",
	"max-consecutive-timeouts": "run.max_consecutive_timeouts",
	"tick-rate":                "run.tick_rate",
	"debug":                    "run.debug",
	"trace-from":               "run.trace_from",
	"input-script":             "run.input_script",
	"max-steps":                "agent.max_steps",
}

// commandFlags holds the bindings of each subcommand's local flags.
var commandFlags = map[string]map[string]string{
	"run": runFlags,
}

func AddFlags(cmd *cobra.Command, configPath *string) {
	def := config.NewDefaultConfig()
	pf := cmd.PersistentFlags()
	pf.StringVar(configPath, "config", "", "Path to a config file (yaml, json or toml)")
	pf.String("save-path", def.Run.SavePath, "Path to save results")
	pf.String("log-level", def.Logger.Level, "Log level")
	pf.String("log-format", def.Logger.Format, "Log format, console or json")
	pf.String("log-file", def.Logger.LogFile, "Also write JSON logs to this file")
	pf.String("store", def.Store.Path, "Path of the episode database")
	pf.Bool("store-enabled", def.Store.Enabled, "Record episodes in the database")
}

func AddRunFlags(cmd *cobra.Command) {
	def := config.NewDefaultConfig()
	f := cmd.Flags()
	f.StringSlice("policies", def.Run.Policies, "Policies to compare: random, seek, input")
	f.Int("num-runs", def.Run.NumRuns, "Number of runs")
	f.Int("episodes", def.Run.Episodes, "Number of episodes")
	f.Int("horizon", def.Run.Horizon, "Maximum steps per episode, 0 for none")
	f.Int("parallelism", def.Run.Parallelism, "Number of experiments run in parallel")
	f.Duration("episode-timeout", def.Run.EpisodeTimeout, "Episode timeout")
	f.Int("max-consecutive-errors", def.Run.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	f.Int("max-consecutive-timeouts", def.Run.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	f.Float64("tick-rate", def.Run.TickRate, "Ticks per second, 0 runs unpaced")
	f.Bool("debug", def.Run.Debug, "Save episode traces")
	f.Int("trace-from", def.Run.TraceFrom, "First episode whose trace is saved in debug mode")
	f.String("input-script", def.Run.InputScript, "JSON drive replayed by the input policy")
	f.Int("max-steps", def.Agent.MaxSteps, "End an episode after this many ticks, 0 for never")
}

// bindFlags points the config keys at the flags of cmd, so flags set on the
// command line override files and the environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for name, key := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
