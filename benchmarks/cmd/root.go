package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zeu5/self-parking/config"
	"github.com/zeu5/self-parking/observability"
)

// app is the state shared by the commands of one root command.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func RootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:           "parking",
		Short:         "Train and evaluate self-parking policies",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}
	AddFlags(cmd, &a.configPath)

	cmd.AddCommand(
		a.runCommand(),
		a.reportCommand(),
	)
	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	if err := bindFlags(a.v, cmd, persistentFlags); err != nil {
		return err
	}
	if err := bindFlags(a.v, cmd, commandFlags[cmd.Name()]); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.InitializeLogger(cfg.Logger)
	return nil
}
