package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Amund-Fremming/tero.platform/internal/config"
	"github.com/Amund-Fremming/tero.platform/internal/logging"
)

var (
	cfg        *config.Config
	logger     *logrus.Logger
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "teroapi",
	Short: "Tero platform API server",
	Long: `Tero platform API serves game listings, users and game keys for the
Tero party games and hands interactive sessions to the game-session service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a TOML config file (default: ./config.toml or /etc/tero/config.toml; env overrides use "+config.EnvPrefix+"__)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
