package main

import (
	"fmt"
	"os"

	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	zapLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "loan-chat",
	Short: "Personal-loan chat assistant",
	Long: `loan-chat answers loan questions, looks up and onboards customers,
evaluates eligibility and issues PDF sanction letters.

Run "loan-chat serve" for the HTTP API or "loan-chat repl" for a terminal chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFromFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		zapLog = logger.NewWithOutput(level, cfg.Logging.Format, cfg.Logging.Output)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config YAML (default: configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
