// Package cli is the command-line front end of the host kernel.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eventkernel/services/config"
	"eventkernel/services/logging"
)

var (
	configPath string
	configName string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kernel-host",
	Short: "Run the event kernel as a host process",
	Long: `kernel-host boots the event kernel on a simulated PC: an interrupt
controller with a periodic timer, a PC keyboard fed from stdin, a PCI bus with
a Cirrus GD5446 display controller and, optionally, a host directory mounted
as the boot filesystem.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (overrides --config-name)")
	rootCmd.PersistentFlags().StringVar(&configName, "config-name", "host", "Built-in configuration to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(memmapCmd)
	rootCmd.AddCommand(lspciCmd)
}

// Execute runs the root command.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Named(configName)
}
