package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisWatch/pkg/aegiswatch"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "aegis-watch",
	Short: "Sound alert and camera publisher for Raspberry Pi",
	Long: `aegis-watch reads a GPIO sound sensor and a camera and publishes
critical alerts and JPEG frames to an MQTT broker over TLS.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML); environment variables apply on top")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd(), validateCmd(), configCmd(), statsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		failure(os.Stderr, "aegis-watch: %v", err)
		os.Exit(1)
	}
}

func loadConfig(extra map[string]any) (*aegiswatch.Config, error) {
	overrides := map[string]any{}
	if logLevel != "" {
		overrides["log.level"] = logLevel
	}
	for k, v := range extra {
		overrides[k] = v
	}
	return aegiswatch.LoadConfig(cfgPath, overrides)
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "config looks good (device %s, broker %s:%d)",
				cfg.Device.ID, cfg.MQTT.Host, cfg.MQTT.Port)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			return cfg.Redacted().WriteYAML(cmd.OutOrStdout())
		},
	}
}
