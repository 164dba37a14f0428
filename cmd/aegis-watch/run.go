package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisWatch/internal/adapters/camera"
	"github.com/ghalamif/AegisWatch/pkg/aegiswatch"
)

func runCmd() *cobra.Command {
	var simulate, dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alert and camera streams until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]any{}
			if cmd.Flags().Changed("simulate") {
				extra["simulate"] = simulate
			}
			if cmd.Flags().Changed("dry-run") {
				extra["dry_run"] = dryRun
			}
			cfg, err := loadConfig(extra)
			if err != nil {
				return err
			}

			var opts []aegiswatch.AgentOption
			if cfg.Camera.Enabled && !cfg.Simulate {
				opts = append(opts, aegiswatch.WithCameraSource(camera.NewSource(camera.Config{
					Width:     cfg.Camera.Width,
					Height:    cfg.Camera.Height,
					FrameRate: cfg.Camera.FrameRate,
					Format:    cfg.PixelFormat(),
					Pipeline:  cfg.Camera.Pipeline,
				})))
			}

			agent, err := aegiswatch.NewAgent(cfg, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := agent.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use synthetic sensor and camera sources")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log payloads instead of publishing to the broker")
	return cmd
}
