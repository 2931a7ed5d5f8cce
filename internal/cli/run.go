package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/fxscalper/internal/app"
	"github.com/alanyoungcy/fxscalper/internal/logging"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var autostart bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot and its API server",
		Long: `Load and validate the configuration, wire every component and run until
SIGINT or SIGTERM. The control loop starts stopped unless --autostart or
bot.autostart is set; use POST /api/control to start it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("autostart") {
				cfg.Bot.Autostart = autostart
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, closer := logging.New(cfg.Log)
			defer closer.Close()
			slog.SetDefault(logger)

			logger.Info("fxscalper starting",
				slog.String("version", Version),
				slog.String("config", opts.configPath),
			)

			application := app.New(cfg, logger)
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("application exited with error", slog.String("error", err.Error()))
				return err
			}
			logger.Info("fxscalper stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&autostart, "autostart", false, "start the control loop immediately")
	return cmd
}
