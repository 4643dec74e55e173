package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(getApp appFactory) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll activity feeds continuously",
		Long:  "Runs synchronization cycles on a fixed interval until interrupted. Failed cycles are logged and retried on the next tick.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = app.watchInterval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.session.OnQRChallenge(func(url string) {
				app.logger.Warn("login required, scan with the bilibili app", zap.String("url", url))
			})

			app.logger.Info("watch started", zap.Duration("interval", interval))
			for {
				if err := app.sync.RunCycle(ctx); err != nil {
					if ctx.Err() != nil {
						break
					}
					app.logger.Error("sync cycle failed", zap.Error(err))
				}

				select {
				case <-ctx.Done():
					app.logger.Info("watch stopped")
					return nil
				case <-time.After(interval):
				}
			}

			app.logger.Info("watch stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", defaultInterval, "Delay between synchronization cycles")

	return cmd
}
