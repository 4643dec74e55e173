package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(getApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single synchronization cycle",
		Long:  "Fetches the upvote and view streams once, records new items in the ledger, and sends any not-yet-notified upvotes to Telegram.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}

			app.session.OnQRChallenge(func(url string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session expired. Scan with the Bilibili app:\n  %s\n", url)
			})

			if err := app.sync.RunCycle(cmd.Context()); err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Sync cycle complete.")
			return err
		},
	}
}
