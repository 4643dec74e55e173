package cmd

import (
	"sync"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

// appFactory wires the adapters on first use, so commands that never touch
// them, like version, work even when wiring would fail.
type appFactory func() (*app, error)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bili2tg",
		Short:         "Watch Bilibili activity and forward new upvotes to Telegram",
		Long:          "bili2tg logs into Bilibili with a QR scan, polls your view history and upvoted videos, and sends each newly upvoted video to a Telegram chat exactly once.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	getApp := appFactory(sync.OnceValues(wireApp))

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(getApp),
		newSyncCmd(getApp),
		newWatchCmd(getApp),
		newStatusCmd(getApp),
	)

	return rootCmd
}
