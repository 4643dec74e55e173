package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(getApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log into Bilibili with a QR scan",
		Long:  "Requests a login QR code, waits for you to scan it with the Bilibili app, and stores the resulting session credential for later commands.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}

			accountID, err := runLoginSpinner(cmd.Context(), cmd.OutOrStdout(), app.session)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as uid %d. Credential saved to %s.\n", accountID, app.credentialPath)
			return err
		},
	}
}
