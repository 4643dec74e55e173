package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/yumeka/bili2tg/internal/adapters/render/status"
	"github.com/yumeka/bili2tg/internal/domain"
)

func newStatusCmd(getApp appFactory) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session and ledger status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}

			summary, err := collectSummary(cmd, app)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			rendered, err := app.statusRenderer(summary)
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")

	return cmd
}

func collectSummary(cmd *cobra.Command, app *app) (statusadapter.Summary, error) {
	ctx := cmd.Context()
	summary := statusadapter.Summary{
		State:          domain.SessionUnauthenticated,
		CredentialPath: app.credentialPath,
		LedgerBackend:  app.ledgerBackend,
		CheckedAt:      app.now(),
	}

	credential, err := app.creds.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		// Stay unauthenticated.
	case err != nil:
		return statusadapter.Summary{}, fmt.Errorf("load credential: %w", err)
	default:
		summary.HasCredential = true
		app.gateway.CommitCredential(credential)

		accountID, probeErr := app.gateway.WhoAmI(ctx)
		switch {
		case errors.Is(probeErr, domain.ErrNotAuthenticated):
			summary.State = domain.SessionExpired
		case probeErr != nil:
			return statusadapter.Summary{}, fmt.Errorf("probe session: %w", probeErr)
		default:
			summary.State = domain.SessionAuthenticated
			summary.AccountID = accountID
		}
	}

	stats, err := app.ledger.Stats(ctx)
	if err != nil {
		return statusadapter.Summary{}, fmt.Errorf("read ledger stats: %w", err)
	}
	summary.TrackedItems = stats.Tracked
	summary.NotifiedItems = stats.Notified

	return summary, nil
}
