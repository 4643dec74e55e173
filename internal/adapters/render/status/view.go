package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/yumeka/bili2tg/internal/domain"
)

func renderView(summary Summary, s styles) string {
	lines := []string{
		s.title.Render("Bilibili Watcher Status"),
		line(s, "session", sessionLine(summary, s)),
		line(s, "credential", credentialLine(summary, s)),
		line(s, "ledger", ledgerLine(summary, s)),
	}

	if !summary.CheckedAt.IsZero() {
		lines = append(lines, s.faint.Render(
			fmt.Sprintf("checked at %s", summary.CheckedAt.Format("15:04:05 on 02 Jan"))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func line(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+": "), value)
}

func sessionLine(summary Summary, s styles) string {
	switch summary.State {
	case domain.SessionAuthenticated:
		return s.ok.Render(fmt.Sprintf("authenticated (uid %d)", summary.AccountID))
	case domain.SessionExpired:
		return s.warning.Render("expired, run login again")
	default:
		return s.warning.Render(string(summary.State))
	}
}

func credentialLine(summary Summary, s styles) string {
	if !summary.HasCredential {
		return s.warning.Render("none stored")
	}
	return s.value.Render(summary.CredentialPath)
}

func ledgerLine(summary Summary, s styles) string {
	if summary.TrackedItems == 0 {
		return s.value.Render(fmt.Sprintf("%s, empty", summary.LedgerBackend))
	}
	return s.value.Render(fmt.Sprintf("%s, %d items tracked, %d notified",
		summary.LedgerBackend, summary.TrackedItems, summary.NotifiedItems))
}
