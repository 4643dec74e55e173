package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yumeka/bili2tg/internal/application"
)

type loginDoneMsg struct {
	accountID int64
	err       error
}

type qrChallengeMsg struct {
	url string
}

type loginSpinnerModel struct {
	spinner   spinner.Model
	login     tea.Cmd
	qrURL     string
	accountID int64
	err       error
	done      bool
}

func newLoginSpinnerModel(login tea.Cmd) loginSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return loginSpinnerModel{
		spinner: s,
		login:   login,
	}
}

func (m loginSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.login)
}

func (m loginSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case qrChallengeMsg:
		m.qrURL = msg.url
		return m, nil
	case loginDoneMsg:
		m.done = true
		m.accountID = msg.accountID
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m loginSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.qrURL == "" {
		return fmt.Sprintf("%s Requesting login QR code...", m.spinner.View())
	}

	return fmt.Sprintf("Scan with the Bilibili app:\n  %s\n%s Waiting for scan confirmation...", m.qrURL, m.spinner.View())
}

func runLoginSpinner(ctx context.Context, output io.Writer, session *application.SessionService) (int64, error) {
	loginCmd := func() tea.Msg {
		accountID, err := session.Login(ctx)
		return loginDoneMsg{accountID: accountID, err: err}
	}

	p := tea.NewProgram(
		newLoginSpinnerModel(loginCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)
	session.OnQRChallenge(func(url string) {
		p.Send(qrChallengeMsg{url: url})
	})

	finalModel, err := p.Run()
	if err != nil {
		return 0, err
	}

	result, ok := finalModel.(loginSpinnerModel)
	if !ok {
		return 0, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.accountID, result.err
}
