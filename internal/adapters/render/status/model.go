package status

import (
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yumeka/bili2tg/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// Summary is everything the status command knows about the running setup.
type Summary struct {
	State          domain.SessionState
	AccountID      int64
	CredentialPath string
	HasCredential  bool
	LedgerBackend  string
	TrackedItems   int
	NotifiedItems  int
	CheckedAt      time.Time
}

type renderReadyMsg struct{}

type model struct {
	summary Summary
	styles  styles
	output  string
}

func newModel(summary Summary) model {
	return model{
		summary: summary,
		styles:  newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.summary, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(summary Summary) (string, error) {
	p := tea.NewProgram(
		newModel(summary),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
