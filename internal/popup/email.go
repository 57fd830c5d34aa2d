package popup

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/identity"
)

// emailModel shows the active address, ready to copy.
type emailModel struct {
	rec *identity.Record
}

func (m emailModel) Init() tea.Cmd {
	return nil
}

func (m emailModel) Update(msg tea.Msg) (emailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, zstyle.KeyQuit) {
			return m, tea.Quit
		}

		if key.Matches(msg, zstyle.KeyBack) {
			return m, func() tea.Msg { return navigateMsg{view: viewHub} }
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			return m, m.copy()
		}

		switch msg.String() {
		case "c":
			return m, m.copy()
		case "g":
			return m, func() tea.Msg { return generateRequestMsg{} }
		}
	}

	return m, nil
}

func (m emailModel) copy() tea.Cmd {
	var text string
	if m.rec != nil {
		text = m.rec.FullEmail
	}
	return func() tea.Msg { return copyMsg{label: "Email", text: text} }
}

func (m emailModel) View() string {
	if m.rec == nil {
		return "\n  " + zstyle.MutedText.Render("no identity yet  g to generate") + "\n\n"
	}

	s := "\n  " + zstyle.Subtitle.Render(m.rec.FullEmail) + "\n\n"

	if m.rec.Persona != "" {
		s += fieldLine("persona", m.rec.Persona)
	}
	s += fieldLine("domain", m.rec.Domain())
	if !m.rec.CreatedAt.IsZero() {
		s += "\n  " + zstyle.MutedText.Render(fmt.Sprintf("created  %s", m.rec.CreatedAt.Format(time.RFC3339))) + "\n"
	}

	return s
}

func fieldLine(label, value string) string {
	l := zstyle.MutedText.Render(fmt.Sprintf("  %-10s", label))
	return fmt.Sprintf("  %s %s\n", l, value)
}
