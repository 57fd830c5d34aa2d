package popup

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/identity"
)

// passwordModel shows the active identity's password, masked until
// the user asks for it.
type passwordModel struct {
	rec      *identity.Record
	revealed bool
}

func (m passwordModel) Init() tea.Cmd {
	return nil
}

func (m passwordModel) Update(msg tea.Msg) (passwordModel, tea.Cmd) {
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
		case "r":
			m.revealed = !m.revealed
			return m, nil
		case "c":
			return m, m.copy()
		}
	}

	return m, nil
}

func (m passwordModel) copy() tea.Cmd {
	var text string
	if m.rec != nil {
		text = m.rec.Password
	}
	return func() tea.Msg { return copyMsg{label: "Password", text: text} }
}

func (m passwordModel) View() string {
	if m.rec == nil {
		return "\n  " + zstyle.MutedText.Render("no identity yet  g to generate") + "\n\n"
	}
	if m.rec.Password == "" {
		return "\n  " + zstyle.MutedText.Render("this identity has no password") + "\n\n"
	}

	s := "\n  " + zstyle.Subtitle.Render(m.rec.FullEmail) + "\n\n"

	if m.revealed {
		s += fieldLine("password", m.rec.Password)
	} else {
		s += fieldLine("password", "••••••••")
	}

	s += "\n"
	return s
}
