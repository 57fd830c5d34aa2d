package popup

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/vault"
)

// The panel is useless without a plausible LLM key, so every screen
// except settings sits behind a gate overlay until one is saved.

// gated reports whether the gate overlay owns the screen.
func (m Model) gated() bool {
	return !m.configured && m.active != viewSettings
}

// applySettings refreshes the cached settings blob and recomputes the
// gate. Malformed blobs land here as the zero value, which locks it.
func (m *Model) applySettings(s vault.Settings) {
	m.cfg = s
	m.configured = s.LLMConfigured()
}

// gatedKey handles the reduced key set while the overlay is up.
func (m Model) gatedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s", "enter":
		return m, func() tea.Msg { return openSettingsMsg{} }
	}
	return m, nil
}

func (m Model) gateView() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(
		zstyle.StyledLogo(lipgloss.NewStyle().Foreground(ghostAccent)),
	)
	toolName := indent.Render(zstyle.MutedText.Render("zghost " + m.version))

	s := "\n" + logo + "\n" + toolName + "\n\n"
	s += "  " + zstyle.StatusWarn.Render("not configured") + "\n\n"
	s += "  zghost needs an OpenAI API key before it can mint identities.\n"
	s += "  The key is stored in the encrypted vault and never leaves it.\n\n"
	s += "  " + zstyle.MutedText.Render("s settings  q quit") + "\n"
	s += m.noticeLine()
	return s
}
