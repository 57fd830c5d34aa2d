package popup

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/identity"
)

type hubChoice int

const (
	hubEmail hubChoice = iota
	hubPassword
	hubOTP
	hubGenerate
	hubSettings
	hubQuit
)

var hubItems = []string{
	"View email address",
	"View password",
	"View one-time codes",
	"Generate new identity",
	"Settings",
	"Quit",
}

// hubModel is the landing view: identity summary plus the jump menu.
type hubModel struct {
	cursor     int
	version    string
	current    *identity.Record
	generating bool
}

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

// generateRequestMsg asks the root to mint a fresh identity.
type generateRequestMsg struct{}

// openSettingsMsg asks the root to load settings and open the form.
type openSettingsMsg struct{}

// copyMsg asks the root to put text on the clipboard. label feeds
// the notification.
type copyMsg struct {
	label string
	text  string
}

func newHubModel(version string) hubModel {
	return hubModel{version: version}
}

func (m hubModel) Init() tea.Cmd {
	return nil
}

func (m hubModel) Update(msg tea.Msg) (hubModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, zstyle.KeyQuit) {
			return m, tea.Quit
		}

		if key.Matches(msg, zstyle.KeyUp) {
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		}

		if key.Matches(msg, zstyle.KeyDown) {
			if m.cursor < len(hubItems)-1 {
				m.cursor++
			}
			return m, nil
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			return m, m.selectItem()
		}

		switch msg.String() {
		case "g":
			return m, func() tea.Msg { return generateRequestMsg{} }
		case "c":
			return m, m.copyEmail()
		case "s":
			return m, func() tea.Msg { return openSettingsMsg{} }
		}
	}

	return m, nil
}

func (m hubModel) selectItem() tea.Cmd {
	switch hubChoice(m.cursor) {
	case hubEmail:
		return func() tea.Msg { return navigateMsg{view: viewEmail} }
	case hubPassword:
		return func() tea.Msg { return navigateMsg{view: viewPassword} }
	case hubOTP:
		return func() tea.Msg { return navigateMsg{view: viewOTP} }
	case hubGenerate:
		return func() tea.Msg { return generateRequestMsg{} }
	case hubSettings:
		return func() tea.Msg { return openSettingsMsg{} }
	case hubQuit:
		return tea.Quit
	}
	return nil
}

func (m hubModel) copyEmail() tea.Cmd {
	var text string
	if m.current != nil {
		text = m.current.FullEmail
	}
	return func() tea.Msg { return copyMsg{label: "Email", text: text} }
}

func (m hubModel) View() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(
		zstyle.StyledLogo(lipgloss.NewStyle().Foreground(ghostAccent)),
	)
	toolName := indent.Render(zstyle.MutedText.Render("zghost " + m.version))

	s := "\n" + logo + "\n" + toolName + "\n\n"

	switch {
	case m.generating:
		s += "  " + zstyle.StatusWarn.Render("minting a fresh identity...") + "\n\n"
	case m.current != nil:
		s += "  " + zstyle.Highlight.Render(m.current.FullEmail) + "\n\n"
	default:
		s += "  " + zstyle.MutedText.Render("no identity yet  g to generate") + "\n\n"
	}

	for i, item := range hubItems {
		mi := zstyle.MenuItem{
			Label:  item,
			Active: m.cursor == i,
		}
		s += zstyle.RenderMenuItem(mi, ghostAccent) + "\n"
	}

	s += "\n  " + zstyle.MutedText.Render("j/k navigate  enter select  c copy address  ? help  q quit") + "\n"
	return s
}
