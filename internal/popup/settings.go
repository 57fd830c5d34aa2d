package popup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/vault"
)

type settingsField int

const (
	fieldAPIKey settingsField = iota
	fieldModel
	fieldBaseURL
	settingsFieldCount
)

var settingsLabels = [settingsFieldCount]string{
	"api key",
	"model",
	"base url",
}

// settingsModel is the form for the LLM connection. Quitting is
// ctrl+c only so every printable key reaches the focused input.
type settingsModel struct {
	inputs []textinput.Model
	focus  int
	saving bool
}

func newSettingsModel(s vault.Settings) settingsModel {
	inputs := make([]textinput.Model, settingsFieldCount)

	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 50
		inputs[i] = ti
	}

	inputs[fieldAPIKey].Placeholder = "sk-..."
	inputs[fieldAPIKey].SetValue(s.LLMAPIKey)
	inputs[fieldAPIKey].EchoMode = textinput.EchoPassword
	inputs[fieldAPIKey].EchoCharacter = '*'

	inputs[fieldModel].Placeholder = "gpt-4o-mini"
	inputs[fieldModel].SetValue(s.Model)

	inputs[fieldBaseURL].Placeholder = "https://api.openai.com/v1"
	inputs[fieldBaseURL].SetValue(s.BaseURL)

	inputs[0].Focus()

	return settingsModel{inputs: inputs}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m settingsModel) Update(msg tea.Msg) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.saving {
			return m, nil
		}

		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if msg.Type == tea.KeyEsc {
			return m, func() tea.Msg { return navigateMsg{view: viewHub} }
		}

		if key.Matches(msg, zstyle.KeyTab) || msg.Type == tea.KeyDown {
			return m.nextField(), nil
		}

		if msg.Type == tea.KeyUp || msg.Type == tea.KeyShiftTab {
			return m.prevField(), nil
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			// enter on the last field saves; otherwise advance
			if m.focus == int(settingsFieldCount)-1 {
				return m.submit()
			}
			return m.nextField(), nil
		}

		if msg.String() == "ctrl+s" {
			return m.submit()
		}
	}

	return m.updateInput(msg)
}

// submit hands the trimmed form to the root. An empty key is a valid
// save: it wipes the stored key and drops the gate back down.
func (m settingsModel) submit() (settingsModel, tea.Cmd) {
	s := vault.Settings{
		LLMAPIKey: strings.TrimSpace(m.inputs[fieldAPIKey].Value()),
		Model:     strings.TrimSpace(m.inputs[fieldModel].Value()),
		BaseURL:   strings.TrimSpace(m.inputs[fieldBaseURL].Value()),
	}
	return m, func() tea.Msg { return saveSettingsMsg{settings: s} }
}

func (m settingsModel) nextField() settingsModel {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + 1) % int(settingsFieldCount)
	m.inputs[m.focus].Focus()
	return m
}

func (m settingsModel) prevField() settingsModel {
	m.inputs[m.focus].Blur()
	m.focus--
	if m.focus < 0 {
		m.focus = int(settingsFieldCount) - 1
	}
	m.inputs[m.focus].Focus()
	return m
}

func (m settingsModel) updateInput(msg tea.Msg) (settingsModel, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m settingsModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(ghostAccent).Bold(true)

	s := "\n"

	for i, input := range m.inputs {
		label := zstyle.MutedText.Render(fmt.Sprintf("  %-12s", settingsLabels[i]))
		if i == m.focus {
			s += accentStyle.Render("▸") + " " + label + input.View() + "\n"
		} else {
			s += "  " + label + input.View() + "\n"
		}
	}

	s += "\n"

	if m.saving {
		s += "  " + zstyle.MutedText.Render("saving...") + "\n"
	} else {
		s += "\n"
	}

	return s
}
