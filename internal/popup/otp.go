package popup

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/codes"
	"github.com/zarlcorp/zghost/internal/identity"
)

// otpModel shows live TOTP for the active identity next to the
// newest code captured from incoming messages.
type otpModel struct {
	rec    *identity.Record
	latest *codes.Code

	code    string
	codeErr string
}

// totpTickMsg triggers a TOTP refresh.
type totpTickMsg struct{}

func (m *otpModel) refresh() {
	if m.rec == nil || m.rec.TOTPSecret == "" {
		m.code = ""
		m.codeErr = ""
		return
	}
	code, err := zcrypto.TOTPCode(m.rec.TOTPSecret)
	if err != nil {
		m.codeErr = err.Error()
		m.code = ""
		return
	}
	m.code = code
	m.codeErr = ""
}

func (m otpModel) Init() tea.Cmd {
	if m.rec == nil || m.rec.TOTPSecret == "" {
		return nil
	}
	return m.tickTOTP()
}

func (m otpModel) tickTOTP() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return totpTickMsg{}
	})
}

func (m otpModel) Update(msg tea.Msg) (otpModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case totpTickMsg:
		m.refresh()
		if m.rec != nil && m.rec.TOTPSecret != "" {
			return m, m.tickTOTP()
		}
		return m, nil
	}

	return m, nil
}

func (m otpModel) handleKey(msg tea.KeyMsg) (otpModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewHub} }
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m, m.copy()
	}

	if msg.String() == "c" {
		return m, m.copy()
	}

	return m, nil
}

// copy prefers the live TOTP code and falls back to the newest
// captured one.
func (m otpModel) copy() tea.Cmd {
	text := m.code
	if text == "" && m.latest != nil {
		text = m.latest.Value
	}
	return func() tea.Msg { return copyMsg{label: "Code", text: text} }
}

func (m otpModel) totpCountdown() int {
	return 30 - int(time.Now().Unix()%30)
}

func (m otpModel) View() string {
	s := "\n"

	if m.rec == nil {
		s += "  " + zstyle.MutedText.Render("no identity yet  g to generate") + "\n"
	} else {
		s += "  " + zstyle.Subtitle.Render(m.rec.FullEmail) + "\n\n"
		switch {
		case m.codeErr != "":
			s += fieldLine("totp", "error: "+m.codeErr)
		case m.code != "":
			s += fieldLine("totp", fmt.Sprintf("%s (%ds)", m.code, m.totpCountdown()))
		default:
			s += fieldLine("totp", zstyle.MutedText.Render("no authenticator secret"))
		}
	}

	s += "\n"

	if m.latest != nil {
		s += fieldLine("captured", m.latest.Value)
		s += "  " + zstyle.MutedText.Render(fmt.Sprintf("%s code, seen %s", m.latest.Kind, m.latest.FoundAt.Format(time.RFC3339))) + "\n"
	} else {
		s += "  " + zstyle.MutedText.Render("no codes captured from incoming messages") + "\n"
	}

	return s
}
