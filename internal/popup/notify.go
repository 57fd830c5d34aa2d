package popup

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// noticeTTL is how long a notification stays on screen.
const noticeTTL = 2500 * time.Millisecond

// notice is the transient one-line notification area. seq fences the
// scheduled clear: an expiry only lands if no newer notice replaced
// the one that scheduled it.
type notice struct {
	text string
	seq  int
}

// noticeExpiredMsg fires when a scheduled clear comes due.
type noticeExpiredMsg struct {
	seq int
}

// showNotice replaces whatever notification is visible and schedules
// its expiry. A still-pending expiry for the old text becomes a no-op.
func (m Model) showNotice(text string) (Model, tea.Cmd) {
	m.notice.text = text
	m.notice.seq++
	seq := m.notice.seq

	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m Model) expireNotice(msg noticeExpiredMsg) Model {
	if msg.seq == m.notice.seq {
		m.notice.text = ""
	}
	return m
}

// dismissNotice clears the notice immediately and fences out any
// expiry still in flight.
func (m Model) dismissNotice() Model {
	m.notice.text = ""
	m.notice.seq++
	return m
}

// noticeLine reserves one row under the content so a notification
// never shifts the layout when it appears or expires.
func (m Model) noticeLine() string {
	if m.notice.text == "" {
		return "\n"
	}
	return "  " + zstyle.StatusOK.Render(m.notice.text) + "\n"
}
