// Package popup implements the root Bubble Tea model for the zghost
// quick panel. The panel never touches the vault directly: reads and
// writes go through the agent bus, and agent-side changes arrive over
// the vault change stream.
package popup

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zghost/internal/bus"
	"github.com/zarlcorp/zghost/internal/codes"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/vault"
)

type viewID int

const (
	viewHub viewID = iota
	viewEmail
	viewPassword
	viewOTP
	viewSettings
)

// ghostAccent is the panel's accent color.
var ghostAccent = lipgloss.Color("#A78BFA")

// Model is the root popup model.
type Model struct {
	version string
	dataDir string
	logger  *slog.Logger
	bus     *bus.Bus
	sub     *vault.Subscription

	active   viewID
	hub      hubModel
	email    emailModel
	password passwordModel
	otp      otpModel
	settings settingsModel

	// shared state every screen renders from
	current    *identity.Record
	latest     *codes.Code
	cfg        vault.Settings
	configured bool
	generating bool

	notice   notice
	showHelp bool

	// seams for clipboard and the platform opener
	copyFn func(string) error
	openFn func(string) error

	// terminal dimensions
	width  int
	height int
}

// New creates the root popup model. The model owns the vault
// subscription it opens here; call Close once the program exits.
func New(version string, v *vault.Vault, b *bus.Bus, dataDir string, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		version: version,
		dataDir: dataDir,
		logger:  logger,
		bus:     b,
		sub:     v.Subscribe(),
		active:  viewHub,
		hub:     newHubModel(version),
		copyFn:  copyToClipboard,
		openFn:  openDir,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchIdentityCmd(m.bus),
		fetchSettingsCmd(m.bus),
		listenChanges(m.sub),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case navigateMsg:
		return m.navigate(msg.view)

	case copyMsg:
		return m.handleCopy(msg)

	case generateRequestMsg:
		return m.startGenerate()

	case generateResultMsg:
		return m.finishGenerate(msg)

	case identityResultMsg:
		return m.handleIdentityResult(msg)

	case settingsResultMsg:
		return m.handleSettingsResult(msg)

	case openSettingsMsg:
		return m, openSettingsCmd(m.bus)

	case settingsLoadedMsg:
		return m.handleSettingsLoaded(msg)

	case saveSettingsMsg:
		m.settings.saving = true
		return m, saveSettingsCmd(m.bus, msg.settings)

	case settingsSavedMsg:
		return m.handleSettingsSaved(msg)

	case vaultChangeMsg:
		return m.handleVaultChange(msg)

	case noticeExpiredMsg:
		return m.expireNotice(msg), nil
	}

	return m.updateActive(msg)
}

// handleKey intercepts the help overlay and the gate before the
// focused screen sees anything.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		m.showHelp = false
		return m, tea.ClearScreen
	}

	// settings is a form; "?" must type there
	if msg.String() == "?" && m.active != viewSettings {
		m.showHelp = true
		return m, tea.ClearScreen
	}

	if m.gated() {
		return m.gatedKey(msg)
	}

	return m.updateActive(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewHub:
		m.hub, cmd = m.hub.Update(msg)
	case viewEmail:
		m.email, cmd = m.email.Update(msg)
	case viewPassword:
		m.password, cmd = m.password.Update(msg)
	case viewOTP:
		m.otp, cmd = m.otp.Update(msg)
	case viewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	m = m.dismissNotice()

	switch view {
	case viewHub:
		m.active = viewHub
		return m, tea.ClearScreen

	case viewEmail:
		m.active = viewEmail
		return m, tea.ClearScreen

	case viewPassword:
		m.password.revealed = false
		m.active = viewPassword
		return m, tea.ClearScreen

	case viewOTP:
		m.otp.refresh()
		m.active = viewOTP
		return m, tea.Batch(m.otp.Init(), tea.ClearScreen)

	case viewSettings:
		m.settings = newSettingsModel(m.cfg)
		m.active = viewSettings
		return m, tea.Batch(m.settings.Init(), tea.ClearScreen)
	}

	return m, nil
}

// setCurrent swaps the cached identity into every screen that renders it.
func (m *Model) setCurrent(rec *identity.Record) {
	m.current = rec
	m.hub.current = rec
	m.email.rec = rec
	m.password.rec = rec
	m.otp.rec = rec
}

func (m Model) handleCopy(msg copyMsg) (tea.Model, tea.Cmd) {
	if msg.text == "" {
		return m.showNotice("Nothing to copy")
	}
	if err := m.copyFn(msg.text); err != nil {
		m.logger.Warn("popup: clipboard write failed", "err", err)
		return m.showNotice("Copy failed")
	}
	return m.showNotice(msg.label + " copied")
}

// startGenerate clears the visible identity before the agent round
// trip so a stale address can never be copied mid-mint. A second
// request while one is in flight is dropped.
func (m Model) startGenerate() (tea.Model, tea.Cmd) {
	if m.generating {
		return m, nil
	}
	m.generating = true
	m.hub.generating = true
	m.setCurrent(nil)
	return m, generateCmd(m.bus)
}

func (m Model) finishGenerate(msg generateResultMsg) (tea.Model, tea.Cmd) {
	m.generating = false
	m.hub.generating = false

	if msg.err != nil {
		m.logger.Warn("popup: generate failed", "err", msg.err)
		return m.showNotice("Generation failed")
	}
	if !msg.email.Valid() {
		m.logger.Warn("popup: generate returned an unusable record")
		return m.showNotice("Generation failed")
	}

	m.setCurrent(msg.email)
	return m.showNotice("New identity generated!")
}

func (m Model) handleIdentityResult(msg identityResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("popup: identity fetch failed", "err", msg.err)
		return m, nil
	}
	// an absent or malformed record leaves the current state alone
	if !msg.email.Valid() {
		return m, nil
	}
	m.setCurrent(msg.email)
	return m, nil
}

func (m Model) handleSettingsResult(msg settingsResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// gate stays locked until a good blob arrives
		m.logger.Warn("popup: settings fetch failed", "err", msg.err)
		return m, nil
	}
	m.applySettings(msg.settings)
	return m, nil
}

// handleSettingsLoaded answers an explicit settings open. When the
// agent cannot serve the blob the panel opens the data directory with
// the platform opener instead, so the user can still reach the files.
func (m Model) handleSettingsLoaded(msg settingsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("popup: settings load failed", "err", msg.err)
		if err := m.openFn(m.dataDir); err != nil {
			m.logger.Warn("popup: open data dir failed", "dir", m.dataDir, "err", err)
		}
		return m.showNotice("Settings unavailable")
	}

	m.applySettings(msg.settings)
	m.settings = newSettingsModel(msg.settings)
	m.active = viewSettings
	return m, tea.Batch(m.settings.Init(), tea.ClearScreen)
}

func (m Model) handleSettingsSaved(msg settingsSavedMsg) (tea.Model, tea.Cmd) {
	m.settings.saving = false
	if msg.err != nil {
		m.logger.Warn("popup: settings save failed", "err", msg.err)
		return m.showNotice("Save failed")
	}
	m.applySettings(msg.settings)
	return m.showNotice("Settings saved")
}

func (m Model) handleVaultChange(msg vaultChangeMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		// stream closed; stop re-arming
		return m, nil
	}
	m = m.applyChange(msg.change)
	return m, listenChanges(m.sub)
}

func (m Model) View() string {
	if m.showHelp {
		return m.helpView()
	}
	if m.gated() {
		return m.gateView()
	}

	// the hub includes the logo and renders directly
	if m.active == viewHub {
		return m.hub.View() + m.noticeLine()
	}

	var content string
	switch m.active {
	case viewEmail:
		content = m.email.View()
	case viewPassword:
		content = m.password.View()
	case viewOTP:
		content = m.otp.View()
	case viewSettings:
		content = m.settings.View()
	}

	header := zstyle.RenderHeader("zghost", viewTitle(m.active), ghostAccent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(helpFor(m.active))

	return "\n" + header + "\n" + sep + "\n" + content + m.noticeLine() + footer + "\n"
}

func (m Model) helpView() string {
	s := "\n  " + zstyle.Title.Render("zghost") + " " + zstyle.MutedText.Render("keys") + "\n\n"

	rows := []struct{ key, desc string }{
		{"enter", "copy the focused value"},
		{"g", "generate a new identity"},
		{"r", "reveal the password"},
		{"s", "open settings"},
		{"esc", "back to the hub"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}
	for _, r := range rows {
		s += fmt.Sprintf("  %s  %s\n", zstyle.Highlight.Render(fmt.Sprintf("%-6s", r.key)), r.desc)
	}

	s += "\n  " + zstyle.MutedText.Render("press any key to continue") + "\n"
	return s
}

// viewTitle returns the display title for each view.
func viewTitle(id viewID) string {
	switch id {
	case viewEmail:
		return "Email Address"
	case viewPassword:
		return "Password"
	case viewOTP:
		return "One-Time Codes"
	case viewSettings:
		return "Settings"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func helpFor(id viewID) []zstyle.HelpPair {
	switch id {
	case viewEmail:
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "copy"},
			{Key: "g", Desc: "new identity"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewPassword:
		return []zstyle.HelpPair{
			{Key: "r", Desc: "reveal"},
			{Key: "enter", Desc: "copy"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewOTP:
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "copy code"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewSettings:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "ctrl+s", Desc: "save"},
			{Key: "esc", Desc: "back"},
		}
	}
	return nil
}

// Close releases the vault subscription. The program's final model
// owns it, so main calls Close after Run returns.
func (m Model) Close() {
	if m.sub != nil {
		m.sub.Close()
	}
}
