package popup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/zghost/internal/bus"
	"github.com/zarlcorp/zghost/internal/codes"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/vault"
)

// Bus calls are in-process hops and settle fast; generation waits on
// a language model round trip, so it gets a looser deadline.
const (
	callTimeout     = 3 * time.Second
	generateTimeout = 15 * time.Second
)

// identityResultMsg carries the reply to the mount-time identity fetch.
type identityResultMsg struct {
	email *identity.Record
	err   error
}

// generateResultMsg carries the reply to a generate request.
type generateResultMsg struct {
	email *identity.Record
	err   error
}

// settingsResultMsg carries the reply to the mount-time settings fetch.
type settingsResultMsg struct {
	settings vault.Settings
	err      error
}

// settingsLoadedMsg carries the reply to an explicit settings open.
type settingsLoadedMsg struct {
	settings vault.Settings
	err      error
}

// saveSettingsMsg asks the root to persist edited settings.
type saveSettingsMsg struct {
	settings vault.Settings
}

// settingsSavedMsg carries the agent's echo of the saved blob.
type settingsSavedMsg struct {
	settings vault.Settings
	err      error
}

// vaultChangeMsg is one delivery from the vault change stream. ok
// goes false when the stream closes.
type vaultChangeMsg struct {
	change vault.Change
	ok     bool
}

func fetchIdentityCmd(b *bus.Bus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		resp, err := b.Call(ctx, bus.ActionGetCurrentEmail, nil)
		if err != nil {
			return identityResultMsg{err: err}
		}
		if err := resp.Err(); err != nil {
			return identityResultMsg{err: err}
		}
		return identityResultMsg{email: resp.Email}
	}
}

func generateCmd(b *bus.Bus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()

		resp, err := b.Call(ctx, bus.ActionGenerateEmail, nil)
		if err != nil {
			return generateResultMsg{err: err}
		}
		if err := resp.Err(); err != nil {
			return generateResultMsg{err: err}
		}
		return generateResultMsg{email: resp.Email}
	}
}

func fetchSettingsCmd(b *bus.Bus) tea.Cmd {
	return func() tea.Msg {
		s, err := getSettings(b)
		return settingsResultMsg{settings: s, err: err}
	}
}

func openSettingsCmd(b *bus.Bus) tea.Cmd {
	return func() tea.Msg {
		s, err := getSettings(b)
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func saveSettingsCmd(b *bus.Bus, s vault.Settings) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		resp, err := b.Call(ctx, bus.ActionUpdateSettings, s)
		if err != nil {
			return settingsSavedMsg{err: err}
		}
		if err := resp.Err(); err != nil {
			return settingsSavedMsg{err: err}
		}

		var saved vault.Settings
		if err := json.Unmarshal(resp.Data, &saved); err != nil {
			return settingsSavedMsg{err: fmt.Errorf("decode settings echo: %w", err)}
		}
		return settingsSavedMsg{settings: saved}
	}
}

func getSettings(b *bus.Bus) (vault.Settings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	resp, err := b.Call(ctx, bus.ActionGetSettings, nil)
	if err != nil {
		return vault.Settings{}, err
	}
	if err := resp.Err(); err != nil {
		return vault.Settings{}, err
	}

	var s vault.Settings
	if err := json.Unmarshal(resp.Data, &s); err != nil {
		return vault.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// listenChanges waits for the next vault change. The root re-arms it
// after every delivery, so exactly one listener is ever outstanding.
func listenChanges(sub *vault.Subscription) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-sub.C
		return vaultChangeMsg{change: c, ok: ok}
	}
}

// applyChange folds one vault change into the model. A push always
// overwrites whatever the screens show; a call response that lands
// later may in turn overwrite the push. Last writer wins.
func (m Model) applyChange(c vault.Change) Model {
	switch c.Key {
	case vault.KeyCurrentEmail:
		m.setCurrent(decodeRecord(c.NewValue))

	case vault.KeySettings:
		var s vault.Settings
		if len(c.NewValue) == 0 || json.Unmarshal(c.NewValue, &s) != nil {
			m.applySettings(vault.Settings{})
			return m
		}
		m.applySettings(s)

	case vault.KeyLatestCode:
		var code codes.Code
		if len(c.NewValue) == 0 || json.Unmarshal(c.NewValue, &code) != nil {
			return m
		}
		m.latest = &code
		m.otp.latest = &code
	}

	return m
}

// decodeRecord parses a pushed identity value. Deletions arrive with
// no new value; those and undecodable payloads both read as absent.
func decodeRecord(raw json.RawMessage) *identity.Record {
	if len(raw) == 0 {
		return nil
	}
	var rec identity.Record
	if err := json.Unmarshal(raw, &rec); err != nil || !rec.Valid() {
		return nil
	}
	return &rec
}
