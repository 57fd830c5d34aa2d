// Package agent is the background half of zghost. It owns all vault
// writes and answers bus requests from the popup; the popup never
// mutates state except by asking.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/zarlcorp/zghost/internal/bus"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/vault"
)

// Minter mints identity records. persona.Generator is the real one.
type Minter interface {
	Record(ctx context.Context, s vault.Settings, domain string) identity.Record
}

// Agent answers bus requests one at a time.
type Agent struct {
	vault  *vault.Vault
	minter Minter
	domain string
}

// New wires an agent to its vault. Generated addresses live on domain.
func New(v *vault.Vault, minter Minter, domain string) *Agent {
	return &Agent{vault: v, minter: minter, domain: domain}
}

// Run serves bus requests until the context ends or the bus closes.
func (a *Agent) Run(ctx context.Context, b *bus.Bus) {
	b.Serve(ctx, a.Handle)
}

// Handle answers one request.
func (a *Agent) Handle(ctx context.Context, req bus.Request) bus.Response {
	switch req.Action {
	case bus.ActionGetCurrentEmail:
		return a.getCurrentEmail()
	case bus.ActionGenerateEmail:
		return a.generateEmail(ctx)
	case bus.ActionGetSettings:
		return a.getSettings()
	case bus.ActionUpdateSettings:
		return a.updateSettings(req)
	default:
		slog.Warn("agent: unknown action", "action", req.Action)
		return bus.Errorf("unknown action %q", req.Action)
	}
}

func (a *Agent) getCurrentEmail() bus.Response {
	rec, ok := a.vault.CurrentEmail()
	if !ok {
		return bus.Response{}
	}
	return bus.Response{Email: &rec}
}

func (a *Agent) generateEmail(ctx context.Context) bus.Response {
	if err := a.vault.ClearCurrentEmail(); err != nil {
		slog.Error("agent: clear current", "err", err)
		return bus.Errorf("clear current identity: %v", err)
	}

	s, _ := a.vault.Settings()
	rec := a.minter.Record(ctx, s, a.domain)
	if !rec.Valid() {
		return bus.Errorf("generated an unusable identity")
	}

	if err := a.vault.SetCurrentEmail(rec); err != nil {
		slog.Error("agent: store identity", "err", err)
		return bus.Errorf("store identity: %v", err)
	}
	slog.Info("agent: generated", "domain", rec.Domain())
	return bus.Response{Email: &rec}
}

func (a *Agent) getSettings() bus.Response {
	s, _ := a.vault.Settings()
	data, err := json.Marshal(s)
	if err != nil {
		return bus.Errorf("encode settings: %v", err)
	}
	return bus.Response{Data: data}
}

func (a *Agent) updateSettings(req bus.Request) bus.Response {
	var s vault.Settings
	if err := bus.DecodePayload(req, &s); err != nil {
		return bus.Errorf("bad settings payload: %v", err)
	}
	if err := a.vault.SetSettings(s); err != nil {
		slog.Error("agent: store settings", "err", err)
		return bus.Errorf("store settings: %v", err)
	}
	slog.Info("agent: settings updated", "llm", s.LLMConfigured())
	return a.getSettings()
}
