package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zghost/internal/bus"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/vault"
)

// fakeMinter returns canned records and remembers what it was asked.
type fakeMinter struct {
	rec      identity.Record
	calls    int
	lastSeen vault.Settings
}

func (f *fakeMinter) Record(_ context.Context, s vault.Settings, _ string) identity.Record {
	f.calls++
	f.lastSeen = s
	return f.rec
}

func mintedRecord() identity.Record {
	return identity.Record{
		FullEmail:  "wisp4821@ghost.ink",
		Password:   "aB3$aB3$aB3$aB3$aB3$",
		TOTPSecret: "JBSWY3DPEHPK3PXP",
		Persona:    "Amber Falcon",
		CreatedAt:  time.Now().UTC(),
	}
}

func newTestAgent(t *testing.T, minter Minter) (*Agent, *vault.Vault) {
	t.Helper()
	fs := zfilesystem.NewMemFS()
	key, err := vault.LoadOrCreateKey(fs)
	if err != nil {
		t.Fatal(err)
	}
	v, err := vault.Open(fs, key, 5)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(v.Close)
	return New(v, minter, "ghost.ink"), v
}

func handle(t *testing.T, a *Agent, action string, payload any) bus.Response {
	t.Helper()
	req := bus.Request{ID: "req-1", Action: action}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		req.Payload = data
	}
	return a.Handle(context.Background(), req)
}

func TestGetCurrentEmailEmpty(t *testing.T) {
	a, _ := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	resp := handle(t, a, bus.ActionGetCurrentEmail, nil)
	if resp.Err() != nil {
		t.Fatal(resp.Err())
	}
	if resp.Email != nil {
		t.Errorf("email = %+v, want nil for empty vault", resp.Email)
	}
}

func TestGetCurrentEmailReturnsStored(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	want := mintedRecord()
	if err := v.SetCurrentEmail(want); err != nil {
		t.Fatal(err)
	}

	resp := handle(t, a, bus.ActionGetCurrentEmail, nil)
	if resp.Email == nil {
		t.Fatal("email should be set")
	}
	if resp.Email.FullEmail != want.FullEmail {
		t.Errorf("FullEmail = %q, want %q", resp.Email.FullEmail, want.FullEmail)
	}
	if resp.Email.Password != want.Password {
		t.Errorf("Password = %q, want %q", resp.Email.Password, want.Password)
	}
}

func TestGenerateEmailStoresRecord(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	resp := handle(t, a, bus.ActionGenerateEmail, nil)
	if resp.Err() != nil {
		t.Fatal(resp.Err())
	}
	if resp.Email == nil || resp.Email.FullEmail != "wisp4821@ghost.ink" {
		t.Fatalf("email = %+v, want wisp4821@ghost.ink", resp.Email)
	}

	stored, ok := v.CurrentEmail()
	if !ok || stored.FullEmail != resp.Email.FullEmail {
		t.Errorf("vault current = %q, want %q", stored.FullEmail, resp.Email.FullEmail)
	}

	entries, err := v.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("history = %d entries, want 0 on first generate", len(entries))
	}
}

func TestGenerateEmailRetiresPrevious(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	old := mintedRecord()
	old.FullEmail = "old9999@ghost.ink"
	if err := v.SetCurrentEmail(old); err != nil {
		t.Fatal(err)
	}

	resp := handle(t, a, bus.ActionGenerateEmail, nil)
	if resp.Err() != nil {
		t.Fatal(resp.Err())
	}

	stored, _ := v.CurrentEmail()
	if stored.FullEmail != "wisp4821@ghost.ink" {
		t.Errorf("current = %q, want the fresh identity", stored.FullEmail)
	}

	entries, err := v.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Record.FullEmail != "old9999@ghost.ink" {
		t.Errorf("history = %+v, want the retired identity", entries)
	}
}

func TestGenerateEmailClearsBeforeStoring(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	if err := v.SetCurrentEmail(mintedRecord()); err != nil {
		t.Fatal(err)
	}

	sub := v.Subscribe()
	defer sub.Close()

	handle(t, a, bus.ActionGenerateEmail, nil)

	first := <-sub.C
	if first.Key != vault.KeyCurrentEmail || len(first.NewValue) != 0 {
		t.Errorf("first change = %+v, want the clear", first)
	}
	second := <-sub.C
	if second.Key != vault.KeyCurrentEmail || len(second.NewValue) == 0 {
		t.Errorf("second change = %+v, want the new identity", second)
	}
}

func TestGenerateEmailPassesSettingsToMinter(t *testing.T) {
	minter := &fakeMinter{rec: mintedRecord()}
	a, v := newTestAgent(t, minter)

	want := vault.Settings{LLMAPIKey: "sk-ghost-abcdef123456", Model: "gpt-4o-mini"}
	if err := v.SetSettings(want); err != nil {
		t.Fatal(err)
	}

	handle(t, a, bus.ActionGenerateEmail, nil)

	if minter.calls != 1 {
		t.Fatalf("minter calls = %d, want 1", minter.calls)
	}
	if minter.lastSeen.LLMAPIKey != want.LLMAPIKey || minter.lastSeen.Model != want.Model {
		t.Errorf("minter saw %+v, want %+v", minter.lastSeen, want)
	}
}

func TestGenerateEmailUnusableRecord(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{})

	resp := handle(t, a, bus.ActionGenerateEmail, nil)
	if resp.Err() == nil {
		t.Fatal("expected an error for an unusable record")
	}
	if _, ok := v.CurrentEmail(); ok {
		t.Error("vault should stay empty after a failed generate")
	}
}

func TestGetSettingsEmpty(t *testing.T) {
	a, _ := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	resp := handle(t, a, bus.ActionGetSettings, nil)
	if resp.Err() != nil {
		t.Fatal(resp.Err())
	}

	var s vault.Settings
	if err := json.Unmarshal(resp.Data, &s); err != nil {
		t.Fatal(err)
	}
	if s.LLMConfigured() {
		t.Error("empty settings should not be configured")
	}
}

func TestUpdateSettingsRoundTrip(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	sub := v.Subscribe()
	defer sub.Close()

	want := vault.Settings{LLMAPIKey: "sk-ghost-abcdef123456", BaseURL: "http://localhost:8080/v1"}
	resp := handle(t, a, bus.ActionUpdateSettings, want)
	if resp.Err() != nil {
		t.Fatal(resp.Err())
	}

	var echoed vault.Settings
	if err := json.Unmarshal(resp.Data, &echoed); err != nil {
		t.Fatal(err)
	}
	if echoed.LLMAPIKey != want.LLMAPIKey {
		t.Errorf("echoed key = %q, want %q", echoed.LLMAPIKey, want.LLMAPIKey)
	}

	stored, ok := v.Settings()
	if !ok || stored.BaseURL != want.BaseURL {
		t.Errorf("stored = %+v, want %+v", stored, want)
	}

	c := <-sub.C
	if c.Key != vault.KeySettings {
		t.Errorf("change key = %q, want %q", c.Key, vault.KeySettings)
	}
}

func TestUpdateSettingsBadPayload(t *testing.T) {
	a, _ := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	resp := a.Handle(context.Background(), bus.Request{
		ID:      "req-bad",
		Action:  bus.ActionUpdateSettings,
		Payload: json.RawMessage(`{"llmApiKey": 5}`),
	})
	if resp.Err() == nil {
		t.Fatal("expected an error for a malformed payload")
	}
}

func TestUnknownAction(t *testing.T) {
	a, _ := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	resp := handle(t, a, "SELF_DESTRUCT", nil)
	if resp.Err() == nil {
		t.Fatal("expected an error for an unknown action")
	}
	if !strings.Contains(resp.Error, "SELF_DESTRUCT") {
		t.Errorf("error = %q, want it to name the action", resp.Error)
	}
}

func TestAgentOverBus(t *testing.T) {
	a, v := newTestAgent(t, &fakeMinter{rec: mintedRecord()})

	b := bus.New()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, b)

	resp, err := b.Call(context.Background(), bus.ActionGenerateEmail, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Email == nil || resp.Email.FullEmail != "wisp4821@ghost.ink" {
		t.Fatalf("email = %+v, want wisp4821@ghost.ink", resp.Email)
	}

	stored, ok := v.CurrentEmail()
	if !ok || stored.FullEmail != resp.Email.FullEmail {
		t.Errorf("vault current = %q, want %q", stored.FullEmail, resp.Email.FullEmail)
	}
}
