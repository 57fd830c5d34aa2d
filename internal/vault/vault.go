// Package vault is the encrypted state shared by the popup and the
// agent: the active identity, the settings blob, the latest captured
// verification code, and a capped history of retired identities.
//
// Every mutation is pushed to subscribers as a Change, so the popup
// can track agent-side writes without polling the store.
package vault

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zghost/internal/codes"
	"github.com/zarlcorp/zghost/internal/identity"
)

// Store keys. Change.Key carries one of these.
const (
	KeyCurrentEmail = "currentEmail"
	KeySettings     = "settings"
	KeyLatestCode   = "latestCode"
)

// subBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses its oldest pending updates
// rather than blocking the writer.
const subBuffer = 16

// Settings is the mutable configuration blob the popup watches. The
// LLM features unlock only when the API key looks usable.
type Settings struct {
	LLMAPIKey string `json:"llmApiKey"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
}

// LLMConfigured reports whether the API key is long enough to be
// real. Anything else fails closed.
func (s Settings) LLMConfigured() bool {
	return len(s.LLMAPIKey) > 10
}

// Change is one push update: the key that changed and both values as
// raw JSON. A nil OldValue means the key was unset before; a nil
// NewValue means it was deleted.
type Change struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Entry is a retired identity kept in history.
type Entry struct {
	ID        string          `json:"id"`
	Record    identity.Record `json:"record"`
	RetiredAt time.Time       `json:"retiredAt"`
}

// stateEnvelope wraps each stored value so the state collection can
// hold different types under different keys.
type stateEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Vault owns the encrypted collections and the change broadcast.
// Mutations are serialized internally; the agent and the popup may
// share one Vault across goroutines.
type Vault struct {
	store        *zstore.Store
	state        *zstore.Collection[stateEnvelope]
	history      *zstore.Collection[Entry]
	historyLimit int

	mu sync.Mutex // serializes mutations

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int

	closeOnce sync.Once
}

// Open unlocks the vault with the given key bytes. historyLimit caps
// the retired-identity collection; zero disables history entirely.
func Open(fsys zfilesystem.ReadWriteFileFS, key []byte, historyLimit int) (*Vault, error) {
	s, err := zstore.Open(fsys, key)
	if err != nil {
		return nil, fmt.Errorf("vault: open: %w", err)
	}

	state, err := zstore.NewCollection[stateEnvelope](s, "state")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("vault: state collection: %w", err)
	}

	history, err := zstore.NewCollection[Entry](s, "history")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("vault: history collection: %w", err)
	}

	return &Vault{
		store:        s,
		state:        state,
		history:      history,
		historyLimit: historyLimit,
		subs:         make(map[int]chan Change),
	}, nil
}

// Close releases every subscription and the underlying store. Pending
// channel reads observe the close. Safe to call more than once.
func (v *Vault) Close() {
	v.closeOnce.Do(func() {
		v.subMu.Lock()
		for id, ch := range v.subs {
			delete(v.subs, id)
			close(ch)
		}
		v.subMu.Unlock()

		if v.store != nil {
			v.store.Close()
		}
	})
}

// CurrentEmail returns the active identity. ok is false when none is
// set or the stored blob does not decode.
func (v *Vault) CurrentEmail() (identity.Record, bool) {
	return getState[identity.Record](v, KeyCurrentEmail)
}

// SetCurrentEmail replaces the active identity wholesale and retires
// the previous one to history.
func (v *Vault) SetCurrentEmail(rec identity.Record) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, err := v.putState(KeyCurrentEmail, rec)
	if err != nil {
		return err
	}
	return v.retirePrev(prev)
}

// ClearCurrentEmail removes the active identity, retiring it to
// history. Clearing an already-empty slot is a no-op.
func (v *Vault) ClearCurrentEmail() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, err := v.deleteState(KeyCurrentEmail)
	if err != nil {
		return err
	}
	return v.retirePrev(prev)
}

// Settings returns the stored settings blob. ok is false when none
// has been written yet.
func (v *Vault) Settings() (Settings, bool) {
	return getState[Settings](v, KeySettings)
}

// SetSettings replaces the settings blob.
func (v *Vault) SetSettings(s Settings) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := v.putState(KeySettings, s)
	return err
}

// LatestCode returns the most recently captured verification code.
func (v *Vault) LatestCode() (codes.Code, bool) {
	return getState[codes.Code](v, KeyLatestCode)
}

// SetLatestCode records a freshly captured verification code.
func (v *Vault) SetLatestCode(c codes.Code) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := v.putState(KeyLatestCode, c)
	return err
}

// History lists retired identities, newest first.
func (v *Vault) History() ([]Entry, error) {
	entries, err := v.history.List()
	if err != nil {
		return nil, fmt.Errorf("vault: list history: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RetiredAt.After(entries[j].RetiredAt)
	})
	return entries, nil
}

// ClearHistory deletes every retired identity.
func (v *Vault) ClearHistory() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.history.List()
	if err != nil {
		return fmt.Errorf("vault: list history: %w", err)
	}
	for _, e := range entries {
		if err := v.history.Delete(e.ID); err != nil {
			return fmt.Errorf("vault: clear history: %w", err)
		}
	}
	return nil
}

// Subscription is one listener's handle on the change stream. Close
// releases it; the channel is closed afterwards.
type Subscription struct {
	C  <-chan Change
	id int
	v  *Vault
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.v.drop(s.id)
}

// Subscribe registers a listener for future changes. The caller must
// Close the subscription when done with it.
func (v *Vault) Subscribe() *Subscription {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	ch := make(chan Change, subBuffer)
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	return &Subscription{C: ch, id: id, v: v}
}

func (v *Vault) drop(id int) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	ch, ok := v.subs[id]
	if !ok {
		return
	}
	delete(v.subs, id)
	close(ch)
}

func (v *Vault) broadcast(c Change) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	for id, ch := range v.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		// Full buffer: evict the oldest change so the subscriber
		// converges on recent state instead of stale history.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
		slog.Warn("vault: subscriber lagging, dropped oldest change", "subscriber", id, "key", c.Key)
	}
}

// putState stores val under key, broadcasts the change, and returns
// the previous raw value (nil if the key was unset).
func (v *Vault) putState(key string, val any) (json.RawMessage, error) {
	prev := v.rawState(key)

	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("vault: encode %s: %w", key, err)
	}
	if err := v.state.Put(key, stateEnvelope{Data: data}); err != nil {
		return nil, fmt.Errorf("vault: put %s: %w", key, err)
	}

	v.broadcast(Change{Key: key, OldValue: prev, NewValue: data})
	return prev, nil
}

// deleteState removes key, broadcasts the change, and returns the
// previous raw value. Deleting an unset key broadcasts nothing.
func (v *Vault) deleteState(key string) (json.RawMessage, error) {
	prev := v.rawState(key)
	if prev == nil {
		return nil, nil
	}
	if err := v.state.Delete(key); err != nil {
		return nil, fmt.Errorf("vault: delete %s: %w", key, err)
	}

	v.broadcast(Change{Key: key, OldValue: prev})
	return prev, nil
}

func (v *Vault) rawState(key string) json.RawMessage {
	env, err := v.state.Get(key)
	if err != nil {
		return nil
	}
	return env.Data
}

// retirePrev appends the previous identity blob to history, if it
// decodes to a usable record.
func (v *Vault) retirePrev(prev json.RawMessage) error {
	if prev == nil || v.historyLimit == 0 {
		return nil
	}
	var old identity.Record
	if err := json.Unmarshal(prev, &old); err != nil || !old.Valid() {
		return nil
	}

	now := time.Now().UTC()
	e := Entry{ID: newEntryID(now), Record: old, RetiredAt: now}
	if err := v.history.Put(e.ID, e); err != nil {
		return fmt.Errorf("vault: retire %s: %w", old.FullEmail, err)
	}
	return v.trimHistory()
}

// trimHistory drops the oldest entries beyond the configured limit.
func (v *Vault) trimHistory() error {
	entries, err := v.history.List()
	if err != nil {
		return fmt.Errorf("vault: list history: %w", err)
	}
	if len(entries) <= v.historyLimit {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RetiredAt.After(entries[j].RetiredAt)
	})
	for _, e := range entries[v.historyLimit:] {
		if err := v.history.Delete(e.ID); err != nil {
			return fmt.Errorf("vault: trim history: %w", err)
		}
	}
	return nil
}

// newEntryID builds a unique history key. The random suffix keeps two
// retirements in the same nanosecond from colliding.
func newEntryID(t time.Time) string {
	suffix, err := zcrypto.RandBytes(4)
	if err != nil {
		return strconv.FormatInt(t.UnixNano(), 10)
	}
	return strconv.FormatInt(t.UnixNano(), 10) + "-" + hex.EncodeToString(suffix)
}

// getState reads and decodes the value under key. ok is false when
// the key is unset or the blob does not decode.
func getState[T any](v *Vault, key string) (T, bool) {
	var val T
	env, err := v.state.Get(key)
	if err != nil {
		return val, false
	}
	if err := json.Unmarshal(env.Data, &val); err != nil {
		var zero T
		return zero, false
	}
	return val, true
}
