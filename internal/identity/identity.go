// Package identity defines the disposable identity record and a
// crypto/rand generator for its parts. No math/rand, no side effects.
package identity

import (
	"strings"
	"time"
)

// Record is one disposable identity as persisted by the agent. Field
// names are fixed by the store's wire format; consumers replace a
// Record wholesale, never field by field.
type Record struct {
	FullEmail  string    `json:"fullEmail"`
	Password   string    `json:"password,omitempty"`
	TOTPSecret string    `json:"totpSecret,omitempty"`
	Persona    string    `json:"persona,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Valid reports whether r is a well-formed record: non-nil with a
// non-empty address. Anything else is treated as absent.
func (r *Record) Valid() bool {
	return r != nil && r.FullEmail != ""
}

// Domain returns the part of the address after the last @, or "".
func (r *Record) Domain() string {
	if r == nil {
		return ""
	}
	i := strings.LastIndexByte(r.FullEmail, '@')
	if i < 0 {
		return ""
	}
	return r.FullEmail[i+1:]
}
