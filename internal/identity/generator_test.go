package identity

import (
	"encoding/base32"
	"regexp"
	"strings"
	"testing"
)

var addressRe = regexp.MustCompile(`^[a-z]+\d{4}@[a-z.]+$`)

func TestAddressFormat(t *testing.T) {
	g := New()
	for i := 0; i < 20; i++ {
		addr := g.Address("")
		if !addressRe.MatchString(addr) {
			t.Errorf("address %q does not match expected format", addr)
		}
		if !strings.HasSuffix(addr, "@"+defaultDomain) {
			t.Errorf("address %q should use default domain", addr)
		}
	}
}

func TestAddressCustomDomain(t *testing.T) {
	g := New()
	addr := g.Address("b.ghost")
	if !strings.HasSuffix(addr, "@b.ghost") {
		t.Errorf("address %q should end in @b.ghost", addr)
	}
}

func TestPasswordLength(t *testing.T) {
	g := New()
	for _, n := range []int{4, 12, 20, 64} {
		pw := g.Password(n)
		if len(pw) != n {
			t.Errorf("Password(%d) length = %d", n, len(pw))
		}
	}
}

func TestPasswordMinimumLength(t *testing.T) {
	g := New()
	if got := len(g.Password(1)); got != 4 {
		t.Errorf("Password(1) length = %d, want 4 (clamped)", got)
	}
}

func TestPasswordContainsAllClasses(t *testing.T) {
	g := New()
	for i := 0; i < 20; i++ {
		pw := g.Password(defaultPasswordLen)
		if !strings.ContainsAny(pw, lowerChars) {
			t.Errorf("password %q missing lowercase", pw)
		}
		if !strings.ContainsAny(pw, upperChars) {
			t.Errorf("password %q missing uppercase", pw)
		}
		if !strings.ContainsAny(pw, digitChars) {
			t.Errorf("password %q missing digit", pw)
		}
		if !strings.ContainsAny(pw, symbolChars) {
			t.Errorf("password %q missing symbol", pw)
		}
	}
}

func TestPasswordsDiffer(t *testing.T) {
	g := New()
	a := g.Password(defaultPasswordLen)
	b := g.Password(defaultPasswordLen)
	if a == b {
		t.Error("two generated passwords should not match")
	}
}

func TestTOTPSecretDecodes(t *testing.T) {
	g := New()
	secret := g.TOTPSecret()

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		t.Fatalf("secret %q is not valid base32: %v", secret, err)
	}
	if len(raw) != totpSecretBytes {
		t.Errorf("secret decodes to %d bytes, want %d", len(raw), totpSecretBytes)
	}
}

func TestRecordComplete(t *testing.T) {
	g := New()
	rec := g.Record("b.ghost")

	if !rec.Valid() {
		t.Fatal("generated record should be valid")
	}
	if rec.Domain() != "b.ghost" {
		t.Errorf("domain = %q, want %q", rec.Domain(), "b.ghost")
	}
	if rec.Password == "" {
		t.Error("record should carry a password")
	}
	if rec.TOTPSecret == "" {
		t.Error("record should carry a totp secret")
	}
	if rec.Persona == "" {
		t.Error("record should carry a persona name")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("record should carry a creation time")
	}
}

func TestRecordValid(t *testing.T) {
	var nilRec *Record
	if nilRec.Valid() {
		t.Error("nil record should not be valid")
	}

	empty := &Record{}
	if empty.Valid() {
		t.Error("record without address should not be valid")
	}

	ok := &Record{FullEmail: "a@b.ghost"}
	if !ok.Valid() {
		t.Error("record with address should be valid")
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"a@b.ghost", "b.ghost"},
		{"noat", ""},
		{"", ""},
	}

	for _, tt := range tests {
		r := &Record{FullEmail: tt.addr}
		if got := r.Domain(); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestPersonaCapitalized(t *testing.T) {
	g := New()
	rec := g.Record("")
	parts := strings.Fields(rec.Persona)
	if len(parts) != 2 {
		t.Fatalf("persona %q should be two words", rec.Persona)
	}
	for _, p := range parts {
		if p[0] < 'A' || p[0] > 'Z' {
			t.Errorf("persona word %q should be capitalized", p)
		}
	}
}
