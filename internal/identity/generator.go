package identity

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/zarlcorp/core/pkg/zcrypto"
)

// password character classes
const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	symbolChars  = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	allPassChars = lowerChars + upperChars + digitChars + symbolChars

	defaultPasswordLen = 20

	// totpSecretBytes is 160 bits per RFC 4226's recommended minimum.
	totpSecretBytes = 20
)

// Generator produces random identity parts using crypto/rand.
type Generator struct{}

// New creates a generator.
func New() *Generator {
	return &Generator{}
}

// Record assembles a complete identity at the given domain.
func (g *Generator) Record(domain string) Record {
	adj, noun := g.words()
	return Record{
		FullEmail:  g.address(adj, noun, domain),
		Password:   g.Password(defaultPasswordLen),
		TOTPSecret: g.TOTPSecret(),
		Persona:    g.persona(adj, noun),
		CreatedAt:  time.Now(),
	}
}

// Address generates an address in the form <adjective><noun><4digits>@<domain>.
func (g *Generator) Address(domain string) string {
	adj, noun := g.words()
	return g.address(adj, noun, domain)
}

func (g *Generator) address(adj, noun, domain string) string {
	if domain == "" {
		domain = defaultDomain
	}
	digits := fmt.Sprintf("%04d", randIntn(10000))
	return adj + noun + digits + "@" + domain
}

// persona builds a display name like "Quiet Lantern" from the same
// word pair the address uses.
func (g *Generator) persona(adj, noun string) string {
	return capitalize(adj) + " " + capitalize(noun)
}

func (g *Generator) words() (adj, noun string) {
	return pick(adjectives), pick(nouns)
}

// Password generates a password of the given length containing at least
// one character from each class (lower, upper, digit, symbol).
func (g *Generator) Password(length int) string {
	if length < 4 {
		length = 4
	}

	buf := make([]byte, length)

	// guarantee one from each class
	buf[0] = pickByte(lowerChars)
	buf[1] = pickByte(upperChars)
	buf[2] = pickByte(digitChars)
	buf[3] = pickByte(symbolChars)

	for i := 4; i < length; i++ {
		buf[i] = pickByte(allPassChars)
	}

	// shuffle using Fisher-Yates
	for i := length - 1; i > 0; i-- {
		j := randIntn(i + 1)
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}

// TOTPSecret generates a fresh base32 TOTP secret without padding.
func (g *Generator) TOTPSecret() string {
	b, err := zcrypto.RandBytes(totpSecretBytes)
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pick returns a random element from a string slice.
func pick(s []string) string {
	return s[randIntn(len(s))]
}

// pickByte returns a random byte from a string.
func pickByte(s string) byte {
	return s[randIntn(len(s))]
}

// randIntn returns a cryptographically random int in [0, n).
func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
