// Package codes extracts one-time verification codes from email and SMS
// message bodies.
package codes

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Kind classifies the shape of an extracted code.
type Kind string

const (
	KindNumeric      Kind = "numeric"
	KindAlphanumeric Kind = "alphanumeric"
)

// Code is a candidate verification code found in text.
type Code struct {
	Value      string    `json:"value"`
	Kind       Kind      `json:"kind"`
	Confidence int       `json:"confidence"`
	FoundAt    time.Time `json:"foundAt,omitempty"`
}

// context keywords that mark a nearby token as a verification code
var keywords = []string{
	"verification",
	"code",
	"otp",
	"one-time",
	"passcode",
	"confirm",
	"pin",
	"security code",
	"2fa",
	"authenticate",
	"verify",
}

// keywordRadius is how far (in bytes) a keyword may sit from a token
// and still count as context.
const keywordRadius = 60

var (
	// numeric codes: 4, 6, or 8 digits on word boundaries
	numericRe = regexp.MustCompile(`\b(\d{4}|\d{6}|\d{8})\b`)
	// alphanumeric codes: 6 chars that must mix letters and digits
	alphanumericRe = regexp.MustCompile(`\b([A-Za-z0-9]{6})\b`)

	// noise stripped before scanning
	urlRe   = regexp.MustCompile(`https?://\S+`)
	emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

	yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Extract returns all candidate codes in text, highest confidence first.
func Extract(text string) []Code {
	if text == "" {
		return nil
	}

	// strip URLs and addresses so their embedded digits don't match
	cleaned := urlRe.ReplaceAllString(text, " ")
	cleaned = emailRe.ReplaceAllString(cleaned, " ")
	lower := strings.ToLower(cleaned)

	seen := make(map[string]bool)
	var found []Code

	for _, span := range numericRe.FindAllStringIndex(cleaned, -1) {
		val := cleaned[span[0]:span[1]]
		if seen[val] || rejectNumeric(cleaned, lower, val, span[0], span[1]) {
			continue
		}
		seen[val] = true
		found = append(found, Code{
			Value:      val,
			Kind:       KindNumeric,
			Confidence: confidence(lower, val, span[0], span[1]),
		})
	}

	for _, span := range alphanumericRe.FindAllStringIndex(cleaned, -1) {
		val := cleaned[span[0]:span[1]]
		if seen[val] || !mixesLettersAndDigits(val) {
			continue
		}
		seen[val] = true
		found = append(found, Code{
			Value:      val,
			Kind:       KindAlphanumeric,
			Confidence: confidence(lower, val, span[0], span[1]),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Confidence > found[j].Confidence
	})

	return found
}

// Best returns the highest-confidence code, if any candidate exists.
func Best(text string) (Code, bool) {
	all := Extract(text)
	if len(all) == 0 {
		return Code{}, false
	}
	return all[0], true
}

// rejectNumeric filters numeric matches that are prices, years,
// timestamps, or fragments of longer digit runs.
func rejectNumeric(text, lower, val string, start, end int) bool {
	if isPriced(text, start) {
		return true
	}

	if len(val) == 4 {
		if looksLikeYear(lower, val, start, end) {
			return true
		}
		if isClockAdjacent(text, start, end) {
			return true
		}
	}

	// fragment of a longer digit run (phone numbers, account numbers)
	if start > 0 && unicode.IsDigit(rune(text[start-1])) {
		return true
	}
	if end < len(text) && unicode.IsDigit(rune(text[end])) {
		return true
	}

	// decimal component (prices like 123.45)
	if end+1 < len(text) && text[end] == '.' && unicode.IsDigit(rune(text[end+1])) {
		return true
	}
	if start >= 2 && text[start-1] == '.' && unicode.IsDigit(rune(text[start-2])) {
		return true
	}

	return false
}

func isPriced(text string, start int) bool {
	if start > 0 && text[start-1] == '$' {
		return true
	}
	lo := start - 2
	if lo < 0 {
		lo = 0
	}
	return strings.Contains(text[lo:start], "$")
}

func looksLikeYear(lower, val string, start, end int) bool {
	if !yearRe.MatchString(val) {
		return false
	}
	ctx := window(lower, start, end, 30)
	for _, w := range []string{"copyright", "(c)", "year", "since", "est.", "founded"} {
		if strings.Contains(ctx, w) {
			return true
		}
	}
	// a bare year with no code keywords nearby is not a code
	return !keywordNear(lower, start, end)
}

func isClockAdjacent(text string, start, end int) bool {
	if end < len(text) && text[end] == ':' {
		return true
	}
	return start > 0 && text[start-1] == ':'
}

// confidence scores a candidate by shape and surrounding context.
func confidence(lower, val string, start, end int) int {
	s := 0

	digits := 0
	for _, r := range val {
		if unicode.IsDigit(r) {
			digits++
		}
	}

	switch {
	case digits == 6 && len(val) == 6:
		// six digits is the dominant verification format
		s += 30
	case digits == 8 && len(val) == 8:
		s += 20
	case digits == 4 && len(val) == 4:
		s += 15
	case len(val) == 6:
		s += 10
	}

	if keywordNear(lower, start, end) {
		s += 50
	}

	// structural clues: token follows "is", ":", or "-"
	prefix := strings.TrimRight(window(lower, start, start, 10), " ")
	if strings.HasSuffix(prefix, ":") || strings.HasSuffix(prefix, "is") || strings.HasSuffix(prefix, "-") {
		s += 20
	}

	if isolated(lower, start, end) {
		s += 10
	}

	return s
}

func keywordNear(lower string, start, end int) bool {
	ctx := window(lower, start, end, keywordRadius)
	for _, kw := range keywords {
		if strings.Contains(ctx, kw) {
			return true
		}
	}
	return false
}

// window returns the text within radius bytes around [start, end).
func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// isolated reports whether the token sits alone between whitespace or
// line boundaries.
func isolated(text string, start, end int) bool {
	before := start == 0 || text[start-1] == '\n' || text[start-1] == ' ' || text[start-1] == '\t'
	after := end >= len(text) || text[end] == '\n' || text[end] == ' ' || text[end] == '\t'
	return before && after
}

// mixesLettersAndDigits rejects all-letter words and all-digit runs;
// alphanumeric codes need both.
func mixesLettersAndDigits(s string) bool {
	hasLetter, hasDigit := false, false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
