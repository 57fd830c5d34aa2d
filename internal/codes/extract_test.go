package codes

import "testing"

func TestBestPicksKeywordAdjacentCode(t *testing.T) {
	text := "Your verification code is 482916. This message expires in 10 minutes."

	code, ok := Best(text)
	if !ok {
		t.Fatal("should find a code")
	}
	if code.Value != "482916" {
		t.Errorf("value = %q, want %q", code.Value, "482916")
	}
	if code.Kind != KindNumeric {
		t.Errorf("kind = %q, want numeric", code.Kind)
	}
	if code.Confidence < 80 {
		t.Errorf("confidence = %d, want keyword + format boost (>= 80)", code.Confidence)
	}
}

func TestBestPrefersKeywordContext(t *testing.T) {
	// 555123 sits far from any keyword; 918273 sits next to "code"
	text := "ref 555123 appears in an unrelated line that keeps going for quite a while.\n\nYour code: 918273"

	code, ok := Best(text)
	if !ok {
		t.Fatal("should find a code")
	}
	if code.Value != "918273" {
		t.Errorf("value = %q, want the keyword-adjacent 918273", code.Value)
	}
}

func TestExtractEmptyText(t *testing.T) {
	if got := Extract(""); got != nil {
		t.Errorf("Extract(\"\") = %v, want nil", got)
	}
	if _, ok := Best(""); ok {
		t.Error("Best(\"\") should report no code")
	}
}

func TestExtractAlphanumeric(t *testing.T) {
	text := "Use one-time passcode A7K2P9 to sign in."

	code, ok := Best(text)
	if !ok {
		t.Fatal("should find a code")
	}
	if code.Value != "A7K2P9" {
		t.Errorf("value = %q, want %q", code.Value, "A7K2P9")
	}
	if code.Kind != KindAlphanumeric {
		t.Errorf("kind = %q, want alphanumeric", code.Kind)
	}
}

func TestExtractSkipsAllLetterWords(t *testing.T) {
	text := "please verify wallet before Monday"
	for _, c := range Extract(text) {
		if c.Value == "wallet" || c.Value == "verify" || c.Value == "before" || c.Value == "Monday" {
			t.Errorf("plain word %q should not be a candidate", c.Value)
		}
	}
}

func TestExtractFilters(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reject string
	}{
		{"price", "Total charged: $4829 to your card", "4829"},
		{"decimal", "Amount due 1234.56 by Friday", "1234"},
		{"copyright year", "Copyright 2024 Example Corp", "2024"},
		{"timestamp", "Sent at 12:3456", "3456"},
		{"digit run fragment", "Call 5551234567 for help", "5512"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range Extract(tt.text) {
				if c.Value == tt.reject {
					t.Errorf("%q should have been filtered from %q", tt.reject, tt.text)
				}
			}
		})
	}
}

func TestExtractYearWithKeywordKept(t *testing.T) {
	// looks like a year, but keyword context says otherwise
	text := "Your PIN is 2046"

	code, ok := Best(text)
	if !ok {
		t.Fatal("keyword-adjacent 4-digit code should survive the year filter")
	}
	if code.Value != "2046" {
		t.Errorf("value = %q, want %q", code.Value, "2046")
	}
}

func TestExtractStripsURLDigits(t *testing.T) {
	text := "Confirm at https://example.com/t/483920 or enter the code 771122"

	code, ok := Best(text)
	if !ok {
		t.Fatal("should find a code")
	}
	if code.Value != "771122" {
		t.Errorf("value = %q, want %q (URL digits stripped)", code.Value, "771122")
	}
}

func TestExtractDeduplicates(t *testing.T) {
	text := "code 482916, repeated below as 482916"

	n := 0
	for _, c := range Extract(text) {
		if c.Value == "482916" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("code counted %d times, want 1", n)
	}
}

func TestExtractOrderedByConfidence(t *testing.T) {
	text := "ref 4444 somewhere. Your security code: 662211"

	all := Extract(text)
	if len(all) < 2 {
		t.Skipf("expected at least two candidates, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Confidence > all[i-1].Confidence {
			t.Errorf("candidates out of order at %d: %d > %d", i, all[i].Confidence, all[i-1].Confidence)
		}
	}
}
