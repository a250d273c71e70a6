package validation

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips tags", "hello <b>world</b>", "hello world"},
		{"strips script", "<script>alert(1)</script>ok", "alert(1)ok"},
		{"collapses whitespace", "a \t\n  b", "a b"},
		{"removes nul", "a\x00b", "ab"},
		{"trims", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone(" +1 (555) 010-2233 "); got != "+15550102233" {
		t.Errorf("unexpected normalized phone: %q", got)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("alice@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"", "nope", "a@b", "spaces in@example.com", strings.Repeat("x", 250) + "@e.com"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("StrongPass123!"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestValidateOTPCode(t *testing.T) {
	if err := ValidateOTPCode("123456"); err != nil {
		t.Errorf("valid code rejected: %v", err)
	}
	for _, bad := range []string{"", "12345", "1234567", "12345a"} {
		if err := ValidateOTPCode(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
