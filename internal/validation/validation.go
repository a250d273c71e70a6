// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`\s+`)
	nonPhone  = regexp.MustCompile(`[^\d+]`)
	otpCodeRe = regexp.MustCompile(`^\d{6}$`)
)

// SanitizeText strips HTML tags and control characters from free text and
// collapses whitespace.
func SanitizeText(text string) string {
	out := tagRe.ReplaceAllString(text, "")
	out = strings.ReplaceAll(out, "\x00", "")
	out = spaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only digits and a leading plus sign.
func NormalizePhone(phone string) string {
	return nonPhone.ReplaceAllString(strings.TrimSpace(phone), "")
}

// ValidateEmail checks email shape and length.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("email format is invalid")
	}
	return nil
}

// ValidatePassword checks if a password meets security requirements.
func ValidatePassword(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("password must be at least 10 characters long")
	}
	if len(password) > 120 {
		return fmt.Errorf("password must not exceed 120 characters")
	}
	return nil
}

// ValidatePhone checks a normalized phone number.
func ValidatePhone(phone string) error {
	if len(phone) < 7 {
		return fmt.Errorf("phone must be at least 7 digits")
	}
	if len(phone) > 30 {
		return fmt.Errorf("phone must not exceed 30 characters")
	}
	return nil
}

// ValidateOTPCode checks a one-time verification code.
func ValidateOTPCode(code string) error {
	if !otpCodeRe.MatchString(code) {
		return fmt.Errorf("code must be exactly 6 digits")
	}
	return nil
}
