// Package idgen generates opaque record identifiers.
package idgen

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "1234567890abcdefghijklmnopqrstuvwxyz"

// Identifier lengths per entity kind.
const (
	StoryIDLen  = 12
	EntityIDLen = 14
	OTPLen      = 6
	LinkCodeLen = 8
)

// New returns a random lowercase-alphanumeric identifier of the given length.
func New(length int) string {
	return fromAlphabet(alphabet, length)
}

// StoryID returns a new story identifier.
func StoryID() string {
	return New(StoryIDLen)
}

// EntityID returns a new identifier for users, topics, replies, sanctions
// and audit entries.
func EntityID() string {
	return New(EntityIDLen)
}

// OTP returns a 6-digit one-time verification code.
func OTP() string {
	return fromAlphabet("0123456789", OTPLen)
}

// LinkCode returns an 8-character uppercase Telegram link code.
func LinkCode() string {
	return fromAlphabet("1234567890ABCDEFGHIJKLMNOPQRSTUVWXYZ", LinkCodeLen)
}

func fromAlphabet(chars string, length int) string {
	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure means the process cannot safely continue.
			panic(err)
		}
		out[i] = chars[n.Int64()]
	}
	return string(out)
}
