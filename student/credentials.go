package student

import (
	"crypto/rand"
	"math/big"

	"github.com/classdeskhq/classdesk/log"
)

const (
	usernameLength = 12
	passwordLength = 16

	// ambiguous characters (0/O, 1/l/I) are left out so generated handles
	// stay readable
	usernameAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#$%&*+-_"
)

// NewUsername returns a readable random handle, used as a fallback when a
// student account is provisioned without an explicit username.
func NewUsername() string {
	return randomString(usernameAlphabet, usernameLength)
}

// NewPassword returns a random password satisfying the identity provider's
// strength policy: at least one lowercase, uppercase, digit and symbol.
// The value must never be logged; it is returned to the caller exactly once.
func NewPassword() string {
	chars := []byte{
		randomByte(passwordLower),
		randomByte(passwordUpper),
		randomByte(passwordDigits),
		randomByte(passwordSymbols),
	}
	all := passwordLower + passwordUpper + passwordDigits + passwordSymbols
	for len(chars) < passwordLength {
		chars = append(chars, randomByte(all))
	}
	for i := len(chars) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}

func randomString(alphabet string, length int) string {
	chars := make([]byte, length)
	for i := range chars {
		chars[i] = randomByte(alphabet)
	}
	return string(chars)
}

func randomByte(alphabet string) byte {
	return alphabet[randomInt(len(alphabet))]
}

func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the process has no usable entropy
		// source, nothing sane to fall back to
		log.Fatalf("failed reading random data: %v", err)
	}
	return int(n.Int64())
}
