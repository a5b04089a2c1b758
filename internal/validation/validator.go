package validation

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/mnemonic"
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// minShareLen is the encoding of a share with one-byte x and an empty y.
const minShareLen = 2*5 + 1

func ValidateHex(input string) error {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return fmt.Errorf("hex string cannot be empty")
	}

	if len(input)%2 != 0 {
		return fmt.Errorf("hex string must have even length")
	}

	if !hexPattern.MatchString(input) {
		return fmt.Errorf("invalid hex characters")
	}

	return nil
}

// DecodeHex validates and decodes a hex string, ignoring surrounding space
// and an optional 0x prefix.
func DecodeHex(input string) ([]byte, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
	if err := ValidateHex(input); err != nil {
		return nil, err
	}
	return hex.DecodeString(input)
}

// DecodeShare decodes a hex encoded share without parsing its fields.
func DecodeShare(share string) ([]byte, error) {
	data, err := DecodeHex(share)
	if err != nil {
		return nil, fmt.Errorf("invalid share format: %w", err)
	}

	if len(data) < minShareLen {
		return nil, fmt.Errorf("share is too short")
	}

	return data, nil
}

func ValidateShare(share string) error {
	_, err := DecodeShare(share)
	return err
}

func ValidateMnemonic(words string) error {
	words = strings.TrimSpace(words)
	if words == "" {
		return fmt.Errorf("mnemonic cannot be empty")
	}

	wordList := strings.Fields(words)
	if !mnemonic.ValidateWordCount(len(wordList)) {
		return fmt.Errorf("mnemonic must have 12, 15, 18, 21, or 24 words (got %d)", len(wordList))
	}

	for i, word := range wordList {
		if len(word) < 3 || len(word) > 8 {
			return fmt.Errorf("word %d has invalid length: %s", i+1, word)
		}

		for _, ch := range word {
			if ch < 'a' || ch > 'z' {
				return fmt.Errorf("word %d contains invalid characters: %s", i+1, word)
			}
		}
	}

	return nil
}

// ValidateSplitParams checks share count, threshold and modulus size before
// any prime search starts.
func ValidateSplitParams(shares, threshold, modulusBits int) error {
	if shares < 2 || uint64(shares) > math.MaxUint32 {
		return fmt.Errorf("shares must be between 2 and %d (got %d)", uint32(math.MaxUint32), shares)
	}

	if threshold < 2 || threshold > shares {
		return fmt.Errorf("threshold must be between 2 and %d (got %d)", shares, threshold)
	}

	if _, err := field.ParseModulusSize(modulusBits); err != nil {
		return err
	}

	return nil
}

// ValidateSecretSize checks that a secret of n bytes fits the modulus.
func ValidateSecretSize(n, modulusBits int) error {
	size, err := field.ParseModulusSize(modulusBits)
	if err != nil {
		return err
	}
	if n > size.MaxSecretLen() {
		return fmt.Errorf("secret is %d bytes, a %d-bit modulus holds at most %d", n, modulusBits, size.MaxSecretLen())
	}
	return nil
}

func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters", minLength)
	}

	if len(password) > 256 {
		return fmt.Errorf("password too long (max 256 characters)")
	}

	for i, ch := range password {
		if ch == 0 {
			return fmt.Errorf("password contains null character at position %d", i)
		}
	}

	return nil
}

func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	lines := strings.Split(input, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	return strings.Join(lines, "\n")
}
