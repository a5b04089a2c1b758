// Package mnemonic renders short secrets as BIP-39 word lists and back, so a
// generated or recovered key can be written down by hand.
package mnemonic

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

const (
	MinEntropyBits = 128
	MaxEntropyBits = 256
)

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
	ErrInvalidEntropy  = errors.New("invalid entropy length")
)

// Encodable reports whether a secret of n bytes has a mnemonic form.
func Encodable(n int) bool {
	return n*8 >= MinEntropyBits && n*8 <= MaxEntropyBits && n%4 == 0
}

// Generate draws bits of entropy from src and returns it with its phrase.
func Generate(src random.Source, bits int) ([]byte, string, error) {
	if bits < MinEntropyBits || bits > MaxEntropyBits || bits%32 != 0 {
		return nil, "", fmt.Errorf("%w: entropy bits must be a multiple of 32 between %d and %d, got %d",
			ErrInvalidEntropy, MinEntropyBits, MaxEntropyBits, bits)
	}
	if src == nil {
		src = random.Default
	}

	entropy := src.NextBytes(bits / 8)
	words, err := Encode(entropy)
	if err != nil {
		secure.Zero(entropy)
		return nil, "", err
	}
	return entropy, words, nil
}

// Encode returns the phrase for secret.
func Encode(secret []byte) (string, error) {
	if !Encodable(len(secret)) {
		return "", fmt.Errorf("%w: %d bytes, need 16 to 32 in steps of 4", ErrInvalidEntropy, len(secret))
	}

	words, err := bip39.NewMnemonic(secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return words, nil
}

// Decode validates a phrase and returns the secret it encodes. Extra
// whitespace between words is ignored.
func Decode(words string) ([]byte, error) {
	words = Normalize(words)
	if !ValidateWordCount(len(strings.Fields(words))) || !bip39.IsMnemonicValid(words) {
		return nil, ErrInvalidMnemonic
	}

	entropy, err := bip39.EntropyFromMnemonic(words)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return entropy, nil
}

// Normalize lowercases the phrase and collapses whitespace.
func Normalize(words string) string {
	return strings.Join(strings.Fields(strings.ToLower(words)), " ")
}

// Checksum is a short hex tag of the encoded entropy, handy for confirming a
// phrase was copied correctly without repeating it.
func Checksum(words string) (string, error) {
	entropy, err := Decode(words)
	if err != nil {
		return "", err
	}
	defer secure.Zero(entropy)

	h := sha256.Sum256(entropy)
	return hex.EncodeToString(h[:4]), nil
}

func ValidateWordCount(count int) bool {
	switch count {
	case 12, 15, 18, 21, 24:
		return true
	}
	return false
}

func EntropyBitsFromWordCount(wordCount int) (int, error) {
	if !ValidateWordCount(wordCount) {
		return 0, fmt.Errorf("invalid word count: %d", wordCount)
	}
	return wordCount / 3 * 32, nil
}
