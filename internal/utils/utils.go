package utils

import (
	"math/rand"
	"strings"
	"unicode"
)

// =============================================================================
// WORD HELPERS
// =============================================================================

// GetMaskedWord converts word to underscores for display, keeping spaces.
// "hot dog" becomes "_ _ _   _ _ _".
func GetMaskedWord(word string) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	masked := make([]string, 0, len(runes))
	for _, r := range runes {
		if unicode.IsSpace(r) {
			masked = append(masked, " ")
		} else {
			masked = append(masked, "_")
		}
	}
	return strings.Join(masked, " ")
}

// =============================================================================
// ROOM CODES
// =============================================================================

const roomCodeLength = 4

// GenerateRoomCode returns a random numeric room code.
func GenerateRoomCode(rng *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < roomCodeLength; i++ {
		b.WriteByte(byte('0' + rng.Intn(10)))
	}
	return b.String()
}

// NormalizeRoomCode trims and uppercases user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code is exactly four digits.
func ValidRoomCode(code string) bool {
	if len(code) != roomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
