package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxScriptSize is 1MB.
	DefaultMaxScriptSize = 1 << 20
	// EnvMaxScriptSize is the environment variable to override the default.
	EnvMaxScriptSize = "VISTA_MAX_SCRIPT_SIZE"
)

var (
	ErrScriptTooLarge = errors.New("script exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("value contains invalid UTF-8 sequences")
)

// CheckSize rejects scripts above the configured size.
func CheckSize(data []byte) error {
	limit := getMaxScriptSize()
	if len(data) > limit {
		return fmt.Errorf("%w: size=%d limit=%d", ErrScriptTooLarge, len(data), limit)
	}
	return nil
}

// SanitizeValue validates UTF-8 and strips control characters other than
// newline, tab and carriage return from values written into the tree.
func SanitizeValue(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func getMaxScriptSize() int {
	if val := os.Getenv(EnvMaxScriptSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxScriptSize
}
