// Package validation checks and sanitizes user-supplied input: vehicle
// display names and policy scripts.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits.
const (
	MaxNameLen    = 32
	MaxScriptSize = 64 * 1024
)

var (
	// ErrInvalidName is wrapped by every display-name rejection.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidScript is wrapped by every script rejection.
	ErrInvalidScript = errors.New("invalid script")
)

// Alphanumerics, spaces, hyphens, underscores and a little punctuation. This
// keeps names printable on a terminal scoreboard.
var validNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.()]+$`)

// ValidateName validates a vehicle display name and returns it trimmed.
func ValidateName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if len(name) > MaxNameLen {
		return "", fmt.Errorf("%w: name too long: %d characters (max %d)", ErrInvalidName, len(name), MaxNameLen)
	}

	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name contains invalid UTF-8 characters", ErrInvalidName)
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name cannot be only whitespace", ErrInvalidName)
	}

	// Control characters first, so the message is specific
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: name contains control characters", ErrInvalidName)
		}
	}

	if !validNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("%w: name contains invalid characters (only alphanumeric, spaces, hyphens, underscores, and basic punctuation allowed)", ErrInvalidName)
	}

	return trimmed, nil
}

// ValidateScript checks a policy script's size and encoding before it is
// handed to the interpreter.
func ValidateScript(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: script is empty", ErrInvalidScript)
	}
	if len(source) > MaxScriptSize {
		return fmt.Errorf("%w: script too large: %d bytes (max %d)", ErrInvalidScript, len(source), MaxScriptSize)
	}
	if !utf8.ValidString(source) {
		return fmt.Errorf("%w: script contains invalid UTF-8", ErrInvalidScript)
	}
	if strings.ContainsRune(source, 0) {
		return fmt.Errorf("%w: script contains NUL bytes", ErrInvalidScript)
	}
	return nil
}
