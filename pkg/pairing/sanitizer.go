package pairing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/pairgate/pkg/domain"
)

// MaxNumberSize bounds the raw number a request may carry.
const MaxNumberSize = 64

var (
	ErrInputTooLarge = fmt.Errorf("%w: number exceeds maximum allowed size", domain.ErrInvalidInput)
	ErrInvalidUTF8   = fmt.Errorf("%w: number contains invalid UTF-8 sequences", domain.ErrInvalidInput)
)

// SanitizeNumber enforces the size limit, validates UTF-8 and strips control
// characters from a raw number before it reaches logs or session names.
func SanitizeNumber(input string) (string, error) {
	if len(input) > MaxNumberSize {
		// Reject rather than truncate: a truncated number would pair someone else.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), MaxNumberSize)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	if strings.IndexFunc(input, unicode.IsControl) < 0 {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
