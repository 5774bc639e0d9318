package logging

import (
	"log/slog"
	"regexp"
)

// DefaultPIIPatterns match attribute keys whose values carry phone numbers.
var DefaultPIIPatterns = []string{`^(session|number|phone|recipient|to)$`}

// visibleDigits is how many trailing digits MaskNumber leaves readable.
const visibleDigits = 4

// Option configures a logger built by NewWithFormat.
type Option func(*options)

type options struct {
	pii []*regexp.Regexp
}

// WithPIIPatterns replaces the key patterns whose values are masked.
// Calling it with no patterns disables masking.
func WithPIIPatterns(patterns ...string) Option {
	return func(o *options) {
		o.pii = compilePatterns(patterns)
	}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// MaskNumber hides every digit of v except the last four. Values with too few
// digits to identify anyone are returned unchanged.
func MaskNumber(v string) string {
	b := []byte(v)
	seen := 0
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '0' || b[i] > '9' {
			continue
		}
		seen++
		if seen > visibleDigits {
			b[i] = '*'
		}
	}
	if seen <= visibleDigits {
		return v
	}
	return string(b)
}

func (o *options) mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	for _, p := range o.pii {
		if p.MatchString(a.Key) {
			return slog.String(a.Key, MaskNumber(a.Value.String()))
		}
	}
	return a
}
