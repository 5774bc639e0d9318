package domain

// OutcomeKind enumerates the answers a pairing request can receive.
type OutcomeKind int

const (
	// OutcomeCode means a pairing code was issued.
	OutcomeCode OutcomeKind = iota
	// OutcomeUnavailable means the client could not be initialized.
	OutcomeUnavailable
	// OutcomeExhausted means the connection kept closing until retries ran out.
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCode:
		return "code"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome is the single response delivered for a pairing request.
type Outcome struct {
	Kind OutcomeKind
	Code string // Set for OutcomeCode
	Err  error  // Cause, for logging only
}

// CodeIssued wraps a pairing code.
func CodeIssued(code string) Outcome {
	return Outcome{Kind: OutcomeCode, Code: code}
}

// Unavailable reports an initialization failure.
func Unavailable(err error) Outcome {
	return Outcome{Kind: OutcomeUnavailable, Err: err}
}

// Exhausted reports that retries ran out.
func Exhausted() Outcome {
	return Outcome{Kind: OutcomeExhausted, Err: ErrRetriesExhausted}
}
