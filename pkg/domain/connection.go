package domain

import "fmt"

// ConnectionStatus is the coarse connection state reported by the protocol client.
type ConnectionStatus string

const (
	StatusConnecting ConnectionStatus = "connecting"
	StatusOpen       ConnectionStatus = "open"
	StatusClose      ConnectionStatus = "close"
)

// Disconnect reason codes carried by ConnectionUpdate.StatusCode.
const (
	CodeLoggedOut          = 401
	CodeTempBanned         = 402
	CodeConnectionClosed   = 428
	CodeConnectionReplaced = 440
	CodeRestartRequired    = 515
)

// ConnectionUpdate describes one connection state transition.
type ConnectionUpdate struct {
	Status     ConnectionStatus
	StatusCode int   // Only meaningful when Status is StatusClose
	Err        error // Underlying cause, if the library reported one
}

// Open is a convenience constructor for an open transition.
func Open() ConnectionUpdate {
	return ConnectionUpdate{Status: StatusOpen}
}

// Closed builds a close transition with the given reason code.
func Closed(code int, err error) ConnectionUpdate {
	return ConnectionUpdate{Status: StatusClose, StatusCode: code, Err: err}
}

// IsAuthRejection reports whether the update is a close caused by an explicit logout.
// Retrying such a session cannot succeed.
func (u ConnectionUpdate) IsAuthRejection() bool {
	return u.Status == StatusClose && u.StatusCode == CodeLoggedOut
}

func (u ConnectionUpdate) String() string {
	if u.Status != StatusClose {
		return string(u.Status)
	}
	if u.Err != nil {
		return fmt.Sprintf("close(%d): %v", u.StatusCode, u.Err)
	}
	return fmt.Sprintf("close(%d)", u.StatusCode)
}

// ProtocolVersion is the client version triple advertised to the server.
type ProtocolVersion [3]uint32

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// IsZero reports whether no version was discovered.
func (v ProtocolVersion) IsZero() bool {
	return v == ProtocolVersion{}
}
