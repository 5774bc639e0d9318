package ports

import (
	"context"

	"github.com/aretw0/pairgate/pkg/domain"
)

// Client is the capability surface the pairing controller needs from the
// wrapped protocol library. Handlers may be invoked from any goroutine.
type Client interface {
	// Connect opens the connection. Progress is reported via OnConnectionUpdate.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and releases the auth state backing store.
	// It is safe to call more than once.
	Disconnect()

	// Registered reports whether the loaded auth state is already paired.
	Registered() bool

	// RequestPairingCode asks the server for a code to be typed on the phone.
	// phone must contain digits only.
	RequestPairingCode(ctx context.Context, phone string) (string, error)

	// SendText delivers a plain text message to a normalized identity.
	SendText(ctx context.Context, to string, text string) error

	// OnCredentialsUpdate registers a handler fired whenever the credentials change.
	OnCredentialsUpdate(fn func(domain.Credentials))

	// OnConnectionUpdate registers a handler fired on every connection transition.
	OnConnectionUpdate(fn func(domain.ConnectionUpdate))
}

// ClientFactory builds Clients bound to a session directory.
type ClientFactory interface {
	// LatestVersion fetches the newest protocol version known to the server.
	LatestVersion(ctx context.Context) (domain.ProtocolVersion, error)

	// NewClient loads or initializes the auth state stored in dir and returns a
	// client advertising the given version.
	NewClient(ctx context.Context, dir string, version domain.ProtocolVersion) (Client, error)
}
