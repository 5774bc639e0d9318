package domain

const (
	// MaxRetries bounds the number of unexpected disconnects tolerated per request.
	MaxRetries = 5

	// DefaultSessionName is used when a request carries no usable phone number.
	DefaultSessionName = "session"

	// CredentialsFile is the name of the credentials artifact inside a session directory.
	CredentialsFile = "creds.json"
)

// Fixed payloads returned to callers.
const (
	UnavailableCode  = "Service Unavailable"
	ExhaustedMessage = "Unable to reconnect after multiple attempts."
)
