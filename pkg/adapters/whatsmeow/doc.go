// Package whatsmeow adapts go.mau.fi/whatsmeow to ports.ClientFactory and
// ports.Client.
//
// Auth state lives in a SQLite database inside the session directory. The
// library's automatic reconnection is disabled so that disconnects surface as
// close updates and the pairing controller decides whether to retry.
package whatsmeow
