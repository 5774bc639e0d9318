package domain

import "strings"

const (
	// UserServer is the server part of a regular user identity.
	UserServer = "s.whatsapp.net"
	// LegacyUserServer is the pre-multi-device alias of UserServer.
	LegacyUserServer = "c.us"
)

// Digits strips every non-digit character from phone.
func Digits(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentity returns the recipient identity of a paired number.
//
// A bare number becomes "<digits>@s.whatsapp.net". An input that already has a
// server keeps it, loses any agent or device suffix on the user part, and has
// the legacy "c.us" server mapped to UserServer.
func NormalizeIdentity(number string) string {
	user, server, found := strings.Cut(strings.TrimSpace(number), "@")
	if !found {
		return Digits(number) + "@" + UserServer
	}
	if i := strings.IndexAny(user, ":._"); i >= 0 {
		user = user[:i]
	}
	if server == LegacyUserServer || server == "" {
		server = UserServer
	}
	return user + "@" + server
}

// SessionName derives the session directory name for a request.
// Only digits survive, so the result can never escape the sessions root.
func SessionName(number, fallback string) string {
	if d := Digits(number); d != "" {
		return d
	}
	if fallback == "" {
		return DefaultSessionName
	}
	return fallback
}
