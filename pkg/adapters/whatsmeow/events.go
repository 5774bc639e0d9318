package whatsmeow

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aretw0/pairgate/pkg/domain"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types/events"
	"go.mau.fi/whatsmeow/util/keys"
)

// codeClientOutdated mirrors events.ConnectFailureClientOutdated.
const codeClientOutdated = 405

// translate maps library events onto connection updates.
func translate(evt any) (domain.ConnectionUpdate, bool) {
	switch e := evt.(type) {
	case *events.Connected:
		return domain.Open(), true
	case *events.LoggedOut:
		return domain.Closed(domain.CodeLoggedOut,
			fmt.Errorf("logged out (on connect: %t, reason: %d)", e.OnConnect, int(e.Reason))), true
	case *events.ConnectFailure:
		code := int(e.Reason)
		if e.Reason.IsLoggedOut() {
			code = domain.CodeLoggedOut
		}
		return domain.Closed(code, fmt.Errorf("connect failure %d: %s", int(e.Reason), e.Message)), true
	case *events.StreamReplaced:
		return domain.Closed(domain.CodeConnectionReplaced, errors.New("stream replaced by another connection")), true
	case *events.TemporaryBan:
		return domain.Closed(domain.CodeTempBanned, fmt.Errorf("temporary ban: %s", e.String())), true
	case *events.ClientOutdated:
		return domain.Closed(codeClientOutdated, errors.New("client outdated")), true
	case *events.PairError:
		return domain.Closed(domain.CodeConnectionClosed, fmt.Errorf("pairing failed: %w", e.Error)), true
	case *events.Disconnected:
		return domain.Closed(domain.CodeConnectionClosed, errors.New("connection closed")), true
	}
	return domain.ConnectionUpdate{}, false
}

// updatesCredentials reports whether evt changes the stored device credentials.
func updatesCredentials(evt any) bool {
	switch evt.(type) {
	case *events.PairSuccess, *events.Connected, *events.PushNameSetting:
		return true
	}
	return false
}

// snapshot copies the device credentials into their creds.json form.
func snapshot(d *store.Device) domain.Credentials {
	creds := domain.Credentials{
		NoiseKey:          keyPair(d.NoiseKey),
		SignedIdentityKey: keyPair(d.IdentityKey),
		RegistrationID:    d.RegistrationID,
		AdvSecretKey:      bytes.Clone(d.AdvSecretKey),
		Platform:          d.Platform,
		Registered:        d.ID != nil,
	}
	if pk := d.SignedPreKey; pk != nil {
		creds.SignedPreKey = domain.SignedPreKey{
			KeyPair: keyPair(&pk.KeyPair),
			KeyID:   pk.KeyID,
		}
		if pk.Signature != nil {
			creds.SignedPreKey.Signature = bytes.Clone(pk.Signature[:])
		}
	}
	if d.ID != nil {
		creds.Me = &domain.Me{ID: d.ID.String(), Name: d.PushName}
		if !d.LID.IsEmpty() {
			creds.Me.LID = d.LID.String()
		}
	}
	return creds
}

func keyPair(kp *keys.KeyPair) domain.KeyPair {
	var out domain.KeyPair
	if kp == nil {
		return out
	}
	if kp.Pub != nil {
		out.Public = bytes.Clone(kp.Pub[:])
	}
	if kp.Priv != nil {
		out.Private = bytes.Clone(kp.Priv[:])
	}
	return out
}
