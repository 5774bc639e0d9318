package session

import (
	"bytes"
	"encoding/json"

	"github.com/aretw0/pairgate/pkg/domain"
)

// marshalCredentials encodes creds compactly, the form relayed to the phone.
func marshalCredentials(creds domain.Credentials) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(creds); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
