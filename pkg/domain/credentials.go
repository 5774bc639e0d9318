package domain

// KeyPair is a Curve25519 key pair. Byte slices marshal as base64.
type KeyPair struct {
	Public  []byte `json:"public"`
	Private []byte `json:"private"`
}

// SignedPreKey is the signed pre-key published for the device.
type SignedPreKey struct {
	KeyPair   KeyPair `json:"keyPair"`
	KeyID     uint32  `json:"keyId"`
	Signature []byte  `json:"signature"`
}

// Me identifies the account the device is paired with.
type Me struct {
	ID   string `json:"id"`
	LID  string `json:"lid,omitempty"`
	Name string `json:"name,omitempty"`
}

// Credentials is the snapshot written to creds.json.
// It is produced by the protocol adapter and never interpreted by the service.
type Credentials struct {
	NoiseKey          KeyPair      `json:"noiseKey"`
	SignedIdentityKey KeyPair      `json:"signedIdentityKey"`
	SignedPreKey      SignedPreKey `json:"signedPreKey"`
	RegistrationID    uint32       `json:"registrationId"`
	AdvSecretKey      []byte       `json:"advSecretKey"`
	Me                *Me          `json:"me,omitempty"`
	Platform          string       `json:"platform,omitempty"`
	Registered        bool         `json:"registered"`
}
