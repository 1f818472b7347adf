package domain

// Identity carries a user's long-term Diffie-Hellman (X25519) and signature
// (Ed25519) material. Private halves never leave the owning process.
type Identity struct {
	UserID string

	XPub  X25519Public
	XPriv X25519Private

	EdPub  Ed25519Public
	EdPriv Ed25519Private
}

// SignedPrekey is a medium-term X25519 prekey signed by the identity key.
type SignedPrekey struct {
	ID  string
	Pub X25519Public
	Sig []byte
}

// OneTimePrekey is consumed by exactly one session initiation.
type OneTimePrekey struct {
	ID  string
	Pub X25519Public
}

// OneTimePair is the private half kept by the prekey owner.
type OneTimePair struct {
	ID   string
	Priv X25519Private
	Pub  X25519Public
}

// IdentityBundle is the public registration record served to initiators.
// The core reads it at session-establishment time only.
type IdentityBundle struct {
	UserID       string
	IdentityKey  X25519Public
	SigningKey   Ed25519Public
	SignedPrekey SignedPrekey
	OneTime      []OneTimePrekey
}
