package domain

// IdentityRegistry is the identity/prekey provisioning capability consumed at
// session-establishment time. Registration itself is external to the core.
type IdentityRegistry interface {
	GetIdentityBundle(userID string) (IdentityBundle, bool, error)

	// ConsumeOneTimePrekey atomically claims a one-time prekey; a second
	// claim of the same id reports ok=false. The private half is returned
	// only to the owning responder.
	ConsumeOneTimePrekey(userID, keyID string) (priv X25519Private, ok bool, err error)
}

// SessionStore is keyed persistence of opaque serialized state. The bytes
// crossing this boundary are the only sanctioned way state leaves the core.
type SessionStore interface {
	Load(id string) ([]byte, bool, error)
	Save(id string, blob []byte) error
	Delete(id string) error
}

// MetricsSink receives operation counts and error kinds. Implementations
// never see key material or plaintext.
type MetricsSink interface {
	Count(op string)
	Error(op string, kind string)
}

// NopMetrics discards everything; the default sink.
type NopMetrics struct{}

func (NopMetrics) Count(string)         {}
func (NopMetrics) Error(string, string) {}
