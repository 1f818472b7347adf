package app

import (
	"io"

	"msgcrypt/internal/domain"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	// Dir is the state directory for the file-backed session store.
	// Empty disables persistence (engines still export/import bytes).
	Dir string

	// Algorithm is the AEAD for pairwise messages. Zero value selects
	// ChaCha20-Poly1305.
	Algorithm domain.Algorithm

	// Suite is the default group cipher suite. Zero value selects the
	// X25519/AES-256-GCM/Ed25519 suite.
	Suite domain.CipherSuite

	// Rand is the entropy source; nil selects crypto/rand. Injecting a
	// seeded reader makes key generation reproducible in tests.
	Rand io.Reader

	// Metrics receives operation counts and error kinds; nil discards.
	Metrics domain.MetricsSink
}

func (c *Config) algorithm() domain.Algorithm {
	if c.Algorithm == "" {
		return domain.AlgChaCha20Poly1305
	}
	return c.Algorithm
}

func (c *Config) suite() domain.CipherSuite {
	if c.Suite == 0 {
		return domain.SuiteX25519AES256GCMEd25519
	}
	return c.Suite
}

func (c *Config) metrics() domain.MetricsSink {
	if c.Metrics == nil {
		return domain.NopMetrics{}
	}
	return c.Metrics
}
