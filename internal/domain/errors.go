package domain

import "errors"

// Caller-input errors: recoverable by the caller, never retried by the core.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrMissingPrekey        = errors.New("identity bundle has no signed prekey")
	ErrSessionNotFound      = errors.New("session not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrGroupFull            = errors.New("group has reached the maximum member limit")
	ErrInvalidState         = errors.New("operation not valid in current state")
	ErrCorruptState         = errors.New("serialized state failed validation")
	ErrDuplicateKeyPackage  = errors.New("key package already admitted")
	ErrInvalidLeafIndex     = errors.New("leaf index out of range or removed")
)

// Cryptographic failures: fatal to the operation, never downgraded. The
// messages carry no detail about which internal check failed.
var (
	ErrDecryptionFailure = errors.New("decryption failed")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrHandshakeMismatch = errors.New("handshake secrets do not match")
)

// Resource exhaustion: policy-fatal to the session. Treated as a potential
// attack, the session is closed rather than retried.
var ErrTooManySkippedMessages = errors.New("skipped message key limit exceeded")
