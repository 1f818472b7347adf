package domain

// CipherSuite selects the AEAD used for group message protection.
type CipherSuite uint16

const (
	SuiteX25519AES256GCMEd25519        CipherSuite = 0x0001
	SuiteX25519ChaCha20Poly1305Ed25519 CipherSuite = 0x0003
)

// AEAD returns the symmetric algorithm tag for the suite.
func (c CipherSuite) AEAD() Algorithm {
	if c == SuiteX25519ChaCha20Poly1305Ed25519 {
		return AlgChaCha20Poly1305
	}
	return AlgAES256GCM
}

// Group size limits. Past 250 members per-commit key distribution cost starts
// to dominate; 500 is the hard ceiling.
const (
	MaxGroupMembers  = 500
	WarningGroupSize = 400
	OptimalGroupSize = 250
)

// GroupSizeStatus is a monotone function of member count, recomputed after
// every membership change.
type GroupSizeStatus uint8

const (
	GroupSizeOptimal GroupSizeStatus = iota // 0-250 members
	GroupSizeGood                           // 251-400 members
	GroupSizeWarning                        // 401-499 members
	GroupSizeAtLimit                        // 500 members
)

func (s GroupSizeStatus) String() string {
	switch s {
	case GroupSizeOptimal:
		return "OPTIMAL"
	case GroupSizeGood:
		return "GOOD"
	case GroupSizeWarning:
		return "WARNING"
	case GroupSizeAtLimit:
		return "AT_LIMIT"
	}
	return "UNKNOWN"
}

// GroupSizeStatusFor maps a member count onto its status tier.
func GroupSizeStatusFor(count int) GroupSizeStatus {
	switch {
	case count <= OptimalGroupSize:
		return GroupSizeOptimal
	case count <= WarningGroupSize:
		return GroupSizeGood
	case count < MaxGroupMembers:
		return GroupSizeWarning
	default:
		return GroupSizeAtLimit
	}
}

// KeyPackage is a prospective member's public material, presented once to
// admit the member and not retained afterwards.
type KeyPackage struct {
	UserID        string
	EncryptionKey X25519Public
	SignatureKey  Ed25519Public
	Signature     []byte // over EncryptionKey bytes, by SignatureKey
}

// LeafNode is one admitted member's position in the group key tree. Removed
// leaves are tombstoned rather than reused so a re-added member occupies a
// fresh leaf.
type LeafNode struct {
	Index         uint32
	UserID        string
	EncryptionKey X25519Public
	SignatureKey  Ed25519Public
	Removed       bool
	AddedAtEpoch  uint64
}
