package ratchet

import (
	"errors"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/util/memzero"
)

// MaxSkipped bounds the skipped-key cache. A sender claiming a larger counter
// gap is treated as hostile rather than accommodated.
const MaxSkipped = 500

// Derivation labels. Distinct labels keep the seed, chain-step and
// message-key derivations cryptographically independent.
const (
	chainSeedInfo = "msgcrypt/ratchet/chain-seed"
	chainStepInfo = "msgcrypt/ratchet/chain-step"
	msgKeyInfo    = "msgcrypt/ratchet/message-key"
)

var errChainUninitialised = errors.New("ratchet chain key is uninitialised")

// Initialize seeds the chat's message chain from the root key. The sending
// and receiving cursors start at the same chain head: the receive side
// replays the stream the send side produces, at its own pace. Counters start
// at zero.
func Initialize(root []byte) domain.RatchetState {
	seed := crypto.Derive(root, chainSeedInfo)
	return domain.RatchetState{
		RootKey: append([]byte(nil), root...),
		SendCK:  seed,
		RecvCK:  append([]byte(nil), seed...),
		Skipped: make(map[uint32][]byte),
	}
}

// AdvanceSending derives the next sending message key, steps the chain
// forward and increments the send counter. The returned n is the message
// number the key belongs to. The superseded chain key slice is left for the
// caller to wipe once no snapshot references it.
func AdvanceSending(st *domain.RatchetState) (mk []byte, n uint32, err error) {
	if len(st.SendCK) == 0 {
		return nil, 0, errChainUninitialised
	}
	mk = crypto.Derive(st.SendCK, msgKeyInfo)
	st.SendCK = crypto.Derive(st.SendCK, chainStepInfo)
	n = st.Ns
	st.Ns++
	return mk, n, nil
}

// AdvanceReceiving is the mirror operation on the receiving chain.
func AdvanceReceiving(st *domain.RatchetState) (mk []byte, n uint32, err error) {
	if len(st.RecvCK) == 0 {
		return nil, 0, errChainUninitialised
	}
	mk = crypto.Derive(st.RecvCK, msgKeyInfo)
	st.RecvCK = crypto.Derive(st.RecvCK, chainStepInfo)
	n = st.Nr
	st.Nr++
	return mk, n, nil
}

// SkipTo fast-forwards the receiving chain to message number n, caching a
// message key for every number passed over. The cache bound is checked
// before any mutation so a rejected skip leaves the state untouched.
func SkipTo(st *domain.RatchetState, n uint32) error {
	if n <= st.Nr {
		return nil
	}
	needed := int(n - st.Nr)
	if len(st.Skipped)+needed > MaxSkipped {
		return domain.ErrTooManySkippedMessages
	}
	for st.Nr < n {
		mk, num, err := AdvanceReceiving(st)
		if err != nil {
			return err
		}
		st.Skipped[num] = mk
	}
	return nil
}

// ConsumeSkipped returns and removes the cached key for message number n.
// A second call for the same n reports ok=false; the key is gone.
func ConsumeSkipped(st *domain.RatchetState, n uint32) (mk []byte, ok bool) {
	mk, ok = st.Skipped[n]
	if !ok {
		return nil, false
	}
	delete(st.Skipped, n)
	return mk, true
}

// Zeroize wipes all key material in the state: root, both chains and every
// cached skipped key.
func Zeroize(st *domain.RatchetState) {
	memzero.Zero(st.RootKey)
	memzero.Zero(st.SendCK)
	memzero.Zero(st.RecvCK)
	st.RootKey, st.SendCK, st.RecvCK = nil, nil, nil
	for n, mk := range st.Skipped {
		memzero.Zero(mk)
		delete(st.Skipped, n)
	}
}
