package ratchet

import (
	"encoding/json"
	"fmt"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
)

// wireState is the export encoding. Field names are part of the stored
// format; changing them invalidates previously exported snapshots.
type wireState struct {
	RootKey []byte            `json:"root_key"`
	SendCK  []byte            `json:"send_ck"`
	RecvCK  []byte            `json:"recv_ck"`
	Ns      uint32            `json:"ns"`
	Nr      uint32            `json:"nr"`
	Skipped map[uint32][]byte `json:"skipped,omitempty"`
}

// Marshal serializes the state for the session store. The caller owns the
// bytes; they contain live key material and must be treated as secret.
func Marshal(st *domain.RatchetState) ([]byte, error) {
	return json.Marshal(wireState{
		RootKey: st.RootKey,
		SendCK:  st.SendCK,
		RecvCK:  st.RecvCK,
		Ns:      st.Ns,
		Nr:      st.Nr,
		Skipped: st.Skipped,
	})
}

// Unmarshal parses and validates an exported state. Malformed input fails
// with ErrCorruptState rather than producing a half-usable ratchet.
func Unmarshal(blob []byte) (domain.RatchetState, error) {
	var w wireState
	if err := json.Unmarshal(blob, &w); err != nil {
		return domain.RatchetState{}, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	if len(w.RootKey) != crypto.KeyBytes ||
		len(w.SendCK) != crypto.KeyBytes ||
		len(w.RecvCK) != crypto.KeyBytes {
		return domain.RatchetState{}, fmt.Errorf("%w: bad key length", domain.ErrCorruptState)
	}
	if len(w.Skipped) > MaxSkipped {
		return domain.RatchetState{}, fmt.Errorf("%w: oversized skipped cache", domain.ErrCorruptState)
	}
	for n, mk := range w.Skipped {
		if len(mk) != crypto.KeyBytes {
			return domain.RatchetState{}, fmt.Errorf("%w: bad skipped key length", domain.ErrCorruptState)
		}
		if n >= w.Nr {
			return domain.RatchetState{}, fmt.Errorf("%w: skipped number beyond chain position", domain.ErrCorruptState)
		}
	}
	st := domain.RatchetState{
		RootKey: w.RootKey,
		SendCK:  w.SendCK,
		RecvCK:  w.RecvCK,
		Ns:      w.Ns,
		Nr:      w.Nr,
		Skipped: w.Skipped,
	}
	if st.Skipped == nil {
		st.Skipped = make(map[uint32][]byte)
	}
	return st, nil
}
