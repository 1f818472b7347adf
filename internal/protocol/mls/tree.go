package mls

import (
	"crypto/sha256"
	"encoding/binary"

	"msgcrypt/internal/domain"
)

// computeTreeHash folds the canonical leaf encodings into a single digest.
// Tombstoned leaves contribute their index and a removal marker so that a
// removed-then-readded member yields a different tree than never-removed.
func computeTreeHash(leaves []domain.LeafNode) []byte {
	h := sha256.New()
	var idx [4]byte
	for i := range leaves {
		binary.BigEndian.PutUint32(idx[:], leaves[i].Index)
		h.Write(idx[:])
		if leaves[i].Removed {
			h.Write([]byte{0xff})
			continue
		}
		h.Write([]byte{0x01})
		h.Write(leafHash(&leaves[i]))
	}
	return h.Sum(nil)
}

func leafHash(l *domain.LeafNode) []byte {
	h := sha256.New()
	h.Write([]byte(l.UserID))
	h.Write(l.EncryptionKey.Slice())
	h.Write(l.SignatureKey.Slice())
	var e [8]byte
	binary.BigEndian.PutUint64(e[:], l.AddedAtEpoch)
	h.Write(e[:])
	return h.Sum(nil)
}
