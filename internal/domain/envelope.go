package domain

import "encoding/binary"

// MessageMetadata accompanies every ciphertext in and out of the engine. It
// is the complete envelope besides the ciphertext bytes; framing it for the
// wire or for storage is the transport layer's concern.
type MessageMetadata struct {
	Algorithm Algorithm `json:"algorithm"`
	KeyID     uint64    `json:"key_id"` // chain counter for pairwise, epoch for groups
	Nonce     []byte    `json:"nonce"`
	Tag       []byte    `json:"tag,omitempty"` // empty when the AEAD embeds it

	// AAD components binding the ciphertext to its context. A ciphertext
	// replayed under a different message, chat or sender fails to open.
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	SenderID  string `json:"sender_id"`
}

// AAD returns the canonical additional-authenticated-data encoding of the
// binding fields plus the key counter. Length-prefixed so that field
// boundaries cannot be shifted between components.
func (m MessageMetadata) AAD() []byte {
	fields := []string{m.MessageID, m.ChatID, m.SenderID}
	out := make([]byte, 0, 8+len(m.MessageID)+len(m.ChatID)+len(m.SenderID)+12)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], m.KeyID)
	out = append(out, n[:]...)
	var l [4]byte
	for _, f := range fields {
		binary.BigEndian.PutUint32(l[:], uint32(len(f)))
		out = append(out, l[:]...)
		out = append(out, f...)
	}
	return out
}
