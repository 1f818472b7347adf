package message

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
	"math"
	"sync"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/protocol/ratchet"
	"msgcrypt/internal/util/keyedlock"
	"msgcrypt/internal/util/memzero"
)

// Sessions is what the engine needs from the session service.
type Sessions interface {
	Get(sessionID string) (domain.Session, bool)
	Close(sessionID string) error
	MarkCompromised(sessionID string) error
	Recover(sessionID string) error
}

// Engine owns ratchet state keyed by chat id. All mutating operations on one
// chat are serialized; different chats never block each other.
type Engine struct {
	rng      io.Reader
	alg      domain.Algorithm
	sessions Sessions
	store    domain.SessionStore
	metrics  domain.MetricsSink

	locks *keyedlock.Keyed

	mu     sync.Mutex
	states map[string]*domain.RatchetState
}

// New constructs the engine. store may be nil when the surrounding service
// handles persistence itself; rng and metrics may be nil for the defaults.
func New(sessions Sessions, store domain.SessionStore, alg domain.Algorithm, rng io.Reader, metrics domain.MetricsSink) (*Engine, error) {
	switch alg {
	case domain.AlgAES256GCM, domain.AlgChaCha20Poly1305:
	default:
		return nil, domain.ErrUnsupportedAlgorithm
	}
	if rng == nil {
		rng = rand.Reader
	}
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	return &Engine{
		rng:      rng,
		alg:      alg,
		sessions: sessions,
		store:    store,
		metrics:  metrics,
		locks:    keyedlock.New(),
		states:   make(map[string]*domain.RatchetState),
	}, nil
}

// EncryptMessage derives the next sending message key for the chat and seals
// plaintext under it. The caller supplies the MessageID and SenderID binding
// fields; ChatID, algorithm, counter and nonce are filled in here.
func (e *Engine) EncryptMessage(sessionID string, plaintext []byte, meta domain.MessageMetadata) ([]byte, domain.MessageMetadata, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	st, err := e.stateLocked(sessionID)
	if err != nil {
		e.metrics.Error("message.encrypt", kindOf(err))
		return nil, domain.MessageMetadata{}, err
	}

	work := cloneState(st)
	mk, n, err := ratchet.AdvanceSending(&work)
	if err != nil {
		return nil, domain.MessageMetadata{}, err
	}
	defer memzero.Zero(mk)

	meta.Algorithm = e.alg
	meta.ChatID = sessionID
	meta.KeyID = uint64(n)

	ct, nonce, err := crypto.Seal(e.alg, mk, plaintext, meta.AAD(), e.rng)
	if err != nil {
		return nil, domain.MessageMetadata{}, err
	}
	meta.Nonce = nonce

	e.commitLocked(sessionID, st, &work)
	e.metrics.Count("message.encrypt")
	return ct, meta, nil
}

// DecryptMessage resolves the message number against the receiving chain or
// the skipped-key cache and opens the ciphertext. A counter gap beyond the
// cache bound closes the session: it is treated as an attack, not retried.
func (e *Engine) DecryptMessage(sessionID string, ciphertext []byte, meta domain.MessageMetadata) ([]byte, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	st, err := e.stateLocked(sessionID)
	if err != nil {
		e.metrics.Error("message.decrypt", kindOf(err))
		return nil, err
	}
	if meta.KeyID > math.MaxUint32 {
		e.metrics.Error("message.decrypt", "decryption-failure")
		return nil, domain.ErrDecryptionFailure
	}
	n := uint32(meta.KeyID)

	work := cloneState(st)
	var mk []byte
	fromCache := false
	switch {
	case n < work.Nr:
		// Behind the chain: only a cached skipped key can open it, and
		// only once.
		cached, ok := ratchet.ConsumeSkipped(&work, n)
		if !ok {
			e.metrics.Error("message.decrypt", "decryption-failure")
			return nil, domain.ErrDecryptionFailure
		}
		mk = cached
		fromCache = true
	default:
		if err := ratchet.SkipTo(&work, n); err != nil {
			if errors.Is(err, domain.ErrTooManySkippedMessages) {
				// Policy-fatal: wipe the chat and close the session.
				e.zeroizeLocked(sessionID)
				_ = e.sessions.Close(sessionID)
				e.metrics.Error("message.decrypt", "too-many-skipped")
			}
			return nil, err
		}
		derived, _, err := ratchet.AdvanceReceiving(&work)
		if err != nil {
			return nil, err
		}
		mk = derived
	}

	pt, err := crypto.Open(meta.Algorithm, mk, ciphertext, meta.Nonce, meta.AAD())
	if err != nil {
		// Failed open commits nothing: the chain position and cache are
		// exactly as before the call. A cached key stays usable for the
		// retransmission, so it must not be wiped here.
		if !fromCache {
			memzero.Zero(mk)
			wipeNewSkipped(st, &work)
		}
		e.metrics.Error("message.decrypt", "decryption-failure")
		return nil, err
	}

	e.commitLocked(sessionID, st, &work)
	memzero.Zero(mk)
	e.metrics.Count("message.decrypt")
	return pt, nil
}

// CloseChat destroys the chat's ratchet state, including every cached
// skipped key, and closes the session.
func (e *Engine) CloseChat(sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	e.zeroizeLocked(sessionID)
	if err := e.sessions.Close(sessionID); err != nil {
		return err
	}
	e.metrics.Count("message.close")
	return nil
}

// MarkKeyCompromised zeroizes the chat's ratchet state, including every
// cached skipped key, and transitions the session to COMPROMISED.
func (e *Engine) MarkKeyCompromised(sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	e.zeroizeLocked(sessionID)
	if err := e.sessions.MarkCompromised(sessionID); err != nil {
		return err
	}
	e.metrics.Count("message.mark-compromised")
	return nil
}

// RecoverFromCompromise re-establishes the session with fresh identity
// material and reinitializes the ratchet. Valid only from COMPROMISED.
func (e *Engine) RecoverFromCompromise(sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	if err := e.sessions.Recover(sessionID); err != nil {
		e.metrics.Error("message.recover", kindOf(err))
		return err
	}
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	st := ratchet.Initialize(sess.RootKey)

	e.mu.Lock()
	e.states[sessionID] = &st
	e.mu.Unlock()

	e.metrics.Count("message.recover")
	return nil
}

// ExportState serializes the chat's ratchet state for the session store.
func (e *Engine) ExportState(sessionID string) ([]byte, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	st, err := e.stateLocked(sessionID)
	if err != nil {
		return nil, err
	}
	return ratchet.Marshal(st)
}

// ImportState installs previously exported state under chatID, re-validating
// every invariant; malformed input fails with ErrCorruptState and installs
// nothing. The id need not match the one the state was exported from.
func (e *Engine) ImportState(chatID string, blob []byte) error {
	unlock := e.locks.Lock(chatID)
	defer unlock()

	st, err := ratchet.Unmarshal(blob)
	if err != nil {
		e.metrics.Error("message.import", "corrupt-state")
		return err
	}
	e.mu.Lock()
	e.states[chatID] = &st
	e.mu.Unlock()
	e.metrics.Count("message.import")
	return nil
}

// SaveState exports the chat state into the configured session store.
func (e *Engine) SaveState(sessionID string) error {
	if e.store == nil {
		return errors.New("no session store configured")
	}
	blob, err := e.ExportState(sessionID)
	if err != nil {
		return err
	}
	return e.store.Save(sessionID, blob)
}

// LoadState restores chat state from the configured session store.
func (e *Engine) LoadState(chatID string) error {
	if e.store == nil {
		return errors.New("no session store configured")
	}
	blob, ok, err := e.store.Load(chatID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return e.ImportState(chatID, blob)
}

// Fingerprint returns a short digest of the chat's ratchet root key for
// out-of-band verification.
func (e *Engine) Fingerprint(sessionID string) (string, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	st, err := e.stateLocked(sessionID)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(st.RootKey), nil
}

// CompareFingerprints checks an expected fingerprint in constant time.
func (e *Engine) CompareFingerprints(sessionID, expected string) (bool, error) {
	fp, err := e.Fingerprint(sessionID)
	if err != nil {
		return false, err
	}
	return len(fp) == len(expected) && subtle.ConstantTimeCompare([]byte(fp), []byte(expected)) == 1, nil
}

// stateLocked returns the chat's ratchet state, lazily initializing it from
// an ACTIVE session's root key. Caller holds the per-chat lock.
func (e *Engine) stateLocked(sessionID string) (*domain.RatchetState, error) {
	e.mu.Lock()
	st, ok := e.states[sessionID]
	e.mu.Unlock()
	if ok {
		if len(st.RootKey) == 0 {
			return nil, domain.ErrInvalidState
		}
		// A session that has since gone terminal invalidates the cached
		// state. Imported chats carry no session record and keep theirs.
		if sess, found := e.sessions.Get(sessionID); found && sess.State != domain.SessionActive {
			e.zeroizeLocked(sessionID)
			return nil, domain.ErrInvalidState
		}
		return st, nil
	}

	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.State != domain.SessionActive {
		return nil, domain.ErrInvalidState
	}
	fresh := ratchet.Initialize(sess.RootKey)

	e.mu.Lock()
	e.states[sessionID] = &fresh
	e.mu.Unlock()
	return &fresh, nil
}

// commitLocked replaces the stored state with the worked copy and wipes the
// superseded key material.
func (e *Engine) commitLocked(sessionID string, old, next *domain.RatchetState) {
	e.mu.Lock()
	e.states[sessionID] = next
	e.mu.Unlock()

	// Chain keys the worked copy stepped past are wiped here; keys shared
	// by both copies (unchanged chains, untouched skipped entries) stay.
	if !sameKey(old.SendCK, next.SendCK) {
		memzero.Zero(old.SendCK)
	}
	if !sameKey(old.RecvCK, next.RecvCK) {
		memzero.Zero(old.RecvCK)
	}
}

func (e *Engine) zeroizeLocked(sessionID string) {
	e.mu.Lock()
	if st, ok := e.states[sessionID]; ok {
		ratchet.Zeroize(st)
		delete(e.states, sessionID)
	}
	e.mu.Unlock()
}

// cloneState copies counters and the cache map; key slices are shared until
// a chain step replaces them, which never mutates in place.
func cloneState(st *domain.RatchetState) domain.RatchetState {
	skipped := make(map[uint32][]byte, len(st.Skipped))
	for n, mk := range st.Skipped {
		skipped[n] = mk
	}
	return domain.RatchetState{
		RootKey: st.RootKey,
		SendCK:  st.SendCK,
		RecvCK:  st.RecvCK,
		Ns:      st.Ns,
		Nr:      st.Nr,
		Skipped: skipped,
	}
}

// wipeNewSkipped wipes skipped keys the discarded work copy derived beyond
// what the committed state holds.
func wipeNewSkipped(committed, discarded *domain.RatchetState) {
	for n, mk := range discarded.Skipped {
		if _, ok := committed.Skipped[n]; !ok {
			memzero.Zero(mk)
		}
	}
}

func sameKey(a, b []byte) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session-not-found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid-state"
	case errors.Is(err, domain.ErrCorruptState):
		return "corrupt-state"
	default:
		return "internal"
	}
}
