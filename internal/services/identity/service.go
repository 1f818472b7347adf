package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
)

// Service holds registered identities and their prekey inventories.
//
// One-time prekey discipline: a key id is issued inside at most one served
// bundle, and its private half is released by ConsumeOneTimePrekey at most
// once. Both transitions are atomic under the service lock.
type Service struct {
	mu    sync.Mutex
	rng   io.Reader
	users map[string]*record
}

type record struct {
	identity domain.Identity

	spkID   string
	spkPriv domain.X25519Private
	spkPub  domain.X25519Public
	spkSig  []byte

	oneTime map[string]domain.OneTimePair
	issued  map[string]bool // served in a bundle, not yet consumed
}

// New returns an empty registry. rng may be nil to use crypto/rand.
func New(rng io.Reader) *Service {
	if rng == nil {
		rng = rand.Reader
	}
	return &Service{rng: rng, users: make(map[string]*record)}
}

// RegisterUser generates a fresh identity plus a signed prekey and n one-time
// prekeys, and returns the public bundle. Registering an existing user id
// replaces the previous registration.
func (s *Service) RegisterUser(userID string, nOneTime int) (domain.IdentityBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	xPriv, xPub, err := crypto.GenerateX25519(s.rng)
	if err != nil {
		return domain.IdentityBundle{}, err
	}
	edPriv, edPub, err := crypto.GenerateEd25519(s.rng)
	if err != nil {
		return domain.IdentityBundle{}, err
	}
	rec := &record{
		identity: domain.Identity{
			UserID: userID,
			XPub:   xPub, XPriv: xPriv,
			EdPub: edPub, EdPriv: edPriv,
		},
		oneTime: make(map[string]domain.OneTimePair),
		issued:  make(map[string]bool),
	}
	s.users[userID] = rec

	if err := s.rotateSignedPrekeyLocked(rec); err != nil {
		return domain.IdentityBundle{}, err
	}
	if err := s.addOneTimeLocked(rec, nOneTime); err != nil {
		return domain.IdentityBundle{}, err
	}
	return s.bundleLocked(rec)
}

// ReplenishPrekeys rotates the signed prekey and tops up the one-time pool.
func (s *Service) ReplenishPrekeys(userID string, nOneTime int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("replenish prekeys: user %q not registered", userID)
	}
	if err := s.rotateSignedPrekeyLocked(rec); err != nil {
		return err
	}
	return s.addOneTimeLocked(rec, nOneTime)
}

// GetIdentityBundle serves the public bundle with at most one unissued
// one-time prekey. The served prekey is marked issued and will not appear in
// another bundle.
func (s *Service) GetIdentityBundle(userID string) (domain.IdentityBundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return domain.IdentityBundle{}, false, nil
	}
	b, err := s.bundleLocked(rec)
	if err != nil {
		return domain.IdentityBundle{}, false, err
	}
	return b, true, nil
}

// ConsumeOneTimePrekey releases the private half of an issued one-time
// prekey, deleting it. The second claim of the same id reports ok=false.
func (s *Service) ConsumeOneTimePrekey(userID, keyID string) (domain.X25519Private, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return domain.X25519Private{}, false, nil
	}
	pair, ok := rec.oneTime[keyID]
	if !ok {
		return domain.X25519Private{}, false, nil
	}
	delete(rec.oneTime, keyID)
	delete(rec.issued, keyID)
	return pair.Priv, true, nil
}

// LocalIdentity returns a registered user's full identity, private halves
// included. Responder-side establishment needs it.
func (s *Service) LocalIdentity(userID string) (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.Identity{}, false
	}
	return rec.identity, true
}

// SignedPrekeyPriv returns the private half of the user's signed prekey by id.
func (s *Service) SignedPrekeyPriv(userID, spkID string) (domain.X25519Private, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok || rec.spkID != spkID {
		return domain.X25519Private{}, false
	}
	return rec.spkPriv, true
}

func (s *Service) rotateSignedPrekeyLocked(rec *record) error {
	priv, pub, err := crypto.GenerateX25519(s.rng)
	if err != nil {
		return err
	}
	id, err := s.randomID("spk")
	if err != nil {
		return err
	}
	rec.spkID = id
	rec.spkPriv = priv
	rec.spkPub = pub
	rec.spkSig = crypto.SignEd25519(rec.identity.EdPriv, pub.Slice())
	return nil
}

func (s *Service) addOneTimeLocked(rec *record, n int) error {
	for i := 0; i < n; i++ {
		priv, pub, err := crypto.GenerateX25519(s.rng)
		if err != nil {
			return err
		}
		// Ids are random, never positional: a stale id from an earlier
		// registration must not resolve to a fresh key.
		id, err := s.randomID("opk")
		if err != nil {
			return err
		}
		rec.oneTime[id] = domain.OneTimePair{ID: id, Priv: priv, Pub: pub}
	}
	return nil
}

// bundleLocked assembles the public bundle, issuing at most one fresh
// one-time prekey.
func (s *Service) bundleLocked(rec *record) (domain.IdentityBundle, error) {
	b := domain.IdentityBundle{
		UserID:      rec.identity.UserID,
		IdentityKey: rec.identity.XPub,
		SigningKey:  rec.identity.EdPub,
		SignedPrekey: domain.SignedPrekey{
			ID:  rec.spkID,
			Pub: rec.spkPub,
			Sig: append([]byte(nil), rec.spkSig...),
		},
	}
	for id, pair := range rec.oneTime {
		if rec.issued[id] {
			continue
		}
		rec.issued[id] = true
		b.OneTime = []domain.OneTimePrekey{{ID: id, Pub: pair.Pub}}
		break
	}
	return b, nil
}

func (s *Service) randomID(prefix string) (string, error) {
	var b [8]byte
	if _, err := io.ReadFull(s.rng, b[:]); err != nil {
		return "", err
	}
	return prefix + "-" + hex.EncodeToString(b[:]), nil
}

// Compile-time assertion that Service implements domain.IdentityRegistry.
var _ domain.IdentityRegistry = (*Service)(nil)
