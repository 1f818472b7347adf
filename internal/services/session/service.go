package session

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"msgcrypt/internal/crypto"
	"msgcrypt/internal/domain"
	"msgcrypt/internal/protocol/x3dh"
	"msgcrypt/internal/util/memzero"
)

// Registry is what session establishment needs from the identity service:
// the consumed-capability surface plus the local private material held for
// registered users.
type Registry interface {
	domain.IdentityRegistry
	RegisterUser(userID string, nOneTime int) (domain.IdentityBundle, error)
	LocalIdentity(userID string) (domain.Identity, bool)
	SignedPrekeyPriv(userID, spkID string) (domain.X25519Private, bool)
}

// Service performs X3DH initiation/acceptance and tracks session lifecycle.
type Service struct {
	mu       sync.Mutex
	rng      io.Reader
	registry Registry
	metrics  domain.MetricsSink
	sessions map[string]*domain.Session
}

// New constructs the service. rng and metrics may be nil for the defaults.
func New(registry Registry, rng io.Reader, metrics domain.MetricsSink) *Service {
	if rng == nil {
		rng = rand.Reader
	}
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	return &Service{
		rng:      rng,
		registry: registry,
		metrics:  metrics,
		sessions: make(map[string]*domain.Session),
	}
}

// Initiate runs X3DH as localUser against remoteUser's registered bundle and
// records a PENDING session carrying the derived root key.
func (s *Service) Initiate(localUser, remoteUser string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, ok := s.registry.LocalIdentity(localUser)
	if !ok {
		s.metrics.Error("session.initiate", "unregistered")
		return domain.Session{}, fmt.Errorf("initiate: local user %q not registered", localUser)
	}
	bundle, ok, err := s.registry.GetIdentityBundle(remoteUser)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		s.metrics.Error("session.initiate", "unregistered")
		return domain.Session{}, fmt.Errorf("initiate: remote user %q not registered", remoteUser)
	}

	root, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(s.rng, local, bundle)
	if err != nil {
		s.metrics.Error("session.initiate", errKind(err))
		return domain.Session{}, err
	}

	id, err := s.randomSessionID()
	if err != nil {
		return domain.Session{}, err
	}
	sess := &domain.Session{
		ID:              id,
		LocalUser:       localUser,
		RemoteUser:      remoteUser,
		State:           domain.SessionPending,
		CreatedUTC:      time.Now().Unix(),
		RootKey:         root,
		SignedPrekeyID:  spkID,
		OneTimePrekeyID: opkID,
		InitiatorEphPub: ephPub,
		InitiatorIK:     local.XPub,
	}
	s.sessions[id] = sess
	s.metrics.Count("session.initiate")
	return *sess, nil
}

// Accept makes the responder recompute the shared secret from its own
// private material. On a match the session becomes ACTIVE. The one-time
// prekey named by the initiation is consumed here and cannot serve a second
// session.
func (s *Service) Accept(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.State != domain.SessionPending {
		s.metrics.Error("session.accept", "not-found")
		return domain.ErrSessionNotFound
	}

	responder, ok := s.registry.LocalIdentity(sess.RemoteUser)
	if !ok {
		return fmt.Errorf("accept: responder %q not registered", sess.RemoteUser)
	}
	spkPriv, ok := s.registry.SignedPrekeyPriv(sess.RemoteUser, sess.SignedPrekeyID)
	if !ok {
		s.metrics.Error("session.accept", "missing-prekey")
		return domain.ErrMissingPrekey
	}

	var opkPriv *domain.X25519Private
	if sess.OneTimePrekeyID != "" {
		priv, ok, err := s.registry.ConsumeOneTimePrekey(sess.RemoteUser, sess.OneTimePrekeyID)
		if err != nil {
			return err
		}
		if ok {
			opkPriv = &priv
		}
	}

	root, err := x3dh.ResponderRoot(responder, spkPriv, opkPriv, sess.InitiatorIK, sess.InitiatorEphPub)
	if err != nil {
		return err
	}
	if !hmac.Equal(root, sess.RootKey) {
		memzero.Zero(root)
		s.metrics.Error("session.accept", "handshake-mismatch")
		return domain.ErrHandshakeMismatch
	}
	memzero.Zero(root)

	sess.State = domain.SessionActive
	s.metrics.Count("session.accept")
	return nil
}

// Get returns a copy of the session record.
func (s *Service) Get(sessionID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}
	return *sess, true
}

// IsActive reports whether the session exists and is in the ACTIVE state.
func (s *Service) IsActive(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	return ok && sess.State == domain.SessionActive
}

// ActiveSessions lists ids of ACTIVE sessions; never key material.
func (s *Service) ActiveSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if sess.State == domain.SessionActive {
			out = append(out, id)
		}
	}
	return out
}

// Fingerprint returns a short digest of the session root key for
// out-of-band comparison. Only defined while the session holds a root key.
func (s *Service) Fingerprint(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	if len(sess.RootKey) == 0 {
		return "", domain.ErrInvalidState
	}
	return crypto.Fingerprint(sess.RootKey), nil
}

// Close zeroizes the root key and moves the session to CLOSED.
func (s *Service) Close(sessionID string) error {
	return s.terminate(sessionID, domain.SessionClosed)
}

// MarkCompromised zeroizes the root key and moves the session to
// COMPROMISED. This is a deliberate status change, not an error path.
func (s *Service) MarkCompromised(sessionID string) error {
	return s.terminate(sessionID, domain.SessionCompromised)
}

func (s *Service) terminate(sessionID string, state domain.SessionLifecycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	memzero.Zero(sess.RootKey)
	sess.RootKey = nil
	sess.State = state
	s.metrics.Count("session." + stateOp(state))
	return nil
}

// Recover re-runs establishment for a COMPROMISED session with fresh local
// identity material and returns the session to ACTIVE under a new root key.
func (s *Service) Recover(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.State != domain.SessionCompromised {
		return domain.ErrInvalidState
	}

	// Fresh identity: the compromised private keys must not authenticate
	// the new session.
	if _, err := s.registry.RegisterUser(sess.LocalUser, 1); err != nil {
		return err
	}
	local, _ := s.registry.LocalIdentity(sess.LocalUser)

	bundle, ok, err := s.registry.GetIdentityBundle(sess.RemoteUser)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("recover: remote user %q not registered", sess.RemoteUser)
	}
	root, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(s.rng, local, bundle)
	if err != nil {
		return err
	}

	sess.RootKey = root
	sess.SignedPrekeyID = spkID
	sess.OneTimePrekeyID = opkID
	sess.InitiatorEphPub = ephPub
	sess.InitiatorIK = local.XPub
	sess.State = domain.SessionActive
	s.metrics.Count("session.recover")
	return nil
}

func (s *Service) randomSessionID() (string, error) {
	var b [16]byte
	if _, err := io.ReadFull(s.rng, b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func stateOp(st domain.SessionLifecycle) string {
	if st == domain.SessionClosed {
		return "close"
	}
	return "mark-compromised"
}

func errKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingPrekey):
		return "missing-prekey"
	case errors.Is(err, domain.ErrSignatureInvalid):
		return "signature-invalid"
	default:
		return "internal"
	}
}
