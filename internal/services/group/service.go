package group

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"msgcrypt/internal/domain"
	"msgcrypt/internal/protocol/mls"
	"msgcrypt/internal/util/keyedlock"
)

// Service owns every group's key-tree state, keyed by group id.
type Service struct {
	rng     io.Reader
	store   domain.SessionStore
	metrics domain.MetricsSink

	locks *keyedlock.Keyed

	mu     sync.Mutex
	groups map[string]*mls.Group
}

// New constructs the service. store may be nil; rng and metrics may be nil
// for the defaults.
func New(store domain.SessionStore, rng io.Reader, metrics domain.MetricsSink) *Service {
	if rng == nil {
		rng = rand.Reader
	}
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	return &Service{
		rng:     rng,
		store:   store,
		metrics: metrics,
		locks:   keyedlock.New(),
		groups:  make(map[string]*mls.Group),
	}
}

// CreateGroup creates an empty group at epoch 0 and returns the serialized
// welcome/init state.
func (s *Service) CreateGroup(groupID string, suite domain.CipherSuite, extensions []byte) ([]byte, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	s.mu.Lock()
	_, exists := s.groups[groupID]
	s.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("%w: group %q already exists", domain.ErrInvalidState, groupID)
	}

	g, err := mls.NewGroup(groupID, suite, extensions, s.rng)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.groups[groupID] = g
	s.mu.Unlock()

	s.metrics.Count("group.create")
	return g.Serialize()
}

// AddMember admits the key package as a fresh leaf, advances the epoch and
// returns the commit. At the 500-member ceiling it fails with ErrGroupFull
// and the group is unchanged.
func (s *Service) AddMember(groupID string, kp domain.KeyPackage) ([]byte, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	if err := g.AddMember(kp); err != nil {
		s.metrics.Error("group.add", addErrKind(err))
		return nil, err
	}
	s.metrics.Count("group.add")
	return g.Serialize()
}

// RemoveMember tombstones the leaf, advances the epoch and re-keys so the
// removed member cannot decrypt future traffic.
func (s *Service) RemoveMember(groupID string, leafIndex uint32) ([]byte, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	if err := g.RemoveMember(leafIndex); err != nil {
		s.metrics.Error("group.remove", "invalid-leaf")
		return nil, err
	}
	s.metrics.Count("group.remove")
	return g.Serialize()
}

// CanAddMember is the non-throwing probe used before attempting an add.
func (s *Service) CanAddMember(groupID string) bool {
	g, err := s.group(groupID)
	if err != nil {
		return false
	}
	return g.CanAdd()
}

// GetGroupMemberCount returns the live member count, zero for an unknown group.
func (s *Service) GetGroupMemberCount(groupID string) int {
	g, err := s.group(groupID)
	if err != nil {
		return 0
	}
	return g.MemberCount()
}

// GetGroupSizeStatus reports the performance tier for the group's size.
func (s *Service) GetGroupSizeStatus(groupID string) (domain.GroupSizeStatus, error) {
	g, err := s.group(groupID)
	if err != nil {
		return 0, err
	}
	return g.SizeStatus(), nil
}

// OptimizeGroupPerformance refreshes cached tree material for the current
// size tier and returns the serialized group. Membership and epoch are
// untouched; the call is valid at any status.
func (s *Service) OptimizeGroupPerformance(groupID string) ([]byte, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	g.Optimize()
	s.metrics.Count("group.optimize")
	return g.Serialize()
}

// EncryptGroupMessage seals plaintext under the group's current epoch secret
// with the group's cipher suite.
func (s *Service) EncryptGroupMessage(groupID string, plaintext []byte, meta domain.MessageMetadata) ([]byte, domain.MessageMetadata, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return nil, domain.MessageMetadata{}, err
	}
	meta.ChatID = groupID
	ct, meta, err := g.SealMessage(plaintext, meta, s.rng)
	if err != nil {
		return nil, domain.MessageMetadata{}, err
	}
	s.metrics.Count("group.encrypt")
	return ct, meta, nil
}

// DecryptGroupMessage opens a group ciphertext against the current epoch.
func (s *Service) DecryptGroupMessage(groupID string, ciphertext []byte, meta domain.MessageMetadata) ([]byte, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	pt, err := g.OpenMessage(ciphertext, meta)
	if err != nil {
		s.metrics.Error("group.decrypt", "decryption-failure")
		return nil, err
	}
	s.metrics.Count("group.decrypt")
	return pt, nil
}

// SaveGroup persists the serialized group into the configured store.
func (s *Service) SaveGroup(groupID string) error {
	if s.store == nil {
		return errors.New("no session store configured")
	}
	unlock := s.locks.Lock(groupID)
	defer unlock()

	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	blob, err := g.Serialize()
	if err != nil {
		return err
	}
	return s.store.Save("group/"+groupID, blob)
}

// LoadGroup restores a group from the configured store, re-validating the
// serialized state.
func (s *Service) LoadGroup(groupID string) error {
	if s.store == nil {
		return errors.New("no session store configured")
	}
	unlock := s.locks.Lock(groupID)
	defer unlock()

	blob, ok, err := s.store.Load("group/" + groupID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrGroupNotFound
	}
	g, err := mls.Deserialize(blob)
	if err != nil {
		s.metrics.Error("group.load", "corrupt-state")
		return err
	}
	s.mu.Lock()
	s.groups[groupID] = g
	s.mu.Unlock()
	return nil
}

// DeleteGroup wipes the group's secrets and forgets it.
func (s *Service) DeleteGroup(groupID string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	s.mu.Lock()
	g, ok := s.groups[groupID]
	if ok {
		g.Zeroize()
		delete(s.groups, groupID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrGroupNotFound
	}
	s.metrics.Count("group.delete")
	return nil
}

func (s *Service) group(groupID string) (*mls.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func addErrKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrGroupFull):
		return "group-full"
	case errors.Is(err, domain.ErrDuplicateKeyPackage):
		return "duplicate-key-package"
	case errors.Is(err, domain.ErrSignatureInvalid):
		return "signature-invalid"
	default:
		return "internal"
	}
}
