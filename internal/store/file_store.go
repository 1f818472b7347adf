package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"msgcrypt/internal/domain"
)

const blobsFilename = "state_blobs.json"

// FileStore keeps serialized state blobs in a single JSON file under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Load retrieves the blob saved under id.
func (s *FileStore) Load(id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return nil, false, err
	}
	blob, ok := m[id]
	return blob, ok, nil
}

// Save writes the blob under id, replacing any previous value.
func (s *FileStore) Save(id string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	m[id] = append([]byte(nil), blob...)
	return s.write(m)
}

// Delete removes the blob under id; deleting a missing id is not an error.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	delete(m, id)
	return s.write(m)
}

func (s *FileStore) path() string { return filepath.Join(s.dir, blobsFilename) }

func (s *FileStore) read() (map[string][]byte, error) {
	m := make(map[string][]byte)
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FileStore) write(m map[string][]byte) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), b, 0o600)
}

// Compile-time assertion that FileStore implements domain.SessionStore.
var _ domain.SessionStore = (*FileStore)(nil)
