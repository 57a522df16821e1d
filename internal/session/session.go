// Package session stores the user's credentials. The file store is the
// keychain analog: sealed at rest, readable only with the device key.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/kaimanfr/checkin/internal/models"
)

// Store is the session capability handed to the gateway and pipeline.
type Store interface {
	Session() (models.Session, error)
	SaveSession(models.Session) error
	Clear() error
}

// MemoryStore keeps the session in memory. Used by tests and as a fallback
// when no secure file location is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	sess models.Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Session() (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess, nil
}

func (m *MemoryStore) SaveSession(s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = models.Session{}
	return nil
}

// FileStore persists the session as an XChaCha20-Poly1305 sealed file.
// A wrong key fails closed; no partial session is ever returned.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileStore derives the sealing key from secret and stores the session
// at path.
func NewFileStore(path, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("session store secret must not be empty")
	}
	key := sha256.Sum256([]byte(secret))
	return &FileStore{path: path, key: key[:]}, nil
}

func (f *FileStore) Session() (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("read session file: %w", err)
	}
	plain, err := f.open(sealed)
	if err != nil {
		return models.Session{}, err
	}
	var sess models.Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (f *FileStore) SaveSession(sess models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := f.seal(plain)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, sealed, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (f *FileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("session file truncated")
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, errors.New("session file cannot be opened with this key")
	}
	return plain, nil
}
