package cartclient

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/naturelovers/storefront/pkg/crypt"
)

// SnapshotKey names the persisted cart, as the browser's localStorage did.
const SnapshotKey = "natureLoversCart"

// ErrNoSnapshot is returned by LocalStore.Load when nothing was saved.
var ErrNoSnapshot = errors.New("cartclient: no local snapshot")

// LocalStore persists the cart snapshot between runs.
type LocalStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// FileStore keeps each key in Dir/<key>.json. With Box set the file holds
// the AES-GCM sealed snapshot instead of plain JSON.
type FileStore struct {
	Dir string
	Box *crypt.Box
}

func (f *FileStore) path(key string) string { return filepath.Join(f.Dir, key+".json") }

func (f *FileStore) Load(key string) ([]byte, error) {
	raw, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("cartclient: read snapshot: %w", err)
	}
	if f.Box == nil {
		return raw, nil
	}
	plain, err := f.Box.Open(string(raw))
	if err != nil {
		return nil, fmt.Errorf("cartclient: open snapshot: %w", err)
	}
	return plain, nil
}

// Save writes through a temp file so a crash never leaves half a snapshot.
func (f *FileStore) Save(key string, data []byte) error {
	if f.Box != nil {
		sealed, err := f.Box.Seal(data)
		if err != nil {
			return fmt.Errorf("cartclient: seal snapshot: %w", err)
		}
		data = []byte(sealed)
	}
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return fmt.Errorf("cartclient: snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("cartclient: write snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cartclient: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cartclient: write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileStore) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cartclient: delete snapshot: %w", err)
	}
	return nil
}

// MemoryStore is a LocalStore for tests and ephemeral clients.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
