package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

// Store keeps cached responses on disk, grouped into named namespaces. Each
// namespace is a directory under the store root; each entry is a metadata
// file plus a body file, keyed by the hash of the request path.
type Store struct {
	root string
	mu   sync.RWMutex
}

// Entry is one cached response.
type Entry struct {
	Path   string      `json:"path"`
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"-"`
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: dir}, nil
}

func entryKey(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func (s *Store) entryBase(namespace, path string) string {
	return filepath.Join(s.root, namespace, entryKey(path))
}

// Put stores a response under namespace, keyed by the request path.
func (s *Store) Put(namespace, path string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.root, namespace), 0o755); err != nil {
		return fmt.Errorf("create namespace %s: %w", namespace, err)
	}

	entry.Path = path
	meta, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry meta: %w", err)
	}

	base := s.entryBase(namespace, path)
	if err := os.WriteFile(base+".body", entry.Body, 0o644); err != nil {
		return fmt.Errorf("write entry body: %w", err)
	}
	// Meta is written last so a crash mid-write leaves no visible entry.
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return fmt.Errorf("write entry meta: %w", err)
	}
	return nil
}

// Get looks up the cached response for path in namespace. The second return
// value reports whether an entry was found.
func (s *Store) Get(namespace, path string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base := s.entryBase(namespace, path)
	meta, err := os.ReadFile(base + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read entry meta: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(meta, &entry); err != nil {
		return nil, false, fmt.Errorf("decode entry meta: %w", err)
	}

	entry.Body, err = os.ReadFile(base + ".body")
	if err != nil {
		return nil, false, fmt.Errorf("read entry body: %w", err)
	}
	return &entry, true, nil
}

// Namespaces lists every namespace currently present.
func (s *Store) Namespaces() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// DeleteNamespace removes a namespace and all its entries. Deleting an
// absent namespace is not an error.
func (s *Store) DeleteNamespace(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.root, namespace)); err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return nil
}
