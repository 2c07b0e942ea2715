package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Store is the shared credential store: a JSON cookie file written by the
// interactive login flow and loaded by every scrape session. Writes are
// serialized and atomic so concurrent session-close events cannot interleave
// partial files; loads take the read side so they never observe a torn
// write.
type Store struct {
	path string
	mu   sync.RWMutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a credential file is present. Callers use it as a
// preflight check; sessions never authenticate interactively.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the persisted cookies in the shape AddCookies accepts.
func (s *Store) Load() ([]playwright.OptionalCookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read cookie store: %w", err)
	}
	var cookies []playwright.OptionalCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookie store %s: %w", s.path, err)
	}
	return cookies, nil
}

// Save replaces the store with the given context cookies. The write goes to
// a temp file first and is renamed into place, so a crash mid-write leaves
// the previous store intact.
func (s *Store) Save(cookies []playwright.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cookie store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cookie store: %w", err)
	}
	return nil
}
