// Package session holds the authenticated session context that is passed
// explicitly to every component needing the bearer token.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys used in the persisted store.
const (
	KeyToken  = "token"
	KeyUserID = "user_id"
)

// ErrNoSession is returned when no token is stored.
var ErrNoSession = errors.New("no active session")

// Session is the injected session context. The zero value means logged
// out.
type Session struct {
	Token  string
	UserID string
}

// Active reports whether the session carries a token.
func (s Session) Active() bool {
	return s.Token != ""
}

// Store is a persisted key-value store backed by a JSON file. It is safe
// for concurrent use within one process.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse session store: %w", err)
	}
	return s, nil
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the store.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// Delete removes key and persists the store.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flush()
}

// Session reads the current session. It returns ErrNoSession when no token
// is stored.
func (s *Store) Session() (Session, error) {
	token, _ := s.Get(KeyToken)
	if token == "" {
		return Session{}, ErrNoSession
	}
	userID, _ := s.Get(KeyUserID)
	return Session{Token: token, UserID: userID}, nil
}

// Save persists a session.
func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyToken] = sess.Token
	s.values[KeyUserID] = sess.UserID
	return s.flush()
}

// Clear removes the session keys.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeyToken)
	delete(s.values, KeyUserID)
	return s.flush()
}

// flush writes the store atomically. Callers hold mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session store: %w", err)
	}
	return nil
}
