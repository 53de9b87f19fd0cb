package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

type fileEntry struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

// FileStore keeps announced IDs in a JSON file. Expired entries are dropped
// on every write.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]time.Time
	now     func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]time.Time), now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var list []fileEntry
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	for _, e := range list {
		s.entries[e.ID] = time.Unix(e.ExpiresAt, 0)
	}
	return nil
}

func (s *FileStore) IsAnnounced(ctx context.Context, battleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[battleID]
	return ok && s.now().Before(exp), nil
}

func (s *FileStore) MarkAnnounced(ctx context.Context, battleID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[battleID] = expiresAt

	now := s.now()
	list := make([]fileEntry, 0, len(s.entries))
	for id, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, id)
			continue
		}
		list = append(list, fileEntry{ID: id, ExpiresAt: exp.Unix()})
	}

	b, err := json.MarshalIndent(list, "", " ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
