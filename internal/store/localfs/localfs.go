package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tapwire/internal/store"
)

// Store keeps contacts and tap history in a single JSON state file under
// the data dir, loaded at startup and rewritten atomically on change.
type Store struct {
	mu        sync.Mutex
	root      string
	stateFile string
	contacts  map[string]store.Contact
	taps      map[string]store.TapRecord
}

type persistedState struct {
	Contacts map[string]store.Contact   `json:"contacts"`
	Taps     map[string]store.TapRecord `json:"taps"`
}

func New(root string) (*Store, error) {
	if root == "" {
		root = "data"
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		root:      root,
		stateFile: filepath.Join(root, "state.json"),
		contacts:  map[string]store.Contact{},
		taps:      map[string]store.TapRecord{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) SaveContact(_ context.Context, contact store.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.UserID] = contact
	return s.persist()
}

func (s *Store) GetContact(_ context.Context, userID string) (store.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[userID]
	if !ok {
		return store.Contact{}, store.ErrNotFound
	}
	return contact, nil
}

func (s *Store) ListContacts(_ context.Context) ([]store.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := make([]store.Contact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		contacts = append(contacts, contact)
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].AddedAt.Before(contacts[j].AddedAt)
	})
	return contacts, nil
}

func (s *Store) DeleteContact(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.contacts, userID)
	return s.persist()
}

func (s *Store) AppendTap(_ context.Context, record store.TapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.taps[record.ID]; exists {
		return store.ErrConflict
	}
	s.taps[record.ID] = record
	return s.persist()
}

func (s *Store) ListTaps(_ context.Context) ([]store.TapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taps := make([]store.TapRecord, 0, len(s.taps))
	for _, record := range s.taps {
		taps = append(taps, record)
	}
	sort.Slice(taps, func(i, j int) bool {
		return taps[i].CreatedAt.Before(taps[j].CreatedAt)
	})
	return taps, nil
}

func (s *Store) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.taps {
		if !record.ExpiresAt.After(now) {
			delete(s.taps, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persist()
}

func (s *Store) load() error {
	file, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var state persistedState
	if err := json.Unmarshal(file, &state); err != nil {
		return err
	}
	if state.Contacts != nil {
		s.contacts = state.Contacts
	}
	if state.Taps != nil {
		s.taps = state.Taps
	}
	return nil
}

func (s *Store) persist() error {
	state := persistedState{
		Contacts: s.contacts,
		Taps:     s.taps,
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.stateFile + ".tmp"
	if err := os.WriteFile(tmp, payload, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.stateFile)
}
