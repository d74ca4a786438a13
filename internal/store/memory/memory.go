package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tapwire/internal/store"
)

type Store struct {
	mu       sync.Mutex
	contacts map[string]store.Contact
	taps     map[string]store.TapRecord
}

func New() *Store {
	return &Store{
		contacts: map[string]store.Contact{},
		taps:     map[string]store.TapRecord{},
	}
}

func (s *Store) SaveContact(_ context.Context, contact store.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.UserID] = contact
	return nil
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
	return nil
}

func (s *Store) AppendTap(_ context.Context, record store.TapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.taps[record.ID]; exists {
		return store.ErrConflict
	}
	s.taps[record.ID] = record
	return nil
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
	return removed, nil
}
