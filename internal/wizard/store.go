package wizard

import (
	"context"
	"encoding/json"
	"sync"
)

// Keys under which the drafts are persisted, shared by every Store.
const (
	ContactKey     = "hotelReservation_contactInfo"
	ReservationKey = "hotelReservation_reservationInfo"
)

// Store is a string key/value store scoped to one guest session.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps values in process. Used in tests and when no cache is
// configured.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// persistedDrafts is what survives a reload.
type persistedDrafts struct {
	contact     Contact
	reservation persistedReservation
}

type persistedReservation struct {
	SpecialRequests string `json:"specialRequests,omitempty"`
}

func (p persistedDrafts) empty() bool {
	return p.contact == (Contact{}) && p.reservation == (persistedReservation{})
}

// writeDrafts stores the drafts in every configured store. Failures are
// logged by the caller and never block the flow.
func writeDrafts(ctx context.Context, stores []Store, p persistedDrafts) error {
	contact, err := json.Marshal(p.contact)
	if err != nil {
		return err
	}
	reservation, err := json.Marshal(p.reservation)
	if err != nil {
		return err
	}
	var firstErr error
	for _, s := range stores {
		if err := s.Set(ctx, ContactKey, string(contact)); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.Set(ctx, ReservationKey, string(reservation)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// readDrafts returns the drafts from the first store that holds a parseable
// contact record.
func readDrafts(ctx context.Context, stores []Store) (persistedDrafts, bool) {
	for _, s := range stores {
		raw, ok, err := s.Get(ctx, ContactKey)
		if err != nil || !ok || raw == "" {
			continue
		}
		var p persistedDrafts
		if err := json.Unmarshal([]byte(raw), &p.contact); err != nil {
			continue
		}
		if rawRes, ok, err := s.Get(ctx, ReservationKey); err == nil && ok && rawRes != "" {
			_ = json.Unmarshal([]byte(rawRes), &p.reservation)
		}
		return p, true
	}
	return persistedDrafts{}, false
}

func clearDrafts(ctx context.Context, stores []Store) error {
	var firstErr error
	for _, s := range stores {
		for _, key := range []string{ContactKey, ReservationKey} {
			if err := s.Remove(ctx, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
