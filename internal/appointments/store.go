package appointments

import (
	"context"
	"sync"
)

// Store persists appointments. Implementations enforce the (practitioner, date, start time)
// uniqueness on Create; they do not deduplicate by id.
type Store interface {
	// List returns every appointment in storage order.
	List(ctx context.Context) ([]Appointment, error)
	// Create appends appt, or returns ErrCollision when its slot is taken.
	Create(ctx context.Context, appt Appointment) error
	// Cancel removes the appointment with id, or returns ErrNotFound.
	Cancel(ctx context.Context, id string) error
}

// MemoryStore keeps appointments in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Appointment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, appt Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hasSlotClash(s.items, appt) {
		return ErrCollision
	}
	s.items = append(s.items, appt)
	return nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, removed := withoutID(s.items, id)
	if !removed {
		return ErrNotFound
	}
	s.items = remaining
	return nil
}
