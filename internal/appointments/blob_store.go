package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Blob is a single key-value slot holding the whole serialized collection.
// Read returns nil data and no error when the slot has never been written.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// BlobStore implements Store as read-modify-write over one Blob.
// Writers in this process are serialized; writers in other processes are not,
// so the last write wins.
type BlobStore struct {
	blob   Blob
	tracer trace.Tracer
	mu     sync.Mutex
}

// NewBlobStore wraps blob. A nil tracer falls back to the global provider.
func NewBlobStore(blob Blob, tracer trace.Tracer) *BlobStore {
	if blob == nil {
		panic("appointments: blob cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("healthylife.internal.appointments")
	}
	return &BlobStore{blob: blob, tracer: tracer}
}

func (s *BlobStore) List(ctx context.Context) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.list")
	defer span.End()

	items, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("appointments.count", len(items)))
	return items, nil
}

func (s *BlobStore) Create(ctx context.Context, appt Appointment) error {
	ctx, span := s.tracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointments.gp_id", appt.GPID),
		attribute.String("appointments.date", appt.Date),
		attribute.String("appointments.start_time", appt.StartTime),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if hasSlotClash(items, appt) {
		return ErrCollision
	}
	if err := s.save(ctx, append(items, appt)); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *BlobStore) Cancel(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointments.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	remaining, removed := withoutID(items, id)
	if !removed {
		return ErrNotFound
	}
	if err := s.save(ctx, remaining); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *BlobStore) load(ctx context.Context) ([]Appointment, error) {
	data, err := s.blob.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to read collection: %w", err)
	}
	if len(data) == 0 {
		return []Appointment{}, nil
	}
	var items []Appointment
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode collection: %w", err)
	}
	if items == nil {
		items = []Appointment{}
	}
	return items, nil
}

func (s *BlobStore) save(ctx context.Context, items []Appointment) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("appointments: failed to encode collection: %w", err)
	}
	if err := s.blob.Write(ctx, data); err != nil {
		return fmt.Errorf("appointments: failed to persist collection: %w", err)
	}
	return nil
}
