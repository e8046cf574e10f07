package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	uniqueViolation    = "23505"
	slotConstraintName = "appointments_slot_key"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists appointments in the appointments table.
// The slot triple is protected by a unique index, so concurrent writers cannot double book.
type PostgresStore struct {
	db     pgxQuerier
	tracer trace.Tracer
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool)
}

func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	return &PostgresStore{db: q, tracer: otel.Tracer("healthylife.internal.appointments")}
}

func (s *PostgresStore) List(ctx context.Context) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.list")
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id, gp_id, patient_name, to_char(appt_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), kind
		FROM appointments
		ORDER BY seq
	`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list query failed: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		var a Appointment
		var kind string
		if err := rows.Scan(&a.ID, &a.GPID, &a.PatientName, &a.Date, &a.StartTime, &kind); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		a.Type = Kind(kind)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list rows failed: %w", err)
	}
	span.SetAttributes(attribute.Int("appointments.count", len(out)))
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, appt Appointment) error {
	ctx, span := s.tracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointments.gp_id", appt.GPID),
		attribute.String("appointments.date", appt.Date),
		attribute.String("appointments.start_time", appt.StartTime),
	)

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (id, gp_id, patient_name, appt_date, start_time, kind)
		VALUES ($1, $2, $3, $4::date, $5::time, $6)
	`, appt.ID, appt.GPID, appt.PatientName, appt.Date, appt.StartTime, string(appt.Type))
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slotConstraintName {
		return ErrCollision
	}
	span.RecordError(err)
	return fmt.Errorf("appointments: insert failed: %w", err)
}

func (s *PostgresStore) Cancel(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointments.id", id))

	tag, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
