package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentColumns = []string{"id", "gp_id", "patient_name", "appt_date", "start_time", "kind"}

func TestPostgresStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, gp_id, patient_name").
		WillReturnRows(pgxmock.NewRows(appointmentColumns).
			AddRow("a1", "gp1", "Jane Doe", "2024-06-10", "08:00", "FACE_TO_FACE").
			AddRow("a2", "gp3", "Ann Lee", "2024-06-11", "14:20", "TELEPHONE"))

	store := newPostgresStoreWithQuerier(mock)
	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Appointment{
		{ID: "a1", GPID: "gp1", PatientName: "Jane Doe", Date: "2024-06-10", StartTime: "08:00", Type: KindFaceToFace},
		{ID: "a2", GPID: "gp3", PatientName: "Ann Lee", Date: "2024-06-11", StartTime: "14:20", Type: KindTelephone},
	}, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateInsertsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	appt := janeDoe("a1")
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("a1", "gp1", "Jane Doe", "2024-06-10", "08:00", "FACE_TO_FACE").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := newPostgresStoreWithQuerier(mock)
	require.NoError(t, store.Create(context.Background(), appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateMapsSlotConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("a2", "gp1", "Jane Doe", "2024-06-10", "08:00", "FACE_TO_FACE").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_key"})

	store := newPostgresStoreWithQuerier(mock)
	err = store.Create(context.Background(), janeDoe("a2"))
	assert.True(t, errors.Is(err, ErrCollision))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDuplicateIDIsNotACollision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("a1", "gp1", "Jane Doe", "2024-06-10", "08:00", "FACE_TO_FACE").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_pkey"})

	store := newPostgresStoreWithQuerier(mock)
	err = store.Create(context.Background(), janeDoe("a1"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCollision))
	assert.Contains(t, err.Error(), "insert failed")
}

func TestPostgresStore_Cancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM appointments").WithArgs("a1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM appointments").WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := newPostgresStoreWithQuerier(mock)
	require.NoError(t, store.Cancel(context.Background(), "a1"))
	assert.True(t, errors.Is(store.Cancel(context.Background(), "missing"), ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, gp_id, patient_name").WillReturnError(errors.New("connection reset"))

	store := newPostgresStoreWithQuerier(mock)
	_, err = store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
