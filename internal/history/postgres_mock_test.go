package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// These tests exercise the PostgreSQL store against a mocked driver so the
// SQL paths run in CI without a database. The env-gated tests in
// postgres_test.go cover the same store against a real instance.

func setupMockDB(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	return store, mock
}

func TestPostgresStore_Save_UsesUpsert(t *testing.T) {
	store, mock := setupMockDB(t)
	defer store.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO assessments .+ ON CONFLICT \(exam_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	record := sampleRecord("exam-mock-001")
	require.NoError(t, store.Save(context.Background(), record))

	assert.Equal(t, int64(7), record.ID)
	assert.Equal(t, now, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_DecodesJSONColumns(t *testing.T) {
	store, mock := setupMockDB(t)
	defer store.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "exam_id", "subtype", "severity_stage", "contributing_factors",
		"interference_grade", "staining_composite", "plan_steps",
		"repeat_measurement", "engine_version", "clinician_note",
		"created_at", "updated_at",
	}).AddRow(
		int64(3), "exam-mock-002", "EVAPORATIVE", 2,
		`["interference","meibomian_dropout"]`,
		1, 4.0,
		`[{"intervention":"Warm compresses and lid hygiene","citation":"DEWS3-MGMT-2.1"}]`,
		false, "dews3-2025.1", "",
		now, now,
	)

	mock.ExpectQuery(`(?s)SELECT .+ FROM assessments.+WHERE exam_id = `).
		WithArgs("exam-mock-002").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "exam-mock-002")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, domain.EVAPORATIVE, got.Subtype)
	assert.Equal(t, []domain.Axis{domain.AXIS_INTERFERENCE, domain.AXIS_DROPOUT}, got.ContributingFactors)
	require.Len(t, got.PlanSteps, 1)
	assert.Equal(t, "DEWS3-MGMT-2.1", got.PlanSteps[0].Citation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NoRows(t *testing.T) {
	store, mock := setupMockDB(t)
	defer store.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM assessments`).
		WithArgs("exam-mock-404").
		WillReturnError(sql.ErrNoRows)

	got, err := store.Get(context.Background(), "exam-mock-404")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := setupMockDB(t)
	defer store.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM assessments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := setupMockDB(t)
	defer store.Close()

	mock.ExpectExec("DELETE FROM assessments WHERE id = ").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
