package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func sampleRecord(examID string) *Record {
	return &Record{
		ExamID:        examID,
		Subtype:       domain.EVAPORATIVE,
		SeverityStage: domain.STAGE_2,
		ContributingFactors: []domain.Axis{
			domain.AXIS_INTERFERENCE,
			domain.AXIS_DROPOUT,
		},
		InterferenceGrade: 1,
		StainingComposite: 3,
		PlanSteps: []domain.TreatmentStep{
			{Intervention: "Warm compresses with lid massage 2x daily", Citation: "DEWS3-MGMT-2.3"},
		},
		RepeatMeasurement: false,
		EngineVersion:     "dews3-2025.1",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	record := sampleRecord("exam-001")

	err := store.Save(ctx, record)
	require.NoError(t, err)
	assert.NotZero(t, record.ID, "ID should be assigned")
	assert.False(t, record.CreatedAt.IsZero(), "CreatedAt should be set")

	got, err := store.Get(ctx, "exam-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.EVAPORATIVE, got.Subtype)
	assert.Equal(t, domain.STAGE_2, got.SeverityStage)
	assert.Equal(t, record.ContributingFactors, got.ContributingFactors)
	assert.Equal(t, record.PlanSteps, got.PlanSteps)
}

func TestSQLiteStore_SaveOverwritesSameExam(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := sampleRecord("exam-001")
	require.NoError(t, store.Save(ctx, record))
	originalID := record.ID

	time.Sleep(10 * time.Millisecond)

	updated := sampleRecord("exam-001")
	updated.Subtype = domain.MIXED
	updated.SeverityStage = domain.STAGE_3
	require.NoError(t, store.Save(ctx, updated))

	assert.Equal(t, originalID, updated.ID, "re-running an exam must update, not duplicate")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "exam-001")
	require.NoError(t, err)
	assert.Equal(t, domain.MIXED, got.Subtype)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "no-such-exam")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"exam-a", "exam-b", "exam-c"} {
		require.NoError(t, store.Save(ctx, sampleRecord(id)))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	record := sampleRecord("exam-001")
	require.NoError(t, store.Save(ctx, record))

	require.NoError(t, store.Delete(ctx, record.ID))

	got, err := store.Get(ctx, "exam-001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ExportImportRoundTrip(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()
	for _, id := range []string{"exam-a", "exam-b"} {
		require.NoError(t, source.Save(ctx, sampleRecord(id)))
	}

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, sampleRecord("exam-a")))

	imported, skipped, err := target.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported, "only the new exam is imported")
	assert.Equal(t, 1, skipped, "existing exam IDs are skipped")

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
