package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/config"
	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
)

func testCLI(t *testing.T) (*CLI, *config.LiteConfig) {
	t.Helper()
	cfg := &config.LiteConfig{
		DataDir:       t.TempDir(),
		PlanCacheSize: 8,
		LogLevel:      "error",
		LogFormat:     "text",
	}
	return NewCLI(cfg), cfg
}

func seedHistory(t *testing.T, cfg *config.LiteConfig, examID string) {
	t.Helper()
	require.NoError(t, cfg.EnsureDataDir())

	store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
	require.NoError(t, err)
	defer store.Close()

	record := &history.Record{
		ExamID:              examID,
		Subtype:             domain.EVAPORATIVE,
		SeverityStage:       domain.STAGE_2,
		ContributingFactors: []domain.Axis{domain.AXIS_DROPOUT},
		InterferenceGrade:   1,
		PlanSteps: []domain.TreatmentStep{
			{Intervention: "Warm compresses and lid hygiene", Citation: "DEWS3-MGMT-2.1"},
		},
		EngineVersion: "dews3-2025.1",
	}
	require.NoError(t, store.Save(context.Background(), record))
}

func TestCLI_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	cli, cfg := testCLI(t)
	seedHistory(t, cfg, "exam-cli-001")

	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, cli.Run(ctx, []string{"export", exportPath}))
	assert.FileExists(t, exportPath)

	// Import into a fresh data directory.
	otherCLI, otherCfg := testCLI(t)
	require.NoError(t, otherCLI.Run(ctx, []string{"import", exportPath}))

	store, err := history.NewSQLiteStore(otherCfg.HistoryDBPath())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "exam-cli-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.EVAPORATIVE, got.Subtype)

	// Re-importing skips the existing exam rather than duplicating it.
	require.NoError(t, otherCLI.Run(ctx, []string{"import", exportPath}))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCLI_ExportDefaultPath(t *testing.T) {
	ctx := context.Background()
	cli, cfg := testCLI(t)
	seedHistory(t, cfg, "exam-cli-002")

	require.NoError(t, cli.Run(ctx, []string{"export"}))

	entries, err := filepath.Glob(filepath.Join(cfg.ExportDir(), "assessments-*.json"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCLI_Status(t *testing.T) {
	cli, cfg := testCLI(t)
	seedHistory(t, cfg, "exam-cli-003")

	assert.NoError(t, cli.Run(context.Background(), []string{"status"}))
}

func TestCLI_UnknownCommandShowsHelp(t *testing.T) {
	cli, _ := testCLI(t)
	assert.NoError(t, cli.Run(context.Background(), []string{"bogus"}))
}

func TestCLI_ImportRequiresPath(t *testing.T) {
	cli, _ := testCLI(t)
	assert.Error(t, cli.Run(context.Background(), []string{"import"}))
}
