// Package history provides persistent storage for completed dry eye
// assessments. The classification pipeline itself never touches storage;
// callers record results here after the pipeline returns, so history is an
// audit trail rather than a correctness dependency.
package history

import (
	"context"
	"io"
	"time"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// Record is one persisted assessment outcome for an exam.
type Record struct {
	ID                  int64                  `json:"id,omitempty"`
	ExamID              string                 `json:"exam_id"`
	Subtype             domain.Subtype         `json:"subtype"`
	SeverityStage       domain.SeverityStage   `json:"severity_stage"`
	ContributingFactors []domain.Axis          `json:"contributing_factors"`
	InterferenceGrade   int                    `json:"interference_grade"`
	StainingComposite   float64                `json:"staining_composite"`
	PlanSteps           []domain.TreatmentStep `json:"plan_steps"`
	RepeatMeasurement   bool                   `json:"repeat_measurement"`
	EngineVersion       string                 `json:"engine_version"`
	ClinicianNote       string                 `json:"clinician_note,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// NewRecord builds a history record from pipeline outputs.
func NewRecord(result *domain.ClassificationResult, plan *domain.TreatmentPlan) *Record {
	return &Record{
		ExamID:              result.ExamID,
		Subtype:             result.Subtype,
		SeverityStage:       result.SeverityStage,
		ContributingFactors: result.ContributingFactors,
		InterferenceGrade:   result.Grade.Grade,
		StainingComposite:   result.Staining.Composite,
		PlanSteps:           plan.Steps,
		RepeatMeasurement:   plan.RepeatMeasurement,
		EngineVersion:       result.EngineVersion,
	}
}

// Store defines the interface for assessment history storage.
type Store interface {
	// Save stores or updates the record for an exam. A record with the
	// same exam ID is overwritten: re-running an exam replaces its
	// previous outcome.
	Save(ctx context.Context, record *Record) error

	// Get retrieves the record for an exam ID. Returns nil, nil when no
	// record exists.
	Get(ctx context.Context, examID string) (*Record, error)

	// List returns records ordered newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports records from a JSON reader, skipping exam IDs
	// that already exist. Returns the number imported and skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export envelope.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
