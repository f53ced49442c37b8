package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL, for
// multi-clinic deployments where assessments are shared across instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store. It expects the
// schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates the record for an exam.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()
	factorsJSON, stepsJSON, err := encodeRecord(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (
			exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (exam_id) DO UPDATE SET
			subtype = EXCLUDED.subtype,
			severity_stage = EXCLUDED.severity_stage,
			contributing_factors = EXCLUDED.contributing_factors,
			interference_grade = EXCLUDED.interference_grade,
			staining_composite = EXCLUDED.staining_composite,
			plan_steps = EXCLUDED.plan_steps,
			repeat_measurement = EXCLUDED.repeat_measurement,
			engine_version = EXCLUDED.engine_version,
			clinician_note = EXCLUDED.clinician_note,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		record.ExamID,
		string(record.Subtype),
		int(record.SeverityStage),
		factorsJSON,
		record.InterferenceGrade,
		record.StainingComposite,
		stepsJSON,
		record.RepeatMeasurement,
		record.EngineVersion,
		record.ClinicianNote,
		now,
		now,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// Get retrieves the record for an exam ID.
func (s *PostgresStore) Get(ctx context.Context, examID string) (*Record, error) {
	query := `
		SELECT id, exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		FROM assessments
		WHERE exam_id = $1
		LIMIT 1
	`

	r := &Record{}
	var subtype string
	var stage int
	var factorsJSON, stepsJSON string

	err := s.db.QueryRowContext(ctx, query, examID).Scan(
		&r.ID, &r.ExamID, &subtype, &stage,
		&factorsJSON, &r.InterferenceGrade, &r.StainingComposite,
		&stepsJSON, &r.RepeatMeasurement, &r.EngineVersion,
		&r.ClinicianNote, &r.CreatedAt, &r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	r.Subtype = domain.Subtype(subtype)
	r.SeverityStage = domain.SeverityStage(stage)
	if err := json.Unmarshal([]byte(factorsJSON), &r.ContributingFactors); err != nil {
		return nil, fmt.Errorf("failed to decode contributing factors: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &r.PlanSteps); err != nil {
		return nil, fmt.Errorf("failed to decode plan steps: %w", err)
	}
	return r, nil
}

// List returns records ordered newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		FROM assessments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the total number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id)
	return err
}

// ExportJSON exports all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, r := range export.Records {
		existing, err := s.Get(ctx, r.ExamID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, r); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
