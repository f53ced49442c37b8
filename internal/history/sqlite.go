package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. It is the default
// backend for single-clinic deployments that need no database server.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store. It creates the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record, decoding the JSON columns.
func scanRecord(s scanner) (*Record, error) {
	r := &Record{}
	var subtype string
	var stage int
	var factorsJSON, stepsJSON string

	err := s.Scan(
		&r.ID, &r.ExamID, &subtype, &stage,
		&factorsJSON, &r.InterferenceGrade, &r.StainingComposite,
		&stepsJSON, &r.RepeatMeasurement, &r.EngineVersion,
		&r.ClinicianNote, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
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

func encodeRecord(r *Record) (factorsJSON, stepsJSON string, err error) {
	factors, err := json.Marshal(r.ContributingFactors)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode contributing factors: %w", err)
	}
	steps, err := json.Marshal(r.PlanSteps)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode plan steps: %w", err)
	}
	return string(factors), string(steps), nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL UNIQUE,
		subtype TEXT NOT NULL,
		severity_stage INTEGER NOT NULL,
		contributing_factors TEXT NOT NULL DEFAULT '[]',
		interference_grade INTEGER NOT NULL DEFAULT 0,
		staining_composite REAL NOT NULL DEFAULT 0,
		plan_steps TEXT NOT NULL DEFAULT '[]',
		repeat_measurement INTEGER NOT NULL DEFAULT 0,
		engine_version TEXT NOT NULL DEFAULT '',
		clinician_note TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_subtype ON assessments(subtype);
	CREATE INDEX IF NOT EXISTS idx_assessments_stage ON assessments(severity_stage);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the record for an exam.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()
	factorsJSON, stepsJSON, err := encodeRecord(record)
	if err != nil {
		return err
	}

	var existingID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM assessments WHERE exam_id = ?",
		record.ExamID,
	).Scan(&existingID)

	if err == nil {
		record.ID = existingID
		record.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE assessments SET
				subtype = ?,
				severity_stage = ?,
				contributing_factors = ?,
				interference_grade = ?,
				staining_composite = ?,
				plan_steps = ?,
				repeat_measurement = ?,
				engine_version = ?,
				clinician_note = ?,
				updated_at = ?
			WHERE id = ?
		`,
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
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id

	return nil
}

// Get retrieves the record for an exam ID.
func (s *SQLiteStore) Get(ctx context.Context, examID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		FROM assessments
		WHERE exam_id = ?
		LIMIT 1
	`, examID)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return r, nil
}

// List returns records ordered newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exam_id, subtype, severity_stage, contributing_factors,
			interference_grade, staining_composite, plan_steps,
			repeat_measurement, engine_version, clinician_note,
			created_at, updated_at
		FROM assessments
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
