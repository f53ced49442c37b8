// Package repository persists raw exam measurement sets in PostgreSQL
// for server deployments. Classification outcomes live in the history
// store; this package keeps the inputs so an exam can be re-assessed
// after a guideline or threshold revision.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// ExamRepository handles measurement set persistence
type ExamRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewExamRepository creates a new exam repository
func NewExamRepository(db *pgxpool.Pool, logger *logrus.Logger) *ExamRepository {
	return &ExamRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts or replaces the measurement set for an exam
func (r *ExamRepository) Save(ctx context.Context, m *domain.MeasurementSet) error {
	stainingJSON, err := json.Marshal(m.Staining)
	if err != nil {
		return fmt.Errorf("encoding staining observations: %w", err)
	}

	var symptomsJSON []byte
	if m.Symptoms != nil {
		symptomsJSON, err = json.Marshal(m.Symptoms)
		if err != nil {
			return fmt.Errorf("encoding symptom scores: %w", err)
		}
	}

	query := `
		INSERT INTO exams (
			exam_id, interference_pattern, tear_breakup_time_sec,
			osmolarity_mosm, meibomian_dropout_pct, staining,
			schirmer_mm, meniscus_height_mm, symptoms, collected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (exam_id) DO UPDATE SET
			interference_pattern = EXCLUDED.interference_pattern,
			tear_breakup_time_sec = EXCLUDED.tear_breakup_time_sec,
			osmolarity_mosm = EXCLUDED.osmolarity_mosm,
			meibomian_dropout_pct = EXCLUDED.meibomian_dropout_pct,
			staining = EXCLUDED.staining,
			schirmer_mm = EXCLUDED.schirmer_mm,
			meniscus_height_mm = EXCLUDED.meniscus_height_mm,
			symptoms = EXCLUDED.symptoms,
			collected_at = EXCLUDED.collected_at,
			updated_at = NOW()`

	_, err = r.db.Exec(ctx, query,
		m.ExamID,
		string(m.Pattern),
		m.TearBreakupTimeSec,
		m.OsmolarityMOsm,
		m.MeibomianDropout,
		stainingJSON,
		m.SchirmerMM,
		m.MeniscusHeightMM,
		symptomsJSON,
		m.CollectedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"exam_id": m.ExamID,
			"error":   err,
		}).Error("Failed to save exam measurements")
		return fmt.Errorf("saving exam measurements: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"exam_id": m.ExamID,
		"pattern": m.Pattern,
	}).Info("Exam measurements saved")

	return nil
}

// GetByExamID retrieves the measurement set for an exam
func (r *ExamRepository) GetByExamID(ctx context.Context, examID string) (*domain.MeasurementSet, error) {
	query := `
		SELECT exam_id, interference_pattern, tear_breakup_time_sec,
			   osmolarity_mosm, meibomian_dropout_pct, staining,
			   schirmer_mm, meniscus_height_mm, symptoms, collected_at
		FROM exams
		WHERE exam_id = $1`

	var m domain.MeasurementSet
	var pattern string
	var stainingJSON, symptomsJSON []byte

	err := r.db.QueryRow(ctx, query, examID).Scan(
		&m.ExamID,
		&pattern,
		&m.TearBreakupTimeSec,
		&m.OsmolarityMOsm,
		&m.MeibomianDropout,
		&stainingJSON,
		&m.SchirmerMM,
		&m.MeniscusHeightMM,
		&symptomsJSON,
		&m.CollectedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("exam not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"exam_id": examID,
			"error":   err,
		}).Error("Failed to get exam measurements")
		return nil, fmt.Errorf("getting exam measurements: %w", err)
	}

	m.Pattern = domain.InterferencePattern(pattern)
	if err := json.Unmarshal(stainingJSON, &m.Staining); err != nil {
		return nil, fmt.Errorf("decoding staining observations: %w", err)
	}
	if len(symptomsJSON) > 0 {
		m.Symptoms = &domain.SymptomScores{}
		if err := json.Unmarshal(symptomsJSON, m.Symptoms); err != nil {
			return nil, fmt.Errorf("decoding symptom scores: %w", err)
		}
	}

	return &m, nil
}

// ListRecent retrieves the most recently collected exams with pagination
func (r *ExamRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.MeasurementSet, error) {
	query := `
		SELECT exam_id, interference_pattern, tear_breakup_time_sec,
			   osmolarity_mosm, meibomian_dropout_pct, staining,
			   schirmer_mm, meniscus_height_mm, symptoms, collected_at
		FROM exams
		ORDER BY collected_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("Failed to list exams")
		return nil, fmt.Errorf("listing exams: %w", err)
	}
	defer rows.Close()

	var exams []*domain.MeasurementSet
	for rows.Next() {
		var m domain.MeasurementSet
		var pattern string
		var stainingJSON, symptomsJSON []byte

		err := rows.Scan(
			&m.ExamID,
			&pattern,
			&m.TearBreakupTimeSec,
			&m.OsmolarityMOsm,
			&m.MeibomianDropout,
			&stainingJSON,
			&m.SchirmerMM,
			&m.MeniscusHeightMM,
			&symptomsJSON,
			&m.CollectedAt,
		)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"error": err,
			}).Error("Failed to scan exam row")
			return nil, fmt.Errorf("scanning exam row: %w", err)
		}

		m.Pattern = domain.InterferencePattern(pattern)
		if err := json.Unmarshal(stainingJSON, &m.Staining); err != nil {
			return nil, fmt.Errorf("decoding staining observations: %w", err)
		}
		if len(symptomsJSON) > 0 {
			m.Symptoms = &domain.SymptomScores{}
			if err := json.Unmarshal(symptomsJSON, m.Symptoms); err != nil {
				return nil, fmt.Errorf("decoding symptom scores: %w", err)
			}
		}

		exams = append(exams, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exam rows: %w", err)
	}

	return exams, nil
}

// CountBySubtypeSince reports how many stored assessments resolved to each
// subtype since the given time. Used by the reference endpoints for a
// coarse clinic-level overview.
func (r *ExamRepository) CountBySubtypeSince(ctx context.Context, since time.Time) (map[domain.Subtype]int64, error) {
	query := `
		SELECT a.subtype, COUNT(*)
		FROM assessments a
		JOIN exams e ON e.exam_id = a.exam_id
		WHERE e.collected_at >= $1
		GROUP BY a.subtype`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("counting assessments by subtype: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Subtype]int64)
	for rows.Next() {
		var subtype string
		var count int64
		if err := rows.Scan(&subtype, &count); err != nil {
			return nil, fmt.Errorf("scanning subtype count: %w", err)
		}
		counts[domain.Subtype(subtype)] = count
	}

	return counts, rows.Err()
}

// Delete removes the measurement set for an exam
func (r *ExamRepository) Delete(ctx context.Context, examID string) error {
	query := `DELETE FROM exams WHERE exam_id = $1`

	result, err := r.db.Exec(ctx, query, examID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"exam_id": examID,
			"error":   err,
		}).Error("Failed to delete exam")
		return fmt.Errorf("deleting exam: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("exam not found: %w", domain.ErrNotFound)
	}

	r.log.WithFields(logrus.Fields{
		"exam_id": examID,
	}).Info("Exam deleted")

	return nil
}
