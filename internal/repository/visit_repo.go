package repository

import (
	"context"
	"fmt"
	"time"

	"fever-diagnosis/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// VisitRepository stores visits in the patients table
type VisitRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// visitRow mirrors the patients table; diagnosis_date is stored as text
type visitRow struct {
	ID            int64  `db:"id"`
	FIO           string `db:"fio"`
	BirthDate     string `db:"birth_date"`
	DiagnosisDate string `db:"diagnosis_date"`
	Diagnosis     int    `db:"diagnosis"`
}

// NewVisitRepository creates a new repository
func NewVisitRepository(db *sqlx.DB, logger *zap.Logger) *VisitRepository {
	return &VisitRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a visit and sets its ID. The insert is a single statement, so
// either the whole row becomes visible or nothing does.
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO patients (fio, birth_date, diagnosis_date, diagnosis)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		visit.FIO,
		visit.BirthDate,
		visit.DiagnosisDate.Format(models.DiagnosisDateLayout),
		int(visit.Diagnosis),
	)
	if err != nil {
		return fmt.Errorf("failed to save visit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	visit.ID = id
	return nil
}

// List returns every visit, most recent first
func (r *VisitRepository) List(ctx context.Context) ([]*models.Visit, error) {
	query := `
		SELECT id, fio, birth_date, diagnosis_date, diagnosis
		FROM patients
		ORDER BY id DESC
	`

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}

	visits := make([]*models.Visit, 0, len(rows))
	for _, row := range rows {
		diagnosis, err := models.ParseDiagnosis(row.Diagnosis)
		if err != nil {
			r.logger.Error("Failed to read visit", zap.Int64("id", row.ID), zap.Error(err))
			continue
		}
		visits = append(visits, &models.Visit{
			ID:            row.ID,
			FIO:           row.FIO,
			BirthDate:     row.BirthDate,
			DiagnosisDate: r.parseDiagnosisDate(row),
			Diagnosis:     diagnosis,
		})
	}

	return visits, nil
}

// Count returns the number of stored visits
func (r *VisitRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM patients"); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return total, nil
}

var diagnosisDateLayouts = []string{
	models.DiagnosisDateLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseDiagnosisDate also accepts rows written without fractional seconds
func (r *VisitRepository) parseDiagnosisDate(row visitRow) time.Time {
	for _, layout := range diagnosisDateLayouts {
		if t, err := time.ParseInLocation(layout, row.DiagnosisDate, time.Local); err == nil {
			return t
		}
	}
	r.logger.Warn("Unparseable diagnosis date",
		zap.Int64("id", row.ID),
		zap.String("diagnosis_date", row.DiagnosisDate))
	return time.Time{}
}
