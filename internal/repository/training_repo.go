package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fever-diagnosis/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver for external training stores
	"go.uber.org/zap"
)

// ErrEmptyTrainingSet is returned when the training table has no rows
var ErrEmptyTrainingSet = errors.New("training table is empty")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TrainingRepository reads the pre-labeled observations. It never writes.
type TrainingRepository struct {
	db          *sqlx.DB
	table       string
	labelColumn string
	logger      *zap.Logger
}

// NewTrainingRepository validates the table and label column names
func NewTrainingRepository(db *sqlx.DB, table, labelColumn string, logger *zap.Logger) (*TrainingRepository, error) {
	for _, name := range []string{table, labelColumn} {
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("invalid SQL identifier %q", name)
		}
	}
	return &TrainingRepository{
		db:          db,
		table:       table,
		labelColumn: labelColumn,
		logger:      logger,
	}, nil
}

// NewPostgresDB connects to an external PostgreSQL training store.
func NewPostgresDB(dataSourceName string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to training database: %w", err)
	}

	logger.Info("Successfully connected to the training database")
	return db, nil
}

func (r *TrainingRepository) selectQuery() string {
	columns := make([]string, 0, models.FeatureCount+1)
	for _, name := range models.FeatureNames() {
		columns = append(columns, `"`+name+`"`)
	}
	columns = append(columns, `"`+r.labelColumn+`"`)
	return fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(columns, ", "), r.table)
}

// LoadObservations reads every row. Any NULL or non-numeric feature, any label other
// than 0/1, a missing column or an empty table is an error.
func (r *TrainingRepository) LoadObservations(ctx context.Context) ([]models.TrainingObservation, error) {
	rows, err := r.db.QueryxContext(ctx, r.selectQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query training data: %w", err)
	}
	defer rows.Close()

	var observations []models.TrainingObservation
	for rows.Next() {
		var obs models.TrainingObservation
		var label float64
		dest := make([]any, 0, models.FeatureCount+1)
		for i := range obs.Temperatures {
			dest = append(dest, &obs.Temperatures[i])
		}
		dest = append(dest, &label)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("training row %d: %w", len(observations)+1, err)
		}
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("training row %d: label %v is not 0 or 1", len(observations)+1, label)
		}
		obs.Label = models.Diagnosis(int(label))
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read training data: %w", err)
	}
	if len(observations) == 0 {
		return nil, ErrEmptyTrainingSet
	}

	r.logger.Info("Training data loaded",
		zap.String("table", r.table),
		zap.Int("rows", len(observations)))
	return observations, nil
}
