package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fever-diagnosis/internal/config"
	"fever-diagnosis/internal/logger"
	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/ml"
	"fever-diagnosis/internal/repository"
	"fever-diagnosis/internal/service"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// app holds what every subcommand needs: config, logger and the local database.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func bootstrap(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := repository.NewSQLiteDB(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return nil, err
	}

	return &app{cfg: cfg, logger: log, db: db}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) modelParams() ml.Params {
	return ml.Params{
		C:         a.cfg.Model.C,
		Gamma:     a.cfg.Model.Gamma,
		Tolerance: a.cfg.Model.Tolerance,
		MaxIter:   a.cfg.Model.MaxIter,
		CacheRows: a.cfg.Model.CacheRows,
	}
}

// train reads the training table once and fits the classifier. The table lives
// in the local SQLite file unless training.driver is postgres.
func (a *app) train(ctx context.Context, m *metrics.Metrics) (*ml.SVC, *service.TrainingReport, error) {
	db := a.db
	if a.cfg.Training.Driver == "postgres" {
		pg, err := repository.NewPostgresDB(a.cfg.Training.DSN, a.logger)
		if err != nil {
			return nil, nil, err
		}
		defer pg.Close()
		db = pg
	}

	source, err := repository.NewTrainingRepository(db, a.cfg.Training.Table, a.cfg.Training.LabelColumn, a.logger)
	if err != nil {
		return nil, nil, err
	}

	return service.NewTrainer(source, a.modelParams(), m, a.logger).Train(ctx)
}
