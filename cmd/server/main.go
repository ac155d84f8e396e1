// Package main provides the fever-diagnosis binary entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"fever-diagnosis/internal/handler"
	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/repository"
	"fever-diagnosis/internal/server"
	"fever-diagnosis/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "fever-diagnosis"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Fever diagnosis web form",
		Long: `Fever diagnosis records patient visits with 13 temperature readings,
classifies each visit as healthy or sick with an RBF support-vector
classifier fitted at startup, and stores the result in SQLite.

Running without a subcommand is the same as "serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yml", "Config file path (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Fit the classifier and start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "train",
			Short: "Fit the classifier on the training table and print a report",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTrain(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the patients table",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	logger.Info("Starting fever diagnosis service...", zap.String("version", Version))

	if err := repository.MigrateDB(app.db, logger); err != nil {
		logger.Error("Failed to migrate database", zap.Error(err))
		return err
	}

	m := metrics.New()

	// Serving starts only after the classifier has been fitted.
	model, _, err := app.train(ctx, m)
	if err != nil {
		logger.Error("Failed to train classifier", zap.Error(err))
		return err
	}

	visits := repository.NewVisitRepository(app.db, logger)
	diagnoser, err := service.NewDiagnoser(model, visits, m, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize diagnoser: %w", err)
	}

	srv, err := server.NewServer(app.cfg.Server.Port, handler.NewHandler(diagnoser, m, logger), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Fever diagnosis service is running",
		zap.String("port", app.cfg.Server.Port),
		zap.Int("support_vectors", model.Info().SupportVectors))

	return srv.Run(ctx, app.cfg.Server.ShutdownTimeout)
}

func runTrain(ctx context.Context, configPath string) error {
	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	_, report, err := app.train(ctx, nil)
	if err != nil {
		return err
	}

	fmt.Printf("rows:            %d (healthy %d, sick %d)\n", report.Rows, report.Healthy, report.Sick)
	fmt.Printf("accuracy:        %.4f\n", report.Accuracy)
	fmt.Printf("support vectors: %d\n", report.Model.SupportVectors)
	fmt.Printf("gamma:           %g\n", report.Model.Gamma)
	fmt.Printf("duration:        %s\n", report.Duration)
	return nil
}

func runMigrate(configPath string) error {
	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	return repository.MigrateDB(app.db, app.logger)
}
