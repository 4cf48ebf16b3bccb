package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/igs-tools/igsup/internal/audit"
	"github.com/igs-tools/igsup/internal/auth"
	"github.com/igs-tools/igsup/internal/batch"
	"github.com/igs-tools/igsup/internal/config"
	"github.com/igs-tools/igsup/internal/demis"
	"github.com/igs-tools/igsup/internal/notification"
	"github.com/igs-tools/igsup/internal/upload"
)

// newRunCmd builds the run command: one batch over one metadata file.
func newRunCmd() *cobra.Command {
	var (
		csvPath string
		auditDB string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload sequence files and submit notifications for a metadata file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			if auditDB != "" {
				cfg.AuditDB = auditDB
			}

			return executeBatch(cmd.Context(), cfg, logger, csvPath)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the metadata CSV file (required)")
	cmd.Flags().StringVar(&auditDB, "log-db", "", "audit ledger path (overrides config)")
	_ = cmd.MarkFlagRequired("csv") //nolint:errcheck // flag exists

	return cmd
}

// executeBatch wires the components and runs one batch. Only a missing
// metadata file is fatal here; every per-file and per-row failure is
// reported and the batch continues.
func executeBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, csvPath string) error {
	// The token refresher lives exactly as long as this batch. Without the
	// derived context, watch mode would leak one refresh loop per file.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("metadata file not found: %w", err)
	}

	rows, err := notification.ReadCSV(csvPath)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		logger.Warn("metadata file contains no rows", slog.String("path", csvPath))

		return nil
	}

	mtlsClient, err := auth.NewMTLSClient(cfg.Certificate, cfg.Key)
	if err != nil {
		return err
	}

	store := auth.NewStore()

	manager, err := auth.NewManager(store, mtlsClient, auth.Options{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
	}, logger)
	if err != nil {
		return err
	}

	// A failed first acquisition is not fatal: subsequent calls fail with
	// a reported auth error per file/row, matching the failure policy.
	_ = manager.Start(ctx) //nolint:errcheck // logged inside Start

	ledger, err := audit.Open(ctx, cfg.AuditDB, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	client := demis.NewClient(cfg.BaseURL, mtlsClient, store, logger)
	pipeline := upload.NewPipeline(client, logger)
	builder := notification.NewBuilder(cfg.BaseURL)
	runner := batch.NewRunner(pipeline, builder, client, ledger, batch.ReadsDir(csvPath), logger)

	results := runner.Run(ctx, rows)

	printSummary(os.Stdout, results)

	return nil
}
