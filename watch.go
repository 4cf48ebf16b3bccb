package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// newWatchCmd builds the watch command: observe a drop directory and run
// a batch for every metadata file that appears in it.
func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and process each new metadata CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}

			logger.Info("watching for metadata files", slog.String("dir", dir))

			ctx := cmd.Context()

			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}

					if !event.Has(fsnotify.Create) || !strings.HasSuffix(strings.ToLower(event.Name), ".csv") {
						continue
					}

					logger.Info("metadata file detected", slog.String("path", event.Name))

					if err := executeBatch(ctx, cfg, logger, event.Name); err != nil {
						logger.Error("batch failed",
							slog.String("path", event.Name),
							slog.String("error", err.Error()),
						)
					}
				case watchErr, ok := <-watcher.Errors:
					if !ok {
						return nil
					}

					logger.Error("watcher error", slog.String("error", watchErr.Error()))
				}
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch for metadata CSV files (required)")
	_ = cmd.MarkFlagRequired("dir") //nolint:errcheck // flag exists

	return cmd
}
