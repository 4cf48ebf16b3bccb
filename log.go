package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/igs-tools/igsup/internal/audit"
)

// newLogCmd builds the log command: show recent audit ledger records.
func newLogCmd() *cobra.Command {
	var (
		limit   int
		auditDB string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			if auditDB != "" {
				cfg.AuditDB = auditDB
			}

			ledger, err := audit.Open(cmd.Context(), cfg.AuditDB, logger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			records, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Timestamp.Format(time.RFC3339),
					rec.Filename,
					rec.NotificationID,
					rec.TransactionID,
					strings.Join(rec.DocumentReferenceIDs, ","),
					rec.Status,
				})
			}

			renderTable(os.Stdout,
				[]string{"Timestamp", "File(s)", "Notification", "Transaction", "Documents", "Status"},
				rows)

			if len(records) == 0 {
				cmd.Println("no audit records (limit " + strconv.Itoa(limit) + ")")
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to show")
	cmd.Flags().StringVar(&auditDB, "log-db", "", "audit ledger path (overrides config)")

	return cmd
}
