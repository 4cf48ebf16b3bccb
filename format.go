package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/igs-tools/igsup/internal/batch"
)

// renderTable writes a rounded-border table to w. Short rows are padded
// to the header width.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	columns := len(headers)
	if columns == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	fmt.Fprintln(w, tw.Render())
}

// printSummary renders the end-of-run per-row summary table.
func printSummary(w io.Writer, results []batch.RowResult) {
	rows := make([][]string, 0, len(results))

	for _, res := range results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}

		rows = append(rows, []string{
			res.NotificationID,
			strings.Join(res.Files, ","),
			strconv.Itoa(res.ValidFiles) + "/" + strconv.Itoa(len(res.Files)),
			res.TransactionID,
			res.Status,
			detail,
		})
	}

	renderTable(w,
		[]string{"Notification", "Files", "Valid", "Transaction", "Status", "Detail"},
		rows)
}
