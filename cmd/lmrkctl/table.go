package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/lmrk/lmrkctl/pkg/api"
)

// renderRows prints a dynamic result set as a tab-aligned table.
// Column order follows the sorted keys of the first row, matching how
// the dashboard derived its table headers.
func renderRows(w io.Writer, rows api.Rows) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No rows.")
		return err
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)

	for _, row := range rows {
		for i, col := range columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprintf(tw, "%v", row[col])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
