// Package export renders ledger entries as a table: CSV for download, a
// workbook for spreadsheet users and plain string rows for the Google
// Sheets mirror.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"ledger/internal/core"
)

// Header is the fixed first row of every export.
var Header = []string{
	"Date", "Type", "Description", "Category", "Amount",
	"Split With", "Split Amount", "Split Status", "Net Amount",
}

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Filename returns the artifact name for a month, e.g. expenses_2026_01.csv.
func Filename(year, month int, format string) string {
	return fmt.Sprintf("expenses_%d_%02d.%s", year, month, format)
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Sorted returns a copy of entries ordered by occurredOn. Comparing the
// YYYY-MM-DD strings is chronological, and the sort is stable so same-day
// entries keep their input order.
func Sorted(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredOn.String() < out[j].OccurredOn.String()
	})
	return out
}

// Rows returns the header followed by one row of unescaped cells per entry.
func Rows(entries []core.Entry) ([][]string, error) {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, Header)
	for _, e := range Sorted(entries) {
		row, err := record(e)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func record(e core.Entry) ([]string, error) {
	if err := core.CheckIntegrity(e); err != nil {
		return nil, err
	}
	var splitWith, splitAmount, splitStatus string
	if e.Split != nil {
		splitWith = e.Split.With
		splitAmount = e.Split.Amount.String()
		splitStatus = string(e.Split.Status)
	}
	return []string{
		e.OccurredOn.String(),
		string(e.Kind),
		e.Description,
		string(e.Category),
		e.Signed(e.Amount).String(),
		splitWith,
		splitAmount,
		splitStatus,
		e.Signed(e.Net()).String(),
	}, nil
}

// WriteCSV writes entries as CSV. The description is always quoted; the
// split party is quoted only when it needs to be. Lines are separated by
// "\n" with no trailing newline.
func WriteCSV(w io.Writer, entries []core.Entry) error {
	rows, err := Rows(entries)
	if err != nil {
		return err
	}
	lines := make([]string, len(rows))
	lines[0] = strings.Join(Header, ",")
	for i, row := range rows[1:] {
		cells := make([]string, len(row))
		copy(cells, row)
		cells[2] = quote(cells[2])
		cells[5] = quoteIfNeeded(cells[5])
		lines[i+1] = strings.Join(cells, ",")
	}
	_, err = io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
