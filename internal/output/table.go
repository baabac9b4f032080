// Package output provides result rendering utilities for sqlrunner.
//
// This package includes:
//   - FormatRecords, the compact one-line form used in log records
//   - RenderResultTable, an aligned multi-line table for terminal reading
//   - Spinners for indeterminate startup operations
package output

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blackwell-systems/sqlrunner/internal/store"
)

// maxCellWidth bounds table cells; longer values are truncated.
const maxCellWidth = 40

// FormatRecords renders records as "[{a=1, b=x}, {a=2, b=y}]".
// Columns appear in result order and NULL is written as "null".
func FormatRecords(records []store.Record) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('{')
		for j, col := range r.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
			sb.WriteByte('=')
			sb.WriteString(formatValue(r.Values[j]))
		}
		sb.WriteByte('}')
	}
	sb.WriteByte(']')
	return sb.String()
}

// RenderResultTable renders records as an aligned table with a header,
// a rule line and a row-count footer. The header comes from the first
// record.
func RenderResultTable(records []store.Record) string {
	if len(records) == 0 {
		return "No rows.\n"
	}

	columns := records[0].Columns
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(truncate(col, maxCellWidth))
	}

	cells := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j := range columns {
			if j < len(r.Values) {
				row[j] = truncate(formatValue(r.Values[j]), maxCellWidth)
			}
			if n := utf8.RuneCountInString(row[j]); n > widths[j] {
				widths[j] = n
			}
		}
		cells[i] = row
	}

	var sb strings.Builder

	// Header
	total := 0
	for i, col := range columns {
		writeCell(&sb, truncate(col, maxCellWidth), widths[i], i == len(columns)-1)
		total += widths[i]
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", total+len(columns)-1))
	sb.WriteString("\n")

	// Rows
	for _, row := range cells {
		for j, cell := range row {
			writeCell(&sb, cell, widths[j], j == len(row)-1)
		}
		sb.WriteString("\n")
	}

	if len(records) == 1 {
		sb.WriteString("(1 row)\n")
	} else {
		sb.WriteString(fmt.Sprintf("(%d rows)\n", len(records)))
	}

	return sb.String()
}

// writeCell pads s to width runes; the last cell of a line is not padded.
func writeCell(sb *strings.Builder, s string, width int, last bool) {
	sb.WriteString(s)
	if last {
		return
	}
	sb.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(s)+1))
}

// formatValue converts a scanned column value to display text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
