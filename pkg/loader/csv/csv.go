// Package csv renders CSV files as markdown tables, so each row reads as
// one sentence to the graph builder.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Extension is the file extension handled by Decode.
const Extension = ".csv"

// Decode parses content as CSV and renders it as a markdown table. The
// first non-empty record is the header. Blank records and malformed lines
// are skipped.
func Decode(content []byte) ([]byte, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	width := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if blank(record) {
			continue
		}
		rows = append(rows, record)
		width = max(width, len(record))
	}
	if len(rows) == 0 {
		return nil, errors.New("CSV file is empty or contains no valid data")
	}

	var out strings.Builder
	writeRow(&out, rows[0], width)
	out.WriteString("|")
	for range width {
		out.WriteString(" --- |")
	}
	out.WriteByte('\n')
	for _, r := range rows[1:] {
		writeRow(&out, r, width)
	}
	return []byte(out.String()), nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func writeRow(out *strings.Builder, record []string, width int) {
	out.WriteString("|")
	for i := range width {
		cell := ""
		if i < len(record) {
			cell = strings.TrimSpace(cellEscaper.Replace(record[i]))
		}
		out.WriteString(" ")
		out.WriteString(cell)
		out.WriteString(" |")
	}
	out.WriteByte('\n')
}
