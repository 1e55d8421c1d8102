package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Row maps a header column name to the cell text of one data line.
type Row map[string]string

// ErrBadHeader means the header line itself could not be parsed.
var ErrBadHeader = errors.New("csv header line is unreadable")

// Rows lazily reads r as CSV with a header line. The sequence is single pass.
// A malformed line yields a *csv.ParseError and reading continues with the
// next line; an unreadable header or an I/O error is yielded once and ends it.
// Columns the header does not name read as empty cells, so such rows fail
// validation downstream instead of failing the whole file.
func Rows(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("%w: %w", ErrBadHeader, err))
			return
		}

		header = normalizeHeader(header)

		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					if !yield(nil, err) {
						return
					}
					continue
				}

				yield(nil, err)
				return
			}

			if !yield(toRow(header, record), nil) {
				return
			}
		}
	}
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		out[i] = strings.ToLower(strings.TrimSpace(col))
	}
	return out
}

// toRow pads short lines with empty cells and drops cells past the header.
func toRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(record) {
			row[col] = record[i]
		} else {
			row[col] = ""
		}
	}
	return row
}
