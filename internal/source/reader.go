// Package source reads delimited extract files: it decodes the upstream
// Latin-1 encoding, normalizes the header, and iterates rows one at a time.
package source

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// Options configures a Reader.
type Options struct {
	Delimiter rune   // default ','
	Encoding  string // "latin1" (default for the upstream extracts) or "utf8"
}

// Reader iterates one delimited file. The header row is consumed at
// construction; fields are addressed by normalized column name.
type Reader struct {
	cr     *csv.Reader
	closer io.Closer
	header []string
	colIdx map[string]int
	line   int
}

// Open opens a file and wraps it in a Reader.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	r, err := New(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// New builds a Reader over an arbitrary stream and consumes the header row.
func New(r io.Reader, opts Options) (*Reader, error) {
	if strings.EqualFold(opts.Encoding, "latin1") || strings.EqualFold(opts.Encoding, "iso-8859-1") {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // allow variable fields

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "source: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &Reader{
		cr:     cr,
		header: header,
		colIdx: mapColumns(header),
		line:   1,
	}, nil
}

// Columns returns the normalized header names in file order.
func (r *Reader) Columns() []string {
	cols := make([]string, len(r.header))
	for i, c := range r.header {
		cols[i] = normalizeCol(c)
	}
	return cols
}

// HasColumn reports whether the file carries the named column.
func (r *Reader) HasColumn(name string) bool {
	_, ok := r.colIdx[normalizeCol(name)]
	return ok
}

// Next returns the next data row, or io.EOF when exhausted. Parse errors
// on individual rows are returned with the row counted; callers treat them
// as row-level rejections and keep reading.
func (r *Reader) Next() ([]string, error) {
	record, err := r.cr.Read()
	r.line++
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: read row %d", r.line)
	}
	return record, nil
}

// Line returns the 1-based line number of the most recently read row.
func (r *Reader) Line() int {
	return r.line
}

// Get returns the named column's value from a row, or "" when the column
// is missing from the file or the row is short.
func (r *Reader) Get(row []string, name string) string {
	idx, ok := r.colIdx[normalizeCol(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// normalizeCol matches the upstream convention: trimmed, upper-cased names.
func normalizeCol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// mapColumns builds a normalized column name → index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}
