// Package tables reads the static tab-separated reference tables that feed
// the propfinder stores.
//
// Tables use the KGTK edge layout: a header row naming the columns
// (node1, label, node2, ...) followed by one record per line. Files ending in
// ".gz" are decompressed transparently.
package tables

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single record; descriptions can be long.
const maxLineSize = 4 * 1024 * 1024

// ErrMissingColumn is returned when a required column is not in the header.
var ErrMissingColumn = errors.New("missing column")

// Row is one record of a table, addressed by column name.
type Row struct {
	columns map[string]int
	fields  []string

	// Line is the 1-based line number of the record (header is line 1).
	Line int
}

// Get returns the value of the named column, or "" if the record is short.
func (r Row) Get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Open opens a file for reading, decompressing it when the name ends in ".gz".
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// ReadFile streams every record of the table at path to fn. The header must
// contain all required columns.
func ReadFile(path string, required []string, fn func(Row) error) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if err := Read(rc, required, fn); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// Read streams every record of a tab-separated table to fn.
func Read(r io.Reader, required []string, fn func(Row) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return fmt.Errorf("empty table: no header row")
	}

	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		row := Row{
			columns: columns,
			fields:  strings.Split(text, "\t"),
			Line:    line,
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

// Unquote strips the quoting from a KGTK string or language-tagged literal:
// 'birth date'@en becomes birth date. Values without quoting are returned
// unchanged.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}

	switch s[0] {
	case '\'':
		end := strings.LastIndex(s, "'@")
		if end <= 0 {
			end = strings.LastIndexByte(s, '\'')
		}
		if end <= 0 {
			return s
		}
		return strings.ReplaceAll(s[1:end], `\'`, `'`)
	case '"':
		if s[len(s)-1] != '"' {
			return s
		}
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
