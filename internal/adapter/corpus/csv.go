// Package corpus ingests raw CDE tables into cleaned corpus records.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"cdesearch/internal/domain"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips HTML tags and collapses whitespace. Returns the empty
// string when nothing readable remains.
func CleanText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Loader reads CDE records from CSV files. The text column is required;
// when no id column is configured, the running row number across all
// loaded files becomes the record id. Rows whose cleaned text is empty
// are dropped, which leaves gaps in the id sequence; ids are opaque keys,
// not positions.
type Loader struct {
	textColumn string
	idColumn   string
}

func NewLoader(textColumn, idColumn string) *Loader {
	if textColumn == "" {
		textColumn = "Question Texts"
	}
	return &Loader{
		textColumn: textColumn,
		idColumn:   idColumn,
	}
}

// LoadResult reports what ingestion kept and dropped.
type LoadResult struct {
	Records []domain.Record
	Dropped int
}

// LoadFiles parses every file in order and returns the cleaned records.
func (l *Loader) LoadFiles(paths []string) (*LoadResult, error) {
	result := &LoadResult{}
	var row int64

	for _, path := range paths {
		if err := l.loadFile(path, &row, result); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return result, nil
}

func (l *Loader) loadFile(path string, row *int64, result *LoadResult) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	textCol := -1
	idCol := -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case l.textColumn:
			textCol = i
		case l.idColumn:
			if l.idColumn != "" {
				idCol = i
			}
		}
	}
	if textCol == -1 {
		return fmt.Errorf("column %q not found (available: %s)", l.textColumn, strings.Join(header, ", "))
	}

	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}

		id := *row
		*row++

		if idCol >= 0 && idCol < len(fields) {
			parsed, err := strconv.ParseInt(strings.TrimSpace(fields[idCol]), 10, 64)
			if err != nil {
				return fmt.Errorf("row %d: bad id %q: %w", *row-1, fields[idCol], err)
			}
			id = parsed
		}

		var text string
		if textCol < len(fields) {
			text = CleanText(fields[textCol])
		}
		if text == "" {
			result.Dropped++
			continue
		}

		result.Records = append(result.Records, domain.Record{ID: id, Text: text})
	}
	return nil
}
