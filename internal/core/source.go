package core

// source.go turns an uploaded file into an immutable SourceData: named,
// header-indexed rows plus a whole-file content digest. The digest is
// computed over the canonical serialization of the rows, not the raw
// bytes, so a re-export with a different BOM or line endings still
// counts as the same source.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// MaxHeaderSearchRows is the maximum number of rows to scan for the header.
var MaxHeaderSearchRows = 20

// SourceData is one uploaded tabular source. Created once per upload,
// read-only thereafter.
type SourceData struct {
	Name   string
	Header []string
	Rows   []Row
	Lines  []int // 1-based source line of each row

	digestOnce sync.Once
	digest     string
}

// ReadCSVSource parses data into a SourceData for a category expecting
// the given header columns. The header row may be preceded by title or
// note rows; empty rows are skipped.
func ReadCSVSource(name string, data []byte, expected []string) (*SourceData, error) {
	records, err := parseCSV(sanitizeUTF8(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: empty file", name)
	}

	headerIdx := findHeaderInRecords(records, expected)
	if headerIdx < 0 {
		return nil, fmt.Errorf("parse %s: header not found (expected: %v)", name, expected)
	}

	header := records[headerIdx]
	index := MakeHeaderIndex(header)

	src := &SourceData{Name: name, Header: header}
	for i, rec := range records[headerIdx+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(Row, len(index))
		for key, pos := range index {
			if pos < len(rec) {
				row[key] = CleanCell(rec[pos])
			}
		}
		src.Rows = append(src.Rows, row)
		src.Lines = append(src.Lines, headerIdx+i+2) // 1-indexed, after header
	}

	return src, nil
}

// Digest returns the whole-file content digest, computed once.
func (s *SourceData) Digest() string {
	s.digestOnce.Do(func() {
		h := xxhash.New()
		for _, row := range s.Rows {
			keys := make([]string, 0, len(row))
			for k := range row {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				h.WriteString(k)
				h.WriteString("=")
				h.WriteString(row[k])
				h.WriteString("\x1f")
			}
			h.WriteString("\n")
		}
		s.digest = fmt.Sprintf("%016x", h.Sum64())
	})
	return s.digest
}

func sanitizeUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func findHeaderInRecords(records [][]string, required []string) int {
	maxRows := MaxHeaderSearchRows
	if len(records) < maxRows {
		maxRows = len(records)
	}

	for i := 0; i < maxRows; i++ {
		if equalHeaders(records[i], required) {
			return i
		}
	}
	return -1
}

func equalHeaders(a, b []string) bool {
	if len(a) < len(b) {
		return false
	}

	for i := range b {
		if !strings.EqualFold(CleanCell(a[i]), CleanCell(b[i])) {
			return false
		}
	}
	return true
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
