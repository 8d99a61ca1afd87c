package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize is the default upload limit (1000 MiB).
const DefaultMaxFileSize int64 = 1000 << 20

// ReadFile loads a workbook or CSV from disk according to its extension.
// The size limit is checked against the file size before anything is parsed.
func ReadFile(path string, limit int64) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", filepath.Base(path), info.Size(), limit, ErrFileTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadNamed(filepath.Base(path), f, limit)
}

// ReadNamed dispatches on the file name extension.
func ReadNamed(name string, r io.Reader, limit int64) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(r, limit)
	case ".csv":
		return ReadCSV(r, limit)
	default:
		return nil, fmt.Errorf("unsupported file type %q: %w", filepath.Ext(name), ErrMalformedFile)
	}
}

// ReadWorkbook reads the data sheet of an xlsx workbook into a raw table
// of text cells. The first sheet whose header row contains a known source
// column is used; otherwise the first sheet.
func ReadWorkbook(r io.Reader, limit int64) (*Table, error) {
	data, err := readLimited(r, limit)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %v: %w", err, ErrMalformedFile)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrMalformedFile)
	}

	var rows [][]string
	for i, name := range sheets {
		sheetRows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if i == 0 {
			rows = sheetRows
		}
		if len(sheetRows) > 0 && hasKnownHeader(sheetRows[0]) {
			rows = sheetRows
			break
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no header row: %w", ErrMalformedFile)
	}
	return rawTable(rows[0], rows[1:]), nil
}

// ReadCSV reads a comma separated file with a header row. A UTF-8 byte
// order mark is skipped.
func ReadCSV(r io.Reader, limit int64) (*Table, error) {
	data, err := readLimited(r, limit)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %v: %w", err, ErrMalformedFile)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row: %w", ErrMalformedFile)
	}
	return rawTable(records[0], records[1:]), nil
}

// readLimited buffers at most limit bytes and fails with ErrFileTooLarge
// if the input is longer.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input larger than %d bytes: %w", limit, ErrFileTooLarge)
	}
	return data, nil
}

func hasKnownHeader(header []string) bool {
	for _, h := range header {
		if _, ok := sourceColumns[strings.TrimSpace(h)]; ok {
			return true
		}
	}
	return false
}

// rawTable builds a table of string cells. Blank headers are named
// column_N and repeated headers get a numeric suffix.
func rawTable(header []string, records [][]string) *Table {
	seen := make(map[string]int)
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		base := name
		for n := 1; seen[name] > 0; n++ {
			name = base + "." + strconv.Itoa(n)
		}
		seen[name]++
		names[i] = name
	}

	t := NewTable(names...)
	for _, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		row := make([]Value, len(names))
		for j := range names {
			if j < len(rec) && strings.TrimSpace(rec[j]) != "" {
				row[j] = String(rec[j])
			}
		}
		t.AppendRow(row...)
	}
	return t
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// IsInputError reports whether err was caused by the input file rather
// than by the program.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMalformedFile) || errors.Is(err, ErrFileTooLarge) || IsSchemaError(err)
}
