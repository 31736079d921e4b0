package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readCSV returns one row per record keyed by header. Blank cells are
// omitted so that required-field checks see them as missing.
func readCSV(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}
	header = normalizeHeader(header)

	var rows []map[string]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record of %s: %w", path, err)
		}
		rows = append(rows, toRow(header, record))
	}
	return rows, nil
}

// readXLSX reads the first sheet; the first row is the header.
func readXLSX(path string) ([]map[string]interface{}, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	sheet := sheets[0]

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer iter.Close()

	var (
		header []string
		rows   []map[string]interface{}
	)
	for iter.Next() {
		record, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		if header == nil {
			header = normalizeHeader(record)
			continue
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, toRow(header, record))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", path, err)
	}
	return rows, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		// strip a leading UTF-8 BOM
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

func toRow(header, record []string) map[string]interface{} {
	row := make(map[string]interface{}, len(header))
	for i, col := range header {
		if col == "" || i >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[i]); v != "" {
			row[col] = v
		}
	}
	return row
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
