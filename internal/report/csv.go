package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ReadCSV loads a table from disk. The first record is the field header; data
// rows without a name value become extra rows, preserved verbatim on merge.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := &Table{Fields: records[0]}
	nameIdx := -1
	for i, field := range t.Fields {
		if field == "name" {
			nameIdx = i
		}
	}
	for _, record := range records[1:] {
		row := make(Row, len(record))
		for i, field := range t.Fields {
			if i < len(record) && record[i] != "" {
				row[field] = record[i]
			}
		}
		if nameIdx >= 0 && nameIdx < len(record) && record[nameIdx] != "" {
			t.Rows = append(t.Rows, row)
		} else {
			t.Extra = append(t.Extra, row)
		}
	}
	return t, nil
}

// WriteCSV serializes the table atomically: the content is written to a temp
// file in the destination directory, synced, then renamed over the target, so
// a crashed run never leaves a half-written report behind. Rows are padded
// implicitly to the full field set; extra rows come last.
func WriteCSV(path string, t *Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".forkbench-tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Fields); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(record(t.Fields, row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	for _, row := range t.Extra {
		if err := w.Write(record(t.Fields, row)); err != nil {
			return fmt.Errorf("write extra row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func record(fields []string, row Row) []string {
	rec := make([]string, len(fields))
	for i, field := range fields {
		rec[i] = row[field]
	}
	return rec
}
