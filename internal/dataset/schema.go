package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

const sampleRowCount = 3

// Schema is the summary of a dataset handed to the planner.
type Schema struct {
	Columns    []string         `json:"columns"`
	SampleRows []map[string]any `json:"sample_rows"`
}

// ExtractSchema projects the column names and the first three rows.
func ExtractSchema(d *Dataset) Schema {
	n := d.NumRows()
	if n > sampleRowCount {
		n = sampleRowCount
	}
	samples := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, d.Record(i))
	}
	return Schema{
		Columns:    d.Columns(),
		SampleRows: samples,
	}
}

// WriteCSV writes the dataset with a header row. Nulls are written as empty fields.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, d.NumCols())
	for r := 0; r < d.NumRows(); r++ {
		for c := range record {
			record[c] = d.ColumnAt(c).Format(r)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
