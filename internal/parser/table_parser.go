package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"vectora-backend/internal/dataset"
)

var ErrEmptyTable = errors.New("table has no header row")

// Index columns that spreadsheet exports leave behind.
var discardedColumns = []string{"Unnamed: 0", "Unnamed: 17"}

var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
	"none": true,
	"n/a":  true,
}

type TableParser interface {
	Parse(r io.Reader) (*dataset.Dataset, error)
}

type csvTableParser struct{}

type xlsxTableParser struct{}

func NewCSVParser() TableParser  { return &csvTableParser{} }
func NewXLSXParser() TableParser { return &xlsxTableParser{} }

// ForFilename picks a parser from the file extension. Unknown extensions are read as CSV.
func ForFilename(name string) TableParser {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return NewXLSXParser()
	default:
		return NewCSVParser()
	}
}

func (p *csvTableParser) Parse(r io.Reader) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return buildDataset(rows)
}

func (p *xlsxTableParser) Parse(r io.Reader) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return buildDataset(rows)
}

// NormalizeColumnName replaces newlines, slashes and hyphens with spaces and trims the result.
func NormalizeColumnName(name string) string {
	r := strings.NewReplacer("\n", " ", "/", " ", "-", " ")
	return strings.TrimSpace(r.Replace(name))
}

// Prepare applies the upload preprocessing: drop leftover index columns and
// every row that still contains a null.
func Prepare(d *dataset.Dataset) *dataset.Dataset {
	d = d.DropColumns(discardedColumns...)
	keep := make([]int, 0, d.NumRows())
	for r := 0; r < d.NumRows(); r++ {
		complete := true
		for c := 0; c < d.NumCols(); c++ {
			if d.ColumnAt(c).Cells[r].Null {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	if dropped := d.NumRows() - len(keep); dropped > 0 {
		log.Debug().Int("rows_dropped", dropped).Msg("Dropped rows with missing values during upload")
	}
	return d.SelectRows(keep)
}

func buildDataset(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	header := rows[0]
	body := rows[1:]

	columns := make([]*dataset.Column, len(header))
	for i, h := range header {
		name := NormalizeColumnName(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		raw := make([]string, len(body))
		for r, row := range body {
			if i < len(row) {
				raw[r] = row[i]
			}
		}
		columns[i] = inferColumn(name, raw)
	}
	return dataset.New(columns...)
}

// inferColumn makes a numeric column when every non-null value parses as a float.
func inferColumn(name string, raw []string) *dataset.Column {
	nums := make([]float64, len(raw))
	numeric := false
	for i, v := range raw {
		v = strings.TrimSpace(v)
		if isNull(v) {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
		numeric = true
	}

	col := &dataset.Column{Name: name, Cells: make([]dataset.Cell, len(raw))}
	if numeric {
		col.Kind = dataset.Numeric
	}
	for i, v := range raw {
		trimmed := strings.TrimSpace(v)
		switch {
		case isNull(trimmed):
			col.Cells[i] = dataset.NullCell()
		case numeric:
			col.Cells[i] = dataset.NumCell(nums[i])
		default:
			col.Cells[i] = dataset.TextCell(v)
		}
	}
	return col
}

func isNull(v string) bool {
	return nullTokens[strings.ToLower(v)]
}
