package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
	ErrColumnNotFound  = errors.New("column not found")
)

// Kind is the inferred type of a column. Every cell of a column shares it.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Cell holds one value. Num is meaningful for Numeric columns, Text for Text columns.
type Cell struct {
	Num  float64
	Text string
	Null bool
}

func NumCell(v float64) Cell { return Cell{Num: v} }
func TextCell(s string) Cell { return Cell{Text: s} }
func NullCell() Cell         { return Cell{Null: true} }

// Column is a named, homogeneously typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NewNumericColumn builds a numeric column; NaN entries become nulls.
func NewNumericColumn(name string, values ...float64) *Column {
	cells := make([]Cell, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			cells[i] = NullCell()
			continue
		}
		cells[i] = NumCell(v)
	}
	return &Column{Name: name, Kind: Numeric, Cells: cells}
}

// NewTextColumn builds a text column with no nulls.
func NewTextColumn(name string, values ...string) *Column {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = TextCell(v)
	}
	return &Column{Name: name, Kind: Text, Cells: cells}
}

func (c *Column) Len() int { return len(c.Cells) }

// NonNullCount counts the cells that hold a value.
func (c *Column) NonNullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Null {
			n++
		}
	}
	return n
}

func (c *Column) HasNulls() bool {
	return c.NonNullCount() != len(c.Cells)
}

// Value returns the Go value of row i: nil, float64 or string.
func (c *Column) Value(i int) any {
	cell := c.Cells[i]
	switch {
	case cell.Null:
		return nil
	case c.Kind == Numeric:
		return cell.Num
	default:
		return cell.Text
	}
}

// Format renders row i the way it is written to CSV. Nulls render empty.
func (c *Column) Format(i int) string {
	cell := c.Cells[i]
	if cell.Null {
		return ""
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(cell.Num, 'f', -1, 64)
	}
	return cell.Text
}

func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// Dataset is an ordered set of uniquely named columns of equal length.
// Rows are identified only by position.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, exists := d.index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if len(d.columns) > 0 && c.Len() != d.columns[0].Len() {
			return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrRaggedColumns, c.Name, c.Len(), d.columns[0].Len())
		}
		d.index[c.Name] = len(d.columns)
		d.columns = append(d.columns, c)
	}
	return d, nil
}

// MustNew is New for literals in tests and fixtures.
func MustNew(columns ...*Column) *Dataset {
	d, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dataset) NumRows() int {
	if len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

func (d *Dataset) NumCols() int { return len(d.columns) }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the named column. The returned column is shared; callers that
// mutate must work on a Clone.
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return d.columns[i], nil
}

// ColumnAt returns the i-th column.
func (d *Dataset) ColumnAt(i int) *Column { return d.columns[i] }

// NumericColumns lists numeric column names in column order.
func (d *Dataset) NumericColumns() []string {
	var names []string
	for _, c := range d.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	cols := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = c.clone()
	}
	return MustNew(cols...)
}

// SelectRows returns a new dataset holding the given rows in the given order.
func (d *Dataset) SelectRows(rows []int) *Dataset {
	cols := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		cells := make([]Cell, len(rows))
		for j, r := range rows {
			cells[j] = c.Cells[r]
		}
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return MustNew(cols...)
}

// DropColumns returns a dataset without the named columns. Unknown names are ignored.
func (d *Dataset) DropColumns(names ...string) *Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var cols []*Column
	for _, c := range d.columns {
		if !drop[c.Name] {
			cols = append(cols, c.clone())
		}
	}
	return MustNew(cols...)
}

// RowKey returns a string identifying the full content of row i, used for
// exact duplicate detection. Text is quoted so no cell content can contain a
// bare separator.
func (d *Dataset) RowKey(i int) string {
	var b strings.Builder
	for _, c := range d.columns {
		cell := c.Cells[i]
		switch {
		case cell.Null:
			b.WriteString("\x00")
		case c.Kind == Numeric:
			b.WriteString(strconv.FormatFloat(cell.Num, 'g', -1, 64))
		default:
			b.WriteString(strconv.Quote(cell.Text))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Record returns row i as a field -> value mapping.
func (d *Dataset) Record(i int) map[string]any {
	rec := make(map[string]any, len(d.columns))
	for _, c := range d.columns {
		rec[c.Name] = c.Value(i)
	}
	return rec
}
