package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vectora-backend/internal/cleaning"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/diagnostics"
	"vectora-backend/internal/plan"
)

var (
	ErrNoMatchingRows   = errors.New("no rows match the lookup filter")
	ErrMalformedFilter  = errors.New("lookup filter must hold exactly one column")
	ErrNonNumericMetric = errors.New("metric column is not numeric")
	ErrNoValues         = errors.New("metric column has no values")
)

const degradedReply = "I couldn't process that request because of a data issue: %s. Please try asking about columns that exist in your file."

// Result is the outcome of one plan. Analysis mirrors the operator. Diagnostics
// fields are inlined for sales_diagnostics; Dataset is set only by clean.
type Result struct {
	Analysis plan.Operator `json:"analysis"`
	Entity   any           `json:"entity,omitempty"`
	Metric   string        `json:"metric,omitempty"`
	Value    *float64      `json:"value,omitempty"`
	Reply    string        `json:"reply,omitempty"`
	*diagnostics.Output
	Report *cleaning.Report `json:"report,omitempty"`

	Dataset  *dataset.Dataset `json:"-"`
	Degraded bool             `json:"-"`
}

// Run validates raw against ds and executes it. Recoverable problems come back as
// a degraded chat result; any returned error is fatal for the request.
func Run(raw plan.RawPlan, ds *dataset.Dataset) (*Result, error) {
	p, err := plan.Parse(raw, ds)
	if err != nil {
		var verr *plan.ValidationError
		if errors.As(err, &verr) {
			return degrade(verr.Reason), nil
		}
		return nil, err
	}

	res, err := Execute(p, ds)
	if errors.Is(err, diagnostics.ErrNoSalesColumn) {
		return degrade(err.Error()), nil
	}
	return res, err
}

func degrade(reason string) *Result {
	log.Debug().Str("reason", reason).Msg("Plan degraded to chat")
	return &Result{
		Analysis: plan.OpChat,
		Reply:    fmt.Sprintf(degradedReply, reason),
		Degraded: true,
	}
}

// Execute dispatches a parsed plan to its operator.
func Execute(p plan.Plan, ds *dataset.Dataset) (*Result, error) {
	switch p := p.(type) {
	case plan.Argmax:
		return extreme(ds, plan.OpArgmax, p.Metric, p.GroupBy, func(a, b float64) bool { return a > b })
	case plan.Argmin:
		return extreme(ds, plan.OpArgmin, p.Metric, p.GroupBy, func(a, b float64) bool { return a < b })
	case plan.Lookup:
		return lookup(ds, p)
	case plan.Sum:
		vals, err := numericValues(ds, p.Metric)
		if err != nil {
			return nil, err
		}
		return scalar(plan.OpSum, p.Metric, floats.Sum(vals)), nil
	case plan.Mean:
		vals, err := numericValues(ds, p.Metric)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoValues, p.Metric)
		}
		return scalar(plan.OpMean, p.Metric, stat.Mean(vals, nil)), nil
	case plan.Count:
		col, err := ds.Column(p.Metric)
		if err != nil {
			return nil, err
		}
		return scalar(plan.OpCount, p.Metric, float64(col.NonNullCount())), nil
	case plan.SalesDiagnostics:
		out, err := diagnostics.Analyze(ds, p.Target)
		if err != nil {
			return nil, err
		}
		return &Result{Analysis: plan.OpSalesDiagnostics, Output: out}, nil
	case plan.Chat:
		return &Result{Analysis: plan.OpChat, Reply: p.Reply}, nil
	case plan.Clean:
		cleaned, report := cleaning.Advanced(ds, cleaning.Options{
			ProblemType: cleaning.ProblemType(p.ProblemType),
			Target:      p.Target,
		})
		return &Result{Analysis: plan.OpClean, Report: report, Dataset: cleaned}, nil
	}
	return nil, fmt.Errorf("no executor for operator %s", p.Operator())
}

func scalar(op plan.Operator, metric string, v float64) *Result {
	return &Result{Analysis: op, Metric: metric, Value: &v}
}

// extreme returns the group_by value of the first row holding the extreme metric value.
func extreme(ds *dataset.Dataset, op plan.Operator, metric, groupBy string, better func(a, b float64) bool) (*Result, error) {
	col, err := numericColumn(ds, metric)
	if err != nil {
		return nil, err
	}
	group, err := ds.Column(groupBy)
	if err != nil {
		return nil, err
	}

	best := -1
	for i, cell := range col.Cells {
		if cell.Null {
			continue
		}
		if best < 0 || better(cell.Num, col.Cells[best].Num) {
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoValues, metric)
	}

	v := col.Cells[best].Num
	return &Result{Analysis: op, Entity: group.Value(best), Value: &v}, nil
}

// lookup reads metric from the first row matching the filter. The entity is the
// filter value as given.
func lookup(ds *dataset.Dataset, p plan.Lookup) (*Result, error) {
	if len(p.Filter) != 1 {
		keys := make([]string, 0, len(p.Filter))
		for k := range p.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: got %v", ErrMalformedFilter, keys)
	}
	var column string
	var want any
	for k, v := range p.Filter {
		column, want = k, v
	}

	filterCol, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	metricCol, err := numericColumn(ds, p.Metric)
	if err != nil {
		return nil, err
	}

	for i, cell := range filterCol.Cells {
		if cell.Null || !matches(filterCol.Kind, cell, want) {
			continue
		}
		if metricCol.Cells[i].Null {
			return nil, fmt.Errorf("%w: %q is empty for %s = %v", ErrNoValues, p.Metric, column, want)
		}
		v := metricCol.Cells[i].Num
		return &Result{Analysis: plan.OpLookup, Entity: want, Value: &v}, nil
	}
	return nil, fmt.Errorf("%w: %s = %v", ErrNoMatchingRows, column, want)
}

func matches(kind dataset.Kind, cell dataset.Cell, want any) bool {
	if kind == dataset.Numeric {
		switch w := want.(type) {
		case float64:
			return cell.Num == w
		case int:
			return cell.Num == float64(w)
		case string:
			f, err := strconv.ParseFloat(w, 64)
			return err == nil && cell.Num == f
		}
		return false
	}
	if s, ok := want.(string); ok {
		return cell.Text == s
	}
	return cell.Text == fmt.Sprint(want)
}

func numericColumn(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.Numeric {
		return nil, fmt.Errorf("%w: %q", ErrNonNumericMetric, name)
	}
	return col, nil
}

func numericValues(ds *dataset.Dataset, name string) ([]float64, error) {
	col, err := numericColumn(ds, name)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, 0, col.Len())
	for _, cell := range col.Cells {
		if !cell.Null {
			vals = append(vals, cell.Num)
		}
	}
	return vals, nil
}
