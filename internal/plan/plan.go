package plan

import (
	"fmt"
	"sort"
)

type Operator string

const (
	OpArgmax           Operator = "argmax"
	OpArgmin           Operator = "argmin"
	OpLookup           Operator = "lookup"
	OpSalesDiagnostics Operator = "sales_diagnostics"
	OpChat             Operator = "chat"
	OpSum              Operator = "sum"
	OpMean             Operator = "mean"
	OpCount            Operator = "count"
	OpClean            Operator = "clean"
)

// Operators is the closed operator vocabulary, in the order the planner is told about it.
var Operators = []Operator{
	OpArgmax, OpArgmin, OpLookup, OpSalesDiagnostics, OpChat,
	OpSum, OpMean, OpCount, OpClean,
}

func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}
	return false
}

// RawPlan is the untrusted planner output as decoded from JSON.
type RawPlan struct {
	Operator    string         `json:"operator"`
	Metric      *string        `json:"metric,omitempty"`
	GroupBy     *string        `json:"group_by,omitempty"`
	Filter      map[string]any `json:"filter,omitempty"`
	Target      *string        `json:"target,omitempty"`
	ProblemType *string        `json:"problem_type,omitempty"`
	Reply       *string        `json:"reply,omitempty"`
}

// ValidationError is the recoverable failure of a plan. Its message is shown to the user.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ColumnSet is the part of a dataset the validator needs.
type ColumnSet interface {
	HasColumn(name string) bool
}

// Validate checks the operator and every referenced column. It stops at the first
// violation: missing operator, unknown operator, metric, group_by, then filter columns.
func Validate(raw RawPlan, columns ColumnSet) error {
	if raw.Operator == "" {
		return invalid("Plan missing operator")
	}
	if !Operator(raw.Operator).Valid() {
		return invalid("Unsupported operator: %s", raw.Operator)
	}
	if raw.Metric != nil && !columns.HasColumn(*raw.Metric) {
		return columnNotFound(*raw.Metric)
	}
	if raw.GroupBy != nil && !columns.HasColumn(*raw.GroupBy) {
		return columnNotFound(*raw.GroupBy)
	}
	keys := make([]string, 0, len(raw.Filter))
	for k := range raw.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !columns.HasColumn(k) {
			return columnNotFound(k)
		}
	}
	return nil
}

func columnNotFound(name string) error {
	return invalid("Column '%s' not found in dataset", name)
}
