package plan

// Plan is a validated plan. Exactly one variant exists per operator.
type Plan interface {
	Operator() Operator
}

type Argmax struct {
	Metric  string
	GroupBy string
}

type Argmin struct {
	Metric  string
	GroupBy string
}

// Lookup keeps the filter as given; its shape is checked at execution.
type Lookup struct {
	Metric string
	Filter map[string]any
}

type Sum struct{ Metric string }

type Mean struct{ Metric string }

type Count struct{ Metric string }

// SalesDiagnostics carries an optional target; empty means resolve automatically.
type SalesDiagnostics struct {
	Target string
}

type Chat struct {
	Reply string
}

type Clean struct {
	ProblemType string
	Target      string
}

func (Argmax) Operator() Operator           { return OpArgmax }
func (Argmin) Operator() Operator           { return OpArgmin }
func (Lookup) Operator() Operator           { return OpLookup }
func (Sum) Operator() Operator              { return OpSum }
func (Mean) Operator() Operator             { return OpMean }
func (Count) Operator() Operator            { return OpCount }
func (SalesDiagnostics) Operator() Operator { return OpSalesDiagnostics }
func (Chat) Operator() Operator             { return OpChat }
func (Clean) Operator() Operator            { return OpClean }

// Parse validates raw against the dataset columns and converts it into its typed
// variant. Every failure is a *ValidationError.
func Parse(raw RawPlan, columns ColumnSet) (Plan, error) {
	if err := Validate(raw, columns); err != nil {
		return nil, err
	}

	op := Operator(raw.Operator)
	switch op {
	case OpArgmax, OpArgmin:
		metric, err := require(op, "metric", raw.Metric)
		if err != nil {
			return nil, err
		}
		groupBy, err := require(op, "group_by", raw.GroupBy)
		if err != nil {
			return nil, err
		}
		if op == OpArgmax {
			return Argmax{Metric: metric, GroupBy: groupBy}, nil
		}
		return Argmin{Metric: metric, GroupBy: groupBy}, nil
	case OpLookup:
		metric, err := require(op, "metric", raw.Metric)
		if err != nil {
			return nil, err
		}
		if raw.Filter == nil {
			return nil, invalid("Operator %s requires 'filter'", op)
		}
		return Lookup{Metric: metric, Filter: raw.Filter}, nil
	case OpSum, OpMean, OpCount:
		metric, err := require(op, "metric", raw.Metric)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpSum:
			return Sum{Metric: metric}, nil
		case OpMean:
			return Mean{Metric: metric}, nil
		default:
			return Count{Metric: metric}, nil
		}
	case OpSalesDiagnostics:
		return SalesDiagnostics{Target: deref(raw.Target)}, nil
	case OpChat:
		return Chat{Reply: deref(raw.Reply)}, nil
	case OpClean:
		return Clean{ProblemType: deref(raw.ProblemType), Target: deref(raw.Target)}, nil
	}
	return nil, invalid("Unsupported operator: %s", raw.Operator)
}

func require(op Operator, field string, v *string) (string, error) {
	if v == nil || *v == "" {
		return "", invalid("Operator %s requires '%s'", op, field)
	}
	return *v, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
