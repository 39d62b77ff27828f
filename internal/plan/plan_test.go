package plan_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/internal/plan"
)

type columns map[string]bool

func (c columns) HasColumn(name string) bool { return c[name] }

var salesColumns = columns{"Sales": true, "Region": true}

func str(s string) *string { return &s }

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		raw    plan.RawPlan
		reason string
	}{
		{name: "Valid sum", raw: plan.RawPlan{Operator: "sum", Metric: str("Sales")}},
		{name: "Valid chat without columns", raw: plan.RawPlan{Operator: "chat", Reply: str("hi")}},
		{name: "Missing operator", raw: plan.RawPlan{Metric: str("Sales")}, reason: "Plan missing operator"},
		{name: "Unknown operator", raw: plan.RawPlan{Operator: "median", Metric: str("Profit")}, reason: "Unsupported operator: median"},
		{name: "Missing metric column", raw: plan.RawPlan{Operator: "sum", Metric: str("Profit")}, reason: "Column 'Profit' not found in dataset"},
		{
			name:   "Metric checked before group_by",
			raw:    plan.RawPlan{Operator: "argmax", Metric: str("Profit"), GroupBy: str("City")},
			reason: "Column 'Profit' not found in dataset",
		},
		{
			name:   "Missing group_by column",
			raw:    plan.RawPlan{Operator: "argmax", Metric: str("Sales"), GroupBy: str("City")},
			reason: "Column 'City' not found in dataset",
		},
		{
			name:   "Missing filter column",
			raw:    plan.RawPlan{Operator: "lookup", Metric: str("Sales"), Filter: map[string]any{"City": "X"}},
			reason: "Column 'City' not found in dataset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plan.Validate(tt.raw, salesColumns)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var verr *plan.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected plan.Plan
	}{
		{
			name:     "Argmax",
			json:     `{"operator":"argmax","metric":"Sales","group_by":"Region"}`,
			expected: plan.Argmax{Metric: "Sales", GroupBy: "Region"},
		},
		{
			name:     "Argmin",
			json:     `{"operator":"argmin","metric":"Sales","group_by":"Region"}`,
			expected: plan.Argmin{Metric: "Sales", GroupBy: "Region"},
		},
		{
			name:     "Lookup",
			json:     `{"operator":"lookup","metric":"Sales","filter":{"Region":"B"}}`,
			expected: plan.Lookup{Metric: "Sales", Filter: map[string]any{"Region": "B"}},
		},
		{name: "Sum", json: `{"operator":"sum","metric":"Sales"}`, expected: plan.Sum{Metric: "Sales"}},
		{name: "Mean", json: `{"operator":"mean","metric":"Sales"}`, expected: plan.Mean{Metric: "Sales"}},
		{name: "Count", json: `{"operator":"count","metric":"Region"}`, expected: plan.Count{Metric: "Region"}},
		{
			name:     "Diagnostics with unknown target is left to resolution",
			json:     `{"operator":"sales_diagnostics","target":"Revenue"}`,
			expected: plan.SalesDiagnostics{Target: "Revenue"},
		},
		{name: "Chat", json: `{"operator":"chat","reply":"Hello!"}`, expected: plan.Chat{Reply: "Hello!"}},
		{
			name:     "Clean",
			json:     `{"operator":"clean","problem_type":"binary_classification","target":"Region"}`,
			expected: plan.Clean{ProblemType: "binary_classification", Target: "Region"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw plan.RawPlan
			require.NoError(t, json.Unmarshal([]byte(tt.json), &raw))

			p, err := plan.Parse(raw, salesColumns)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.Equal(t, plan.Operator(raw.Operator), p.Operator())
		})
	}
}

func TestParse_MissingRequiredFieldIsRecoverable(t *testing.T) {
	_, err := plan.Parse(plan.RawPlan{Operator: "argmax", Metric: str("Sales")}, salesColumns)

	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "group_by")
}

func TestOperatorValid(t *testing.T) {
	for _, op := range plan.Operators {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, plan.Operator("pivot").Valid())
}
