package engine_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/internal/dataset"
	"vectora-backend/internal/engine"
	"vectora-backend/internal/plan"
)

func salesFixture() *dataset.Dataset {
	return dataset.MustNew(
		dataset.NewNumericColumn("Sales", 10, 20, 30),
		dataset.NewTextColumn("Region", "A", "B", "C"),
	)
}

func decode(t *testing.T, raw string) plan.RawPlan {
	t.Helper()
	var p plan.RawPlan
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestRun_Operators(t *testing.T) {
	tests := []struct {
		name     string
		plan     string
		analysis plan.Operator
		entity   any
		metric   string
		value    float64
	}{
		{name: "Argmax", plan: `{"operator":"argmax","metric":"Sales","group_by":"Region"}`, analysis: plan.OpArgmax, entity: "C", value: 30},
		{name: "Argmin", plan: `{"operator":"argmin","metric":"Sales","group_by":"Region"}`, analysis: plan.OpArgmin, entity: "A", value: 10},
		{name: "Lookup", plan: `{"operator":"lookup","metric":"Sales","filter":{"Region":"B"}}`, analysis: plan.OpLookup, entity: "B", value: 20},
		{name: "Lookup on numeric column", plan: `{"operator":"lookup","metric":"Sales","filter":{"Sales":30}}`, analysis: plan.OpLookup, entity: 30.0, value: 30},
		{name: "Sum", plan: `{"operator":"sum","metric":"Sales"}`, analysis: plan.OpSum, metric: "Sales", value: 60},
		{name: "Mean", plan: `{"operator":"mean","metric":"Sales"}`, analysis: plan.OpMean, metric: "Sales", value: 20},
		{name: "Count", plan: `{"operator":"count","metric":"Region"}`, analysis: plan.OpCount, metric: "Region", value: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Run(decode(t, tt.plan), salesFixture())
			require.NoError(t, err)

			assert.Equal(t, tt.analysis, res.Analysis)
			assert.Equal(t, tt.entity, res.Entity)
			assert.Equal(t, tt.metric, res.Metric)
			require.NotNil(t, res.Value)
			assert.Equal(t, tt.value, *res.Value)
			assert.False(t, res.Degraded)
		})
	}
}

func TestRun_ArgmaxTakesFirstOccurrence(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumericColumn("Sales", 5, 9, 9, math.NaN()),
		dataset.NewTextColumn("Store", "s1", "s2", "s3", "s4"),
	)
	res, err := engine.Run(decode(t, `{"operator":"argmax","metric":"Sales","group_by":"Store"}`), ds)
	require.NoError(t, err)
	assert.Equal(t, "s2", res.Entity)
}

func TestRun_CountIgnoresNulls(t *testing.T) {
	ds := dataset.MustNew(dataset.NewNumericColumn("Sales", 1, math.NaN(), 3))
	res, err := engine.Run(decode(t, `{"operator":"count","metric":"Sales"}`), ds)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *res.Value)
}

func TestRun_DegradesInvalidPlans(t *testing.T) {
	tests := []struct {
		name    string
		plan    string
		mention string
	}{
		{name: "Missing column", plan: `{"operator":"sum","metric":"Profit"}`, mention: "Column 'Profit' not found in dataset"},
		{name: "Missing operator", plan: `{"metric":"Sales"}`, mention: "Plan missing operator"},
		{name: "Unknown operator", plan: `{"operator":"median","metric":"Sales"}`, mention: "Unsupported operator: median"},
		{name: "No sales column", plan: `{"operator":"sales_diagnostics"}`, mention: "No suitable sales column found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := salesFixture()
			if tt.name == "No sales column" {
				ds = dataset.MustNew(dataset.NewNumericColumn("Price", 1, 2), dataset.NewNumericColumn("Cost", 3, 4))
			}
			res, err := engine.Run(decode(t, tt.plan), ds)
			require.NoError(t, err)

			assert.Equal(t, plan.OpChat, res.Analysis)
			assert.True(t, res.Degraded)
			assert.Contains(t, res.Reply, tt.mention)
			assert.Contains(t, res.Reply, "I couldn't process that request because of a data issue")
		})
	}
}

func TestRun_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		plan string
		err  error
	}{
		{name: "Lookup without match", plan: `{"operator":"lookup","metric":"Sales","filter":{"Region":"Z"}}`, err: engine.ErrNoMatchingRows},
		{name: "Lookup with two filters", plan: `{"operator":"lookup","metric":"Sales","filter":{"Region":"A","Sales":10}}`, err: engine.ErrMalformedFilter},
		{name: "Lookup with empty filter", plan: `{"operator":"lookup","metric":"Sales","filter":{}}`, err: engine.ErrMalformedFilter},
		{name: "Sum of text column", plan: `{"operator":"sum","metric":"Region"}`, err: engine.ErrNonNumericMetric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Run(decode(t, tt.plan), salesFixture())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRun_ChatPassesReplyThrough(t *testing.T) {
	res, err := engine.Run(decode(t, `{"operator":"chat","reply":"Hello! Ask me about your data."}`), salesFixture())
	require.NoError(t, err)
	assert.Equal(t, "Hello! Ask me about your data.", res.Reply)
	assert.False(t, res.Degraded)
}

func TestRun_CleanCarriesNewDataset(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumericColumn("Sales", 10, 10, math.NaN()),
		dataset.NewTextColumn("Region", "A", "A", "B"),
	)
	res, err := engine.Run(decode(t, `{"operator":"clean"}`), ds)
	require.NoError(t, err)

	assert.Equal(t, plan.OpClean, res.Analysis)
	require.NotNil(t, res.Report)
	require.NotNil(t, res.Dataset)
	assert.Equal(t, 1, res.Report.DuplicatesRemoved)
	assert.Equal(t, 2, res.Dataset.NumRows())
	assert.Equal(t, 3, ds.NumRows())
}

func TestRun_SalesDiagnosticsInlinesOutput(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumericColumn("Ads", 1, 2, 3, 4),
		dataset.NewNumericColumn("Sales", 12, 14, 16, 18),
	)
	res, err := engine.Run(decode(t, `{"operator":"sales_diagnostics"}`), ds)
	require.NoError(t, err)
	require.NotNil(t, res.Output)
	assert.Equal(t, "Sales", res.Target)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"analysis": "sales_diagnostics",
		"target": "Sales",
		"top_drivers": [{"feature": "Ads", "coefficient": 2}],
		"recommended_actions": [{"feature": "Ads", "delta_sales": 0.5}]
	}`, string(raw))
}
