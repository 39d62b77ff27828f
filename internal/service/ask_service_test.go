package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/config"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/engine"
	"vectora-backend/internal/plan"
	"vectora-backend/internal/store"
)

type askFixture struct {
	svc      AskService
	datasets store.DatasetStore
	planner  *fakePlanner
	chatLogs *fakeChatLogRepository
	events   *fakeEventProducer
}

func newAskFixture(ds *dataset.Dataset) *askFixture {
	f := &askFixture{
		datasets: store.NewInMemoryDatasetStore(),
		planner:  &fakePlanner{},
		chatLogs: &fakeChatLogRepository{},
		events:   &fakeEventProducer{},
	}
	if ds != nil {
		f.datasets.Replace(ds)
	}
	cfg := &config.Config{Server: config.ServerConfig{APIBaseURL: "http://api.test"}}
	f.svc = NewAskService(f.datasets, store.NewInMemoryConversationStore(), f.planner, f.chatLogs, f.events, cfg)
	return f
}

func salesDataset() *dataset.Dataset {
	return dataset.MustNew(
		dataset.NewTextColumn("Region", "North", "South", "East", "West"),
		dataset.NewNumericColumn("Sales", 10, 20, 30, 40),
	)
}

func TestAsk_AnswersAndRecords(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "sum", Metric: strPtr("Sales")}
	f.planner.planJSON = `{"operator":"sum","metric":"Sales"}`

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "total sales?", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "The total **Sales** amounts to **100.00**.", resp.Answer)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, uint64(1), resp.DatasetVersion)
	require.NotNil(t, resp.Result)
	assert.Equal(t, plan.OpSum, resp.Result.Analysis)
	assert.Empty(t, resp.Charts)

	require.Len(t, f.planner.schemas, 1)
	assert.Equal(t, []string{"Region", "Sales"}, f.planner.schemas[0].Columns)

	require.Len(t, f.chatLogs.saved, 1)
	assert.Equal(t, "u1", f.chatLogs.saved[0].UserID)
	assert.Equal(t, resp.Answer, f.chatLogs.saved[0].Answer)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, "sum", ev.Operator)
	assert.Equal(t, "sum", ev.Analysis)
	assert.Equal(t, resp.ConversationID, ev.ConversationID)
	assert.False(t, ev.Degraded)
	assert.Empty(t, ev.Error)
}

func TestAsk_FollowUpCarriesHistory(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "mean", Metric: strPtr("Sales")}
	f.planner.planJSON = `{"operator":"mean","metric":"Sales"}`

	first, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "average sales?"})
	require.NoError(t, err)
	_, err = f.svc.Ask(context.Background(), dto.AskRequest{Question: "and the total?", ConversationID: &first.ConversationID})
	require.NoError(t, err)

	require.Len(t, f.planner.histories, 2)
	assert.Empty(t, f.planner.histories[0])
	assert.Equal(t, []dto.ConversationTurn{
		{Role: "user", Content: "average sales?"},
		{Role: "model", Content: `{"operator":"mean","metric":"Sales"}`},
	}, f.planner.histories[1])
}

func TestAsk_UnknownConversationStartsNewOne(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "chat", Reply: strPtr("Hi!")}

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "hello", ConversationID: strPtr("missing")})
	require.NoError(t, err)
	assert.NotEqual(t, "missing", resp.ConversationID)
	assert.Equal(t, "Hi!", resp.Answer)
}

func TestAsk_PlannerFailureIsAnAnswer(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.err = errors.New("LLM did not return valid JSON")

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "???"})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't process your request: LLM did not return valid JSON. Please try rephrasing or asking about existing columns.", resp.Answer)
	assert.Nil(t, resp.Result)

	require.Len(t, f.events.events, 1)
	assert.Empty(t, f.events.events[0].Operator)
	assert.Contains(t, f.events.events[0].Error, "planner")
	assert.Len(t, f.chatLogs.saved, 1)
}

func TestAsk_DegradedPlan(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "sum", Metric: strPtr("Profit")}

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "total profit?"})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't process that request because of a data issue: Column 'Profit' not found in dataset. Please try asking about columns that exist in your file.", resp.Answer)
	assert.Equal(t, plan.OpChat, resp.Result.Analysis)

	require.Len(t, f.events.events, 1)
	assert.True(t, f.events.events[0].Degraded)
	assert.Equal(t, "sum", f.events.events[0].Operator)
	assert.Equal(t, "chat", f.events.events[0].Analysis)
}

func TestAsk_FatalExecutionError(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "lookup", Metric: strPtr("Sales"), Filter: map[string]any{"Region": "Nowhere"}}

	_, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "sales in Nowhere?"})
	assert.ErrorIs(t, err, engine.ErrNoMatchingRows)

	require.Len(t, f.events.events, 1)
	assert.NotEmpty(t, f.events.events[0].Error)
	assert.Empty(t, f.chatLogs.saved)
}

func TestAsk_CleanReplacesDataset(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewTextColumn("Region", "North", "North", "South"),
		dataset.NewNumericColumn("Sales", 10, 10, 30),
	)
	f := newAskFixture(ds)
	f.planner.raw = plan.RawPlan{Operator: "clean"}

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "clean my data"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), resp.DatasetVersion)
	assert.Contains(t, resp.Answer, "\n\n[Download Cleaned Data](http://api.test/api/v1/dataset/download)")

	snap, err := f.datasets.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 2, snap.Dataset.NumRows())
}

func TestAsk_VisualizedDiagnostics(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumericColumn("Ads", 1, 2, 3, 4),
		dataset.NewNumericColumn("Sales", 12, 14, 16, 18),
	)
	f := newAskFixture(ds)
	f.planner.raw = plan.RawPlan{Operator: "sales_diagnostics"}

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "plot what drives sales"})
	require.NoError(t, err)
	require.Len(t, resp.Charts, 1)
	assert.Equal(t, "feature_impact", resp.Charts[0].Intent)
	assert.Contains(t, resp.Answer, "You can see a visualization of the chart [here](/chat/visualize).")

	resp, err = f.svc.Ask(context.Background(), dto.AskRequest{Question: "what drives sales"})
	require.NoError(t, err)
	assert.Empty(t, resp.Charts)
	assert.NotContains(t, resp.Answer, "visualization")
}

func TestAsk_SideEffectFailuresAreSwallowed(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "count", Metric: strPtr("Sales")}
	f.chatLogs.err = errors.New("mysql down")
	f.events.err = errors.New("kafka down")

	resp, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "how many?"})
	require.NoError(t, err)
	assert.Equal(t, "I found a total count of **4** for **Sales**.", resp.Answer)
}

func TestAsk_NoDataset(t *testing.T) {
	f := newAskFixture(nil)
	_, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: "total?"})
	assert.ErrorIs(t, err, store.ErrNoDataset)
}

func TestHistory(t *testing.T) {
	f := newAskFixture(salesDataset())
	f.planner.raw = plan.RawPlan{Operator: "chat", Reply: strPtr("ok")}
	for _, q := range []string{"a", "b", "c"} {
		_, err := f.svc.Ask(context.Background(), dto.AskRequest{Question: q, UserID: "u1"})
		require.NoError(t, err)
	}

	logs, err := f.svc.History(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].Question)

	_, err = f.svc.History(context.Background(), "", 2)
	assert.Error(t, err)
}
