package chart

import (
	"regexp"
	"strings"

	"vectora-backend/internal/diagnostics"
)

// Keywords that mark a question as asking for a visualization.
var visualKeywords = []string{
	"visualize", "visualise", "visualisation", "visualization",
	"plot", "chart", "graph", "histogram", "scatter", "bar", "pie",
	"diagram", "show me",
}

// Keywords match as whole words, optionally plural, so "Barcelona" or "pieces" do not count.
var visualPattern = regexp.MustCompile(`\b(?:` + alternation(visualKeywords) + `)s?\b`)

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

type Description struct {
	What    string `json:"what"`
	BasedOn string `json:"based_on"`
	Unit    string `json:"unit"`
}

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a declarative chart descriptor; rendering is left to the client.
type Chart struct {
	Type        string      `json:"type"`
	Intent      string      `json:"intent"`
	Metric      string      `json:"metric"`
	Description Description `json:"description"`
	Data        []Point     `json:"data"`
}

// FeatureImpact builds a bar chart with one bar per recommended action.
func FeatureImpact(out *diagnostics.Output) Chart {
	metric := out.Target
	if metric == "" {
		metric = "metric"
	}
	data := make([]Point, len(out.RecommendedActions))
	for i, a := range out.RecommendedActions {
		data[i] = Point{Label: a.Feature, Value: a.DeltaSales}
	}
	return Chart{
		Type:   "bar",
		Intent: "feature_impact",
		Metric: metric,
		Description: Description{
			What:    "change_in_metric",
			BasedOn: "historical_data",
			Unit:    "delta",
		},
		Data: data,
	}
}

// Requested reports whether the question asks for a visualization.
func Requested(question string) bool {
	return visualPattern.MatchString(strings.ToLower(question))
}
