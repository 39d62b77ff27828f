package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vectora-backend/internal/cleaning"
	"vectora-backend/internal/engine"
	"vectora-backend/internal/plan"
)

const (
	fallback      = "I’m unable to generate a clear explanation for this result."
	cleanNoReport = "I've cleaned the data for you. I removed duplicates and handled missing values."

	diagnosticsIntro   = "I've analyzed your historical data patterns. Here are the most effective actions you can take to improve sales:"
	diagnosticsClosing = "These insights are based on correlations found in your dataset."
)

var printer = message.NewPrinter(language.English)

// Explain renders a result as markdown text for the user.
func Explain(res *engine.Result) string {
	switch res.Analysis {
	case plan.OpSalesDiagnostics:
		if res.Output == nil {
			return fallback
		}
		lines := []string{diagnosticsIntro, ""}
		for _, a := range res.RecommendedActions {
			lines = append(lines, fmt.Sprintf("- Increasing **%s** typically leads to an increase of **%s units** in sales.",
				a.Feature, FormatFloat(a.DeltaSales)))
		}
		lines = append(lines, "", diagnosticsClosing)
		return strings.Join(lines, "\n")
	case plan.OpArgmax:
		return fmt.Sprintf("The highest value is found in **%s**, with a score of **%s**.", formatEntity(res.Entity), value(res))
	case plan.OpArgmin:
		return fmt.Sprintf("The lowest value is in **%s**, coming in at **%s**.", formatEntity(res.Entity), value(res))
	case plan.OpLookup:
		return fmt.Sprintf("Looking at the data, the value for **%s** is **%s**.", formatEntity(res.Entity), value(res))
	case plan.OpChat:
		return res.Reply
	case plan.OpSum:
		if res.Value == nil {
			return fallback
		}
		return fmt.Sprintf("The total **%s** amounts to **%s**.", res.Metric, FormatAmount(*res.Value))
	case plan.OpMean:
		if res.Value == nil {
			return fallback
		}
		return fmt.Sprintf("The average **%s** is approximately **%s**.", res.Metric, FormatAmount(*res.Value))
	case plan.OpCount:
		if res.Value == nil {
			return fallback
		}
		return fmt.Sprintf("I found a total count of **%d** for **%s**.", int64(*res.Value), res.Metric)
	case plan.OpClean:
		if res.Report == nil {
			return cleanNoReport
		}
		return ExplainCleaning(res.Report)
	}
	return fallback
}

// ExplainCleaning describes a cleaning report, one paragraph per step.
func ExplainCleaning(r *cleaning.Report) string {
	var lines []string

	if r.MissingValuesHandled {
		lines = append(lines, "I detected some missing values and handled them. "+
			"I filled numerical columns with their mean values, "+
			"and categorical columns with the most frequent category.")
	}

	if r.DuplicatesRemoved > 0 {
		lines = append(lines, fmt.Sprintf("I found %d duplicate rows and removed them to keep your analysis accurate.", r.DuplicatesRemoved))
	} else {
		lines = append(lines, "It looks like there were no duplicate records in the dataset.")
	}

	if imb := r.ClassImbalance; imb != nil {
		if imb.Detected && len(imb.Distribution) > 0 {
			lines = append(lines,
				fmt.Sprintf("I noticed a strong class imbalance in the target variable, where the majority class made up %d%% of the data.",
					percent(imb.Distribution[0].Ratio)),
				"To correct this, I balanced the dataset using controlled undersampling.",
				fmt.Sprintf("The dataset now has %d rows (previously %d).", imb.AfterRows, imb.BeforeRows),
			)
		} else {
			lines = append(lines, "I didn't detect any significant class imbalance, so I kept the original distribution.")
		}
	}

	if len(r.ProblemTypeActions) > 0 {
		lines = append(lines, "For Sentiment Analysis prep:")
		for _, a := range r.ProblemTypeActions {
			lines = append(lines, "- "+a)
		}
	}

	if r.ClassDistribution != nil {
		lines = append(lines, "Class Distribution Analysis:")
		for _, share := range r.ClassDistribution {
			lines = append(lines, fmt.Sprintf("- Class '%s': %d%%", share.Class, percent(share.Ratio)))
		}
	}

	return strings.Join(lines, "\n\n")
}

// FormatAmount renders v with thousands separators and two decimals.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatFloat renders v in its shortest form, keeping a trailing ".0" on whole numbers.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func value(res *engine.Result) string {
	if res.Value == nil {
		return "N/A"
	}
	return FormatFloat(*res.Value)
}

func formatEntity(e any) string {
	switch v := e.(type) {
	case nil:
		return "N/A"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// percent truncates a share to a whole percentage.
func percent(ratio float64) int {
	return int(ratio * 100)
}
