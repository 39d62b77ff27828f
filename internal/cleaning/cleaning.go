package cleaning

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats/scalar"

	"vectora-backend/internal/dataset"
)

type ProblemType string

const (
	Sentiment            ProblemType = "sentiment_analysis"
	BinaryClassification ProblemType = "binary_classification"
	Classification       ProblemType = "classification"
)

const (
	imbalanceThreshold = 0.75
	minTextLength      = 10.0
	samplingSeed       = 42
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
	lower       = cases.Lower(language.Und)
)

type Options struct {
	ProblemType ProblemType
	Target      string
}

// Basic fills nulls and drops exact duplicate rows.
func Basic(ds *dataset.Dataset) *dataset.Dataset {
	out, _ := impute(ds)
	out, _ = dedup(out)
	return out
}

// Advanced runs Basic and then the problem-type specific step, reporting every change.
// The input dataset is not modified.
func Advanced(ds *dataset.Dataset, opts Options) (*dataset.Dataset, *Report) {
	report := &Report{ProblemTypeActions: []string{}}

	out, filled := impute(ds)
	report.MissingValuesHandled = filled
	out, report.DuplicatesRemoved = dedup(out)

	switch opts.ProblemType {
	case Sentiment:
		report.ProblemTypeActions = append(report.ProblemTypeActions, normalizeText(out)...)
	case BinaryClassification:
		out, report.ClassImbalance = balance(out, opts.Target)
	case Classification:
		if col, err := out.Column(opts.Target); err == nil {
			report.ClassDistribution = distribution(col)
		} else if opts.Target != "" {
			log.Debug().Str("target", opts.Target).Msg("Classification target not in dataset, skipping distribution")
		}
	}
	return out, report
}

// impute fills numeric nulls with the column mean and text nulls with the column mode.
func impute(ds *dataset.Dataset) (*dataset.Dataset, bool) {
	out := ds.Clone()
	filled := false
	for c := 0; c < out.NumCols(); c++ {
		col := out.ColumnAt(c)
		if !col.HasNulls() || col.NonNullCount() == 0 {
			continue
		}
		var fill dataset.Cell
		if col.Kind == dataset.Numeric {
			fill = dataset.NumCell(columnMean(col))
		} else {
			fill = dataset.TextCell(columnMode(col))
		}
		for i, cell := range col.Cells {
			if cell.Null {
				col.Cells[i] = fill
			}
		}
		filled = true
	}
	return out, filled
}

func dedup(ds *dataset.Dataset) (*dataset.Dataset, int) {
	seen := make(map[string]bool, ds.NumRows())
	keep := make([]int, 0, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		key := ds.RowKey(i)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	return ds.SelectRows(keep), ds.NumRows() - len(keep)
}

func normalizeText(ds *dataset.Dataset) []string {
	var actions []string
	for c := 0; c < ds.NumCols(); c++ {
		col := ds.ColumnAt(c)
		if col.Kind != dataset.Text || col.Len() == 0 {
			continue
		}
		total := 0
		for _, cell := range col.Cells {
			total += utf8.RuneCountInString(cell.Text)
		}
		if float64(total)/float64(col.Len()) <= minTextLength {
			continue
		}
		for i, cell := range col.Cells {
			if !cell.Null {
				col.Cells[i] = dataset.TextCell(CleanText(cell.Text))
			}
		}
		actions = append(actions, fmt.Sprintf("Cleaned text in column '%s' (lowercased, removed punctuation).", col.Name))
	}
	return actions
}

// CleanText lowercases s, strips punctuation and collapses whitespace.
func CleanText(s string) string {
	s = lower.String(s)
	s = punctuation.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// balance undersamples the majority class of a two-class target when it holds at
// least 75% of the rows. A nil record means the step did not apply.
func balance(ds *dataset.Dataset, target string) (*dataset.Dataset, *ImbalanceRecord) {
	col, err := ds.Column(target)
	if err != nil {
		return ds, nil
	}
	dist := distribution(col)
	if len(dist) != 2 {
		return ds, nil
	}
	majority, minority := dist[0], dist[1]
	if majority.Ratio < imbalanceThreshold {
		return ds, &ImbalanceRecord{Distribution: dist}
	}

	var minRows, majRows []int
	for i := range col.Cells {
		switch col.Format(i) {
		case minority.Class:
			minRows = append(minRows, i)
		case majority.Class:
			majRows = append(majRows, i)
		}
	}

	rng := rand.New(rand.NewSource(samplingSeed))
	rows := append([]int{}, minRows...)
	for _, p := range rng.Perm(len(majRows))[:len(minRows)] {
		rows = append(rows, majRows[p])
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

	balanced := ds.SelectRows(rows)
	log.Debug().
		Str("target", target).
		Int("before_rows", ds.NumRows()).
		Int("after_rows", balanced.NumRows()).
		Msg("Undersampled majority class")

	return balanced, &ImbalanceRecord{
		Detected:      true,
		Action:        "undersampling",
		MajorityClass: majority.Class,
		MajorityRatio: scalar.Round(majority.Ratio, 2),
		BeforeRows:    ds.NumRows(),
		AfterRows:     balanced.NumRows(),
		Distribution:  dist,
	}
}

// distribution counts the non-null values of col, largest class first. Equal
// counts keep first-appearance order.
func distribution(col *dataset.Column) []ClassShare {
	counts := map[string]int{}
	var order []string
	total := 0
	for i, cell := range col.Cells {
		if cell.Null {
			continue
		}
		v := col.Format(i)
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
		total++
	}
	shares := make([]ClassShare, len(order))
	for i, v := range order {
		shares[i] = ClassShare{Class: v, Count: counts[v], Ratio: float64(counts[v]) / float64(total)}
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].Count > shares[b].Count })
	return shares
}

func columnMean(col *dataset.Column) float64 {
	sum, n := 0.0, 0
	for _, cell := range col.Cells {
		if !cell.Null {
			sum += cell.Num
			n++
		}
	}
	return sum / float64(n)
}

// columnMode returns the most frequent value; ties go to the smallest value.
func columnMode(col *dataset.Column) string {
	counts := map[string]int{}
	for _, cell := range col.Cells {
		if !cell.Null {
			counts[cell.Text]++
		}
	}
	best, bestCount := "", -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
