package diagnostics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"vectora-backend/internal/dataset"
)

var (
	// ErrNoSalesColumn is capitalized because its text is shown to the user verbatim
	// inside the degraded chat reply.
	ErrNoSalesColumn    = errors.New("No suitable sales column found")
	ErrNoFeatures       = errors.New("no numeric feature columns besides the target")
	ErrNonNumericTarget = errors.New("target column is not numeric")
	ErrNoObservations   = errors.New("target column has no values to fit")
	ErrFitFailed        = errors.New("least squares factorization failed")
)

const (
	perturbation = 1.10
	topActions   = 3
	rcond        = 1e-12
)

var salesMarkers = []string{"sale", "unit", "revenue"}

type Driver struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
}

type Action struct {
	Feature    string  `json:"feature"`
	DeltaSales float64 `json:"delta_sales"`
}

type Output struct {
	Target             string   `json:"target"`
	TopDrivers         []Driver `json:"top_drivers"`
	RecommendedActions []Action `json:"recommended_actions"`
}

// ResolveTarget returns requested when it names a column, otherwise the first
// numeric column whose name mentions sales, units or revenue.
func ResolveTarget(ds *dataset.Dataset, requested string) (string, error) {
	if requested != "" && ds.HasColumn(requested) {
		return requested, nil
	}
	for _, name := range ds.NumericColumns() {
		lower := strings.ToLower(name)
		for _, marker := range salesMarkers {
			if strings.Contains(lower, marker) {
				return name, nil
			}
		}
	}
	return "", ErrNoSalesColumn
}

// Analyze fits target on every other numeric column and simulates a 10% increase
// of each feature, one at a time, from the feature means.
func Analyze(ds *dataset.Dataset, requested string) (*Output, error) {
	target, err := ResolveTarget(ds, requested)
	if err != nil {
		return nil, err
	}
	targetCol, err := ds.Column(target)
	if err != nil {
		return nil, err
	}
	if targetCol.Kind != dataset.Numeric {
		return nil, fmt.Errorf("%w: %q", ErrNonNumericTarget, target)
	}

	var features []string
	for _, name := range ds.NumericColumns() {
		if name != target {
			features = append(features, name)
		}
	}
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	model, err := fit(ds, targetCol, features)
	if err != nil {
		return nil, err
	}

	means := make([]float64, len(features))
	for j, name := range features {
		col, _ := ds.Column(name)
		means[j] = nonNullMean(col)
	}
	baseline := model.predict(means)

	actions := make([]Action, len(features))
	for j, name := range features {
		modified := make([]float64, len(means))
		copy(modified, means)
		modified[j] *= perturbation
		actions[j] = Action{
			Feature:    name,
			DeltaSales: scalar.Round(model.predict(modified)-baseline, 2),
		}
	}
	sort.SliceStable(actions, func(a, b int) bool {
		return actions[a].DeltaSales > actions[b].DeltaSales
	})
	if len(actions) > topActions {
		actions = actions[:topActions]
	}

	drivers := make([]Driver, len(features))
	for j, name := range features {
		drivers[j] = Driver{Feature: name, Coefficient: scalar.Round(model.coef[j], 3)}
	}

	log.Debug().
		Str("target", target).
		Int("features", len(features)).
		Float64("intercept", model.intercept).
		Msg("Fitted sales diagnostics model")

	return &Output{
		Target:             target,
		TopDrivers:         drivers,
		RecommendedActions: actions,
	}, nil
}

type linearModel struct {
	coef      []float64
	intercept float64
}

func (m linearModel) predict(x []float64) float64 {
	return m.intercept + floats.Dot(m.coef, x)
}

// fit solves ordinary least squares with an intercept. Missing feature values are
// zero; rows without a target value are left out.
func fit(ds *dataset.Dataset, target *dataset.Column, features []string) (linearModel, error) {
	var rows []int
	for i, cell := range target.Cells {
		if !cell.Null {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return linearModel{}, ErrNoObservations
	}

	n, p := len(rows), len(features)
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for j, name := range features {
		col, _ := ds.Column(name)
		for i, r := range rows {
			if cell := col.Cells[r]; !cell.Null {
				x.Set(i, j, cell.Num)
			}
		}
	}
	for i, r := range rows {
		y.SetVec(i, target.Cells[r].Num)
	}

	xMeans := make([]float64, p)
	for j := 0; j < p; j++ {
		xMeans[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	yMean := stat.Mean(y.RawVector().Data, nil)

	xc := mat.NewDense(n, p, nil)
	xc.Apply(func(_, j int, v float64) float64 { return v - xMeans[j] }, x)
	yc := mat.NewVecDense(n, nil)
	yc.AddScaledVec(y, -1, mat.NewVecDense(n, repeat(yMean, n)))

	coef := make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(xc, mat.SVDThin) {
		return linearModel{}, ErrFitFailed
	}
	if rank := svd.Rank(rcond); rank > 0 {
		var beta mat.Dense
		svd.SolveTo(&beta, yc, rank)
		copy(coef, mat.Col(nil, 0, &beta))
	}

	return linearModel{
		coef:      coef,
		intercept: yMean - floats.Dot(coef, xMeans),
	}, nil
}

func nonNullMean(col *dataset.Column) float64 {
	var vals []float64
	for _, cell := range col.Cells {
		if !cell.Null {
			vals = append(vals, cell.Num)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
