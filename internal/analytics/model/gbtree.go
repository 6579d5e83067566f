package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// GBParams are the gradient boosting hyperparameters
type GBParams struct {
	Rounds         int     // Number of trees
	LearningRate   float64 // Shrinkage applied to every tree
	MaxDepth       int     // Maximum tree depth
	Subsample      float64 // Fraction of rows sampled per tree
	ColSample      float64 // Fraction of features sampled per tree
	MinSamplesLeaf int     // Minimum rows in a leaf
	Seed           int64   // Random seed, must be non-zero
}

// DefaultGBParams returns the production hyperparameters
func DefaultGBParams() GBParams {
	return GBParams{
		Rounds:         500,
		LearningRate:   0.05,
		MaxDepth:       5,
		Subsample:      0.8,
		ColSample:      0.8,
		MinSamplesLeaf: 1,
		Seed:           1,
	}
}

// Validate checks the parameter ranges
func (p GBParams) Validate() error {
	if p.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1")
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1]")
	}
	if p.ColSample <= 0 || p.ColSample > 1 {
		return fmt.Errorf("colsample must be in (0, 1]")
	}
	if p.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be at least 1")
	}
	if p.Seed == 0 {
		return fmt.Errorf("seed must be non-zero")
	}
	return nil
}

// errNotFitted is returned by Predict before Fit succeeded
var errNotFitted = errors.New("regressor is not fitted")

// GradientBoosting is a squared-error gradient boosted regression tree
// ensemble with row and column subsampling. Splits are found by exact
// greedy search over presorted feature columns.
type GradientBoosting struct {
	params    GBParams
	base      float64
	trees     []*treeNode
	nFeatures int
}

// NewGradientBoosting creates an unfitted ensemble
func NewGradientBoosting(params GBParams) *GradientBoosting {
	return &GradientBoosting{params: params}
}

// Name returns the algorithm name
func (g *GradientBoosting) Name() string {
	return "gradient_boosting"
}

// Params returns the hyperparameters as loggable key/values
func (g *GradientBoosting) Params() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     g.params.Rounds,
		"learning_rate":    g.params.LearningRate,
		"max_depth":        g.params.MaxDepth,
		"subsample":        g.params.Subsample,
		"colsample_bytree": g.params.ColSample,
		"min_samples_leaf": g.params.MinSamplesLeaf,
		"random_state":     g.params.Seed,
	}
}

// Fit trains the ensemble on X (rows of equal width, no NaN) and y
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := g.params.Validate(); err != nil {
		return err
	}
	if len(X) == 0 {
		return fmt.Errorf("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("rows and targets differ: %d vs %d", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("no features")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return fmt.Errorf("row %d feature %d is NaN", i, j)
			}
		}
		if math.IsNaN(y[i]) {
			return fmt.Errorf("target %d is NaN", i)
		}
	}

	n := len(X)
	rng := rand.New(rand.NewSource(g.params.Seed))

	g.nFeatures = width
	g.base = stat.Mean(y, nil)
	g.trees = make([]*treeNode, 0, g.params.Rounds)

	// Presort every feature column once; per-round orders are filtered views
	order := make([][]int, width)
	for j := 0; j < width; j++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			switch {
			case X[a][j] < X[b][j]:
				return -1
			case X[a][j] > X[b][j]:
				return 1
			}
			return 0
		})
		order[j] = idx
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.base
	}
	residual := make([]float64, n)
	inSample := make([]bool, n)

	rowCount := max(1, int(math.Round(g.params.Subsample*float64(n))))
	colCount := max(1, int(math.Round(g.params.ColSample*float64(width))))

	b := &treeBuilder{
		X:        X,
		grad:     residual,
		maxDepth: g.params.MaxDepth,
		minLeaf:  g.params.MinSamplesLeaf,
		goLeft:   make([]bool, n),
	}

	for round := 0; round < g.params.Rounds; round++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		clear(inSample)
		for _, i := range rng.Perm(n)[:rowCount] {
			inSample[i] = true
		}
		cols := rng.Perm(width)[:colCount]
		slices.Sort(cols)

		sorted := make([][]int, len(cols))
		for c, col := range cols {
			list := make([]int, 0, rowCount)
			for _, i := range order[col] {
				if inSample[i] {
					list = append(list, i)
				}
			}
			sorted[c] = list
		}

		b.cols = cols
		tree := b.build(sorted, 0)
		g.trees = append(g.trees, tree)

		for i := range pred {
			pred[i] += g.params.LearningRate * tree.predict(X[i])
		}
	}

	return nil
}

// Predict returns the ensemble output for one feature vector
func (g *GradientBoosting) Predict(x []float64) (float64, error) {
	if g.trees == nil {
		return 0, errNotFitted
	}
	if len(x) != g.nFeatures {
		return 0, fmt.Errorf("got %d features, want %d", len(x), g.nFeatures)
	}
	for j, v := range x {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("feature %d is NaN", j)
		}
	}

	out := g.base
	for _, t := range g.trees {
		out += g.params.LearningRate * t.predict(x)
	}
	return out, nil
}

// Trees returns the number of fitted trees
func (g *GradientBoosting) Trees() int {
	return len(g.trees)
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (t *treeNode) predict(x []float64) float64 {
	node := t
	for !node.leaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// treeBuilder grows one regression tree on the current residuals
type treeBuilder struct {
	X        [][]float64
	grad     []float64
	cols     []int
	maxDepth int
	minLeaf  int
	goLeft   []bool
}

// build grows a node from per-column row lists sorted by feature value.
// Every list holds the same rows.
func (b *treeBuilder) build(sorted [][]int, depth int) *treeNode {
	rows := sorted[0]
	n := len(rows)
	if n == 0 {
		return &treeNode{leaf: true}
	}

	sum := 0.0
	for _, i := range rows {
		sum += b.grad[i]
	}
	leaf := &treeNode{leaf: true, value: sum / float64(n)}
	if depth >= b.maxDepth || n < 2*b.minLeaf {
		return leaf
	}

	parent := sum * sum / float64(n)
	bestGain := 1e-12
	bestCol := -1
	bestThreshold := 0.0

	for c, col := range b.cols {
		list := sorted[c]
		left := 0.0
		for k := 0; k < n-1; k++ {
			i := list[k]
			left += b.grad[i]

			nL, nR := k+1, n-k-1
			if nL < b.minLeaf || nR < b.minLeaf {
				continue
			}
			v, next := b.X[i][col], b.X[list[k+1]][col]
			if v == next {
				continue
			}

			right := sum - left
			gain := left*left/float64(nL) + right*right/float64(nR) - parent
			if gain > bestGain {
				bestGain = gain
				bestCol = col
				bestThreshold = v + (next-v)/2
				if bestThreshold >= next {
					bestThreshold = v
				}
			}
		}
	}

	if bestCol < 0 {
		return leaf
	}

	for _, i := range rows {
		b.goLeft[i] = b.X[i][bestCol] <= bestThreshold
	}
	leftSorted := make([][]int, len(sorted))
	rightSorted := make([][]int, len(sorted))
	for c, list := range sorted {
		l := make([]int, 0, n)
		r := make([]int, 0, n)
		for _, i := range list {
			if b.goLeft[i] {
				l = append(l, i)
			} else {
				r = append(r, i)
			}
		}
		leftSorted[c], rightSorted[c] = l, r
	}

	return &treeNode{
		feature:   bestCol,
		threshold: bestThreshold,
		left:      b.build(leftSorted, depth+1),
		right:     b.build(rightSorted, depth+1),
	}
}
