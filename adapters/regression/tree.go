package regression

import (
	"fmt"
	"sort"
)

// TreeNode is one node of a flattened regression tree. Leaves have Feature -1.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// RegressionTree is a CART tree minimising squared error.
type RegressionTree struct {
	// MaxDepth 0 means unlimited.
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	NumFeatures     int
	Nodes           []TreeNode
}

// NewRegressionTree returns an unfit tree with the given growth limits.
func NewRegressionTree(maxDepth, minSamplesSplit, minSamplesLeaf int) *RegressionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	if minSamplesLeaf < 1 {
		minSamplesLeaf = 1
	}
	return &RegressionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

// Fit grows the tree on every row.
func (t *RegressionTree) Fit(X [][]float64, y []float64) error {
	if err := validateFitInput("Regression Tree", X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.grow(X, y, idx)
	return nil
}

// grow builds the tree over the given row indices. Indices may repeat
// (bootstrap samples). Inputs are assumed validated.
func (t *RegressionTree) grow(X [][]float64, y []float64, idx []int) {
	t.NumFeatures = len(X[0])
	t.Nodes = t.Nodes[:0]
	b := &treeBuilder{tree: t, X: X, y: y, scratch: make([]int, len(idx))}
	b.build(idx, 0)
}

type treeBuilder struct {
	tree    *RegressionTree
	X       [][]float64
	y       []float64
	scratch []int
}

func (b *treeBuilder) build(idx []int, depth int) int {
	t := b.tree
	sum, sq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n

	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Feature: -1, Value: mean, Samples: len(idx)})

	impurity := sq - sum*sum/n
	if len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) || impurity <= 1e-12*n {
		return node
	}

	feature, threshold, ok := b.bestSplit(idx, sum)
	if !ok {
		return node
	}

	// partition idx in place: left rows first
	lo := 0
	for k := range idx {
		if b.X[idx[k]][feature] <= threshold {
			idx[lo], idx[k] = idx[k], idx[lo]
			lo++
		}
	}
	left := b.build(idx[:lo], depth+1)
	right := b.build(idx[lo:], depth+1)

	t.Nodes[node].Feature = feature
	t.Nodes[node].Threshold = threshold
	t.Nodes[node].Left = left
	t.Nodes[node].Right = right
	return node
}

// bestSplit maximises sumL²/nL + sumR²/nR, which is equivalent to
// minimising the children's squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (int, float64, bool) {
	t := b.tree
	n := len(idx)
	order := b.scratch[:n]
	bestScore := total * total / float64(n)
	bestFeature, bestThreshold := -1, 0.0

	for f := 0; f < t.NumFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		left := 0.0
		for k := 0; k < n-1; k++ {
			left += b.y[order[k]]
			nl := k + 1
			nr := n - nl
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}
			xa, xb := b.X[order[k]][f], b.X[order[k+1]][f]
			if xa == xb {
				continue
			}
			right := total - left
			score := left*left/float64(nl) + right*right/float64(nr)
			if score > bestScore+1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = xa + (xb-xa)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict routes each row to a leaf.
func (t *RegressionTree) Predict(X [][]float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, errNotFitted
	}
	if err := validatePredictInput(X, t.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = t.predictRow(row)
	}
	return out, nil
}

func (t *RegressionTree) predictRow(row []float64) float64 {
	k := 0
	for {
		node := &t.Nodes[k]
		if node.Feature < 0 {
			return node.Value
		}
		if row[node.Feature] <= node.Threshold {
			k = node.Left
		} else {
			k = node.Right
		}
	}
}

// Depth returns the longest root-to-leaf path.
func (t *RegressionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(k int) int
	walk = func(k int) int {
		node := t.Nodes[k]
		if node.Feature < 0 {
			return 0
		}
		l, r := walk(node.Left), walk(node.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

func (t *RegressionTree) String() string {
	return fmt.Sprintf("RegressionTree(nodes=%d, depth=%d)", len(t.Nodes), t.Depth())
}
