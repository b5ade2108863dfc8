package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/crimson-sun/screener/internal/model"
)

func init() {
	Register("forest", func(cfg Config) (Classifier, error) {
		return LoadForest(cfg.ModelPath)
	})
}

// forestFile is the JSON export of a fitted random forest. Each tree uses
// the parallel-array layout of CART implementations: node i is a leaf when
// childrenLeft[i] == -1, otherwise samples with x[feature[i]] <= threshold[i]
// go left. value[i] holds per-class weights at node i.
type forestFile struct {
	NFeatures int        `json:"n_features"`
	Classes   []int      `json:"classes"`
	Trees     []treeFile `json:"trees"`
}

type treeFile struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

type tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	proba       [][]float64 // value rows normalised to sum to 1
}

// Forest evaluates a random forest in pure Go. PredictProba averages the
// normalised leaf distributions of all trees; Predict returns the class with
// the highest averaged probability, first class winning ties.
type Forest struct {
	classes []int
	trees   []tree
}

// LoadForest reads and validates a forest export.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}
	var ff forestFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("forest: parse %s: %w", path, err)
	}
	return newForest(ff)
}

func newForest(ff forestFile) (*Forest, error) {
	if ff.NFeatures != model.NumFeatures {
		return nil, fmt.Errorf("forest: model expects %d features, encoder produces %d", ff.NFeatures, model.NumFeatures)
	}
	if len(ff.Classes) == 0 {
		return nil, fmt.Errorf("forest: no classes")
	}
	if len(ff.Trees) == 0 {
		return nil, fmt.Errorf("forest: no trees")
	}

	f := &Forest{classes: ff.Classes, trees: make([]tree, len(ff.Trees))}
	for i, tf := range ff.Trees {
		t, err := buildTree(tf, len(ff.Classes))
		if err != nil {
			return nil, fmt.Errorf("forest: tree %d: %w", i, err)
		}
		f.trees[i] = t
	}
	return f, nil
}

func buildTree(tf treeFile, nClasses int) (tree, error) {
	n := len(tf.ChildrenLeft)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(tf.ChildrenRight) != n || len(tf.Feature) != n || len(tf.Threshold) != n || len(tf.Value) != n {
		return tree{}, fmt.Errorf("node arrays have mismatched lengths")
	}

	t := tree{
		left:      tf.ChildrenLeft,
		right:     tf.ChildrenRight,
		feature:   tf.Feature,
		threshold: tf.Threshold,
		proba:     make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		if t.left[i] == -1 {
			if len(tf.Value[i]) != nClasses {
				return tree{}, fmt.Errorf("leaf %d has %d values, want %d", i, len(tf.Value[i]), nClasses)
			}
			t.proba[i] = normalise(tf.Value[i])
			continue
		}
		// Children always follow their parent, which rules out cycles.
		if t.left[i] <= i || t.left[i] >= n || t.right[i] <= i || t.right[i] >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, t.left[i], t.right[i])
		}
		if t.feature[i] < 0 || t.feature[i] >= model.NumFeatures {
			return tree{}, fmt.Errorf("node %d splits on feature %d", i, t.feature[i])
		}
	}
	return t, nil
}

func normalise(row []float64) []float64 {
	var sum float64
	for _, v := range row {
		sum += v
	}
	out := make([]float64, len(row))
	if sum == 0 {
		return out
	}
	for i, v := range row {
		out[i] = v / sum
	}
	return out
}

// leaf walks the tree for x. Features are compared at float32 precision,
// the dtype tree ensembles are fitted on.
func (t *tree) leaf(x []float32) []float64 {
	node := 0
	for t.left[node] != -1 {
		if float64(x[t.feature[node]]) <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.proba[node]
}

func (f *Forest) proba(fv model.FeatureVector) []float64 {
	x := fv.Float32()
	out := make([]float64, len(f.classes))
	for i := range f.trees {
		for c, p := range f.trees[i].leaf(x) {
			out[c] += p
		}
	}
	n := float64(len(f.trees))
	for c := range out {
		out[c] /= n
	}
	return out
}

// Predict returns the class with the highest averaged probability.
func (f *Forest) Predict(_ context.Context, fv model.FeatureVector) (int, error) {
	p := f.proba(fv)
	best := 0
	for c := 1; c < len(p); c++ {
		if p[c] > p[best] {
			best = c
		}
	}
	return f.classes[best], nil
}

// PredictProba returns the averaged class distribution.
func (f *Forest) PredictProba(_ context.Context, fv model.FeatureVector) ([]float64, error) {
	return f.proba(fv), nil
}

// Classes returns the class labels in probability-column order.
func (f *Forest) Classes() []int {
	return append([]int(nil), f.classes...)
}

func (f *Forest) Name() string { return "forest" }

func (f *Forest) Close() error { return nil }
