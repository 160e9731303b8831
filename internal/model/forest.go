package model

import (
	"encoding/json"
	"fmt"

	"github.com/pancstage/pancstage/schema"
)

// treeNode is one node of a decision tree. Internal nodes send a sample left
// when x[Feature] <= Threshold; leaves have Feature < 0 and carry Value.
type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

// Forest is a decision-tree ensemble. Prediction averages the normalized leaf
// class distributions of every tree and picks the most likely class.
type Forest struct {
	classes int
	trees   []tree
}

var _ NativeClassifier = &Forest{} // Compile-time check

func parseForest(data []byte, classes int) (*Forest, error) {
	var raw struct {
		Trees []tree `json:"trees"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed forest artifact: %v", schema.ErrModelUnavailable, err)
	}
	if len(raw.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest artifact has no trees", schema.ErrModelUnavailable)
	}
	for i, t := range raw.Trees {
		if err := validateTree(t, classes); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", schema.ErrModelUnavailable, i, err)
		}
		for j := range t.Nodes {
			if t.Nodes[j].Feature < 0 {
				normalizeDistribution(t.Nodes[j].Value)
			}
		}
	}
	return &Forest{classes: classes, trees: raw.Trees}, nil
}

// validateTree checks node references. Children must come after their parent
// so evaluation always terminates.
func validateTree(t tree, classes int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			if len(n.Value) != classes {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), classes)
			}
			for _, v := range n.Value {
				if v < 0 {
					return fmt.Errorf("leaf %d has a negative class weight", i)
				}
			}
			continue
		}
		if n.Feature >= schema.NumFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has invalid child %d", i, child)
			}
		}
	}
	return nil
}

func normalizeDistribution(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// NumClasses returns the number of output classes.
func (f *Forest) NumClasses() int {
	return f.classes
}

// Predict implements contract.Classifier.
func (f *Forest) Predict(features [schema.NumFeatures]float64) (int, error) {
	votes := make([]float64, f.classes)
	for _, t := range f.trees {
		leaf := t.leaf(features)
		for c, p := range leaf.Value {
			votes[c] += p
		}
	}
	return argmax(votes), nil
}

func (t tree) leaf(x [schema.NumFeatures]float64) treeNode {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
