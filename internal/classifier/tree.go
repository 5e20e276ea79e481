package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Aggregation modes for a tree ensemble.
const (
	AggregateVote = "vote"
	AggregateMean = "mean"
)

// Node is a decision tree node. Leaves carry Value; split nodes send x to
// Left when x[Feature] <= Threshold and to Right otherwise.
type Node struct {
	Feature   int      `yaml:"feature,omitempty"`
	Threshold float64  `yaml:"threshold,omitempty"`
	Left      *Node    `yaml:"left,omitempty"`
	Right     *Node    `yaml:"right,omitempty"`
	Value     *float64 `yaml:"value,omitempty"`
}

func (n *Node) eval(x []float64) float64 {
	for n.Value == nil {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return *n.Value
}

func (n *Node) validate(depth int) error {
	if n == nil {
		return errors.New("missing node")
	}
	if depth > 64 {
		return errors.New("tree deeper than 64 levels")
	}
	if n.Value != nil {
		return nil
	}
	if n.Feature < 0 || n.Feature >= FeatureCount {
		return fmt.Errorf("split on feature %d out of range", n.Feature)
	}
	if err := n.Left.validate(depth + 1); err != nil {
		return err
	}
	return n.Right.validate(depth + 1)
}

// TreeEnsemble is a forest of decision trees exported to YAML. With "vote"
// the majority leaf class wins (ties go to the lowest id); with "mean" the
// leaf values are averaged.
type TreeEnsemble struct {
	ModelName string  `yaml:"name"`
	Aggregate string  `yaml:"aggregate"`
	Trees     []*Node `yaml:"trees"`
}

func (t *TreeEnsemble) validate() error {
	if len(t.Trees) == 0 {
		return errors.New("tree ensemble has no trees")
	}
	switch t.Aggregate {
	case "":
		t.Aggregate = AggregateVote
	case AggregateVote, AggregateMean:
	default:
		return fmt.Errorf("unknown aggregate %q", t.Aggregate)
	}
	for i, tree := range t.Trees {
		if err := tree.validate(0); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *TreeEnsemble) Name() string { return t.ModelName }

// Predict evaluates every tree on features.
func (t *TreeEnsemble) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != FeatureCount {
		return 0, ErrFeatureCount
	}

	if t.Aggregate == AggregateMean {
		var sum float64
		for _, tree := range t.Trees {
			sum += tree.eval(features)
		}
		return sum / float64(len(t.Trees)), nil
	}

	votes := make(map[int]int)
	for _, tree := range t.Trees {
		votes[int(math.Round(tree.eval(features)))]++
	}
	best, bestVotes := 0, -1
	for class, n := range votes {
		if n > bestVotes || (n == bestVotes && class < best) {
			best, bestVotes = class, n
		}
	}
	return float64(best), nil
}
