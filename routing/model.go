package routing

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// Model predicts a classification from extracted features. Predict returns
// ok=false when the model cannot score the input, in which case the caller
// falls back to heuristics.
type Model interface {
	Predict(f Features) (Classification, bool)
}

// treeNode is one node of a serialized decision tree. Leaves carry class
// scores; internal nodes split on a feature threshold.
type treeNode struct {
	Feature   string     `json:"feature,omitempty"`
	Threshold float64    `json:"threshold,omitempty"`
	Left      *treeNode  `json:"left,omitempty"`
	Right     *treeNode  `json:"right,omitempty"`
	Scores    []float64  `json:"scores,omitempty"`
}

// TreeModel is a serialized ensemble of decision trees over the classifier
// features. Class scores are summed across trees; the argmax wins and its
// normalized share is the confidence.
type TreeModel struct {
	Classes []types.Complexity `json:"classes"`
	Trees   []*treeNode        `json:"trees"`
}

var _ Model = (*TreeModel)(nil)

// LoadTreeModel reads a model from a JSON file. A missing or malformed
// file returns a nil model and logs the reason, leaving the classifier on
// heuristics.
func LoadTreeModel(path string, logger *zap.Logger) *TreeModel {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("classifier model not loaded", zap.String("path", path), zap.Error(err))
		return nil
	}

	var m TreeModel
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Warn("classifier model malformed", zap.String("path", path), zap.Error(err))
		return nil
	}
	if len(m.Classes) == 0 || len(m.Trees) == 0 {
		logger.Warn("classifier model empty", zap.String("path", path))
		return nil
	}

	logger.Info("classifier model loaded",
		zap.String("path", path),
		zap.Int("trees", len(m.Trees)))
	return &m
}

// Predict scores the features against the ensemble.
func (m *TreeModel) Predict(f Features) (Classification, bool) {
	totals := make([]float64, len(m.Classes))

	for _, tree := range m.Trees {
		scores := evalTree(tree, f)
		if len(scores) != len(m.Classes) {
			return Classification{}, false
		}
		for i, s := range scores {
			totals[i] += s
		}
	}

	best, sum := 0, 0.0
	for i, s := range totals {
		if s < 0 {
			return Classification{}, false
		}
		sum += s
		if s > totals[best] {
			best = i
		}
	}
	if sum == 0 {
		return Classification{}, false
	}

	return Classification{
		Complexity: m.Classes[best],
		Confidence: totals[best] / sum,
		Features:   f,
	}, true
}

func evalTree(node *treeNode, f Features) []float64 {
	for node != nil {
		if node.Scores != nil {
			return node.Scores
		}
		if featureValue(f, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return nil
}

func featureValue(f Features, name string) float64 {
	switch name {
	case "word_count":
		return float64(f.WordCount)
	case "query_length":
		return float64(f.QueryLength)
	case "question_marks":
		return float64(f.QuestionMarks)
	case "has_enumeration":
		if f.HasEnumeration {
			return 1
		}
		return 0
	case "simple_pattern":
		if f.SimplePattern != "" {
			return 1
		}
		return 0
	case "complex_pattern":
		if f.ComplexPattern != "" {
			return 1
		}
		return 0
	case "multi_hop_keywords":
		return float64(f.MultiHopKeywords)
	default:
		return 0
	}
}
