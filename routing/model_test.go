package routing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hybridrag/hybridrag/types"
)

// wordCountModel splits on word_count only: <=9 simple, otherwise complex.
func wordCountModel() *TreeModel {
	return &TreeModel{
		Classes: []types.Complexity{types.ComplexitySimple, types.ComplexityComplex},
		Trees: []*treeNode{
			{
				Feature:   "word_count",
				Threshold: 9,
				Left:      &treeNode{Scores: []float64{3, 1}},
				Right:     &treeNode{Scores: []float64{1, 3}},
			},
		},
	}
}

func TestTreeModel_Predict(t *testing.T) {
	m := wordCountModel()

	cls, ok := m.Predict(Features{WordCount: 4})
	if !ok {
		t.Fatal("predict failed")
	}
	if cls.Complexity != types.ComplexitySimple {
		t.Errorf("complexity = %s, want simple", cls.Complexity)
	}
	if cls.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", cls.Confidence)
	}

	cls, ok = m.Predict(Features{WordCount: 40})
	if !ok {
		t.Fatal("predict failed")
	}
	if cls.Complexity != types.ComplexityComplex {
		t.Errorf("complexity = %s, want complex", cls.Complexity)
	}
}

func TestTreeModel_MalformedScores(t *testing.T) {
	m := &TreeModel{
		Classes: []types.Complexity{types.ComplexitySimple, types.ComplexityComplex},
		Trees:   []*treeNode{{Scores: []float64{1}}},
	}
	if _, ok := m.Predict(Features{}); ok {
		t.Error("expected predict to fail on score arity mismatch")
	}
}

func TestLoadTreeModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	data, err := json.Marshal(wordCountModel())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	m := LoadTreeModel(path, nil)
	if m == nil {
		t.Fatal("expected model to load")
	}
	if len(m.Trees) != 1 {
		t.Errorf("trees = %d, want 1", len(m.Trees))
	}
}

func TestLoadTreeModel_MissingOrInvalid(t *testing.T) {
	if m := LoadTreeModel("", nil); m != nil {
		t.Error("empty path must return nil")
	}
	if m := LoadTreeModel("/nonexistent/model.json", nil); m != nil {
		t.Error("missing file must return nil")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if m := LoadTreeModel(path, nil); m != nil {
		t.Error("malformed file must return nil")
	}
}

func TestClassifier_ModelFallsBackToHeuristics(t *testing.T) {
	// A model that always declines forces the heuristic path.
	c := NewClassifier(decliningModel{}, nil)

	got := c.Classify("Что такое энтропия?")
	if got.Complexity != types.ComplexitySimple {
		t.Errorf("complexity = %s, want simple", got.Complexity)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", got.Confidence)
	}
}

type decliningModel struct{}

func (decliningModel) Predict(Features) (Classification, bool) {
	return Classification{}, false
}
