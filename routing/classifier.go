// Package routing classifies queries by complexity and selects the
// execution strategy for each query.
package routing

import (
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// Classification is the classifier's verdict for one query. Score is the
// numeric complexity on [0, 1]; Confidence is how sure the classifier is
// about the bucket. The two are independent: a query can be confidently
// simple.
type Classification struct {
	Complexity types.Complexity `json:"complexity"`
	Score      float64          `json:"score"`
	Confidence float64          `json:"confidence"`
	Features   Features         `json:"features"`
}

// Features are the signals extracted from the query text. They feed both
// the heuristics and the trained model.
type Features struct {
	WordCount         int    `json:"word_count"`
	QueryLength       int    `json:"query_length"`
	QuestionMarks     int    `json:"question_marks"`
	HasEnumeration    bool   `json:"has_enumeration"`
	SimplePattern     string `json:"simple_pattern,omitempty"`
	ComplexPattern    string `json:"complex_pattern,omitempty"`
	MultiHopKeywords  int    `json:"multi_hop_keywords"`
}

// Queries are matched case-insensitively against these phrase lists. The
// corpus is primarily Russian; English equivalents extend coverage.
var (
	simplePatterns = []string{
		"что такое",
		"кто такой",
		"когда",
		"где находится",
		"какая столица",
		"дай определение",
		"назови",
		"перечисли",
		"what is",
		"who is",
		"define",
	}

	complexPatterns = []string{
		"проанализируй",
		"сравни",
		"оцени влияние",
		"найди все",
		"исследуй",
		"определи взаимосвязь",
		"сделай прогноз",
		"разработай стратегию",
		"analyze",
		"compare",
	}

	multiHopKeywords = []string{
		"и", "а также", "кроме того", "учитывая",
		"на основе", "исходя из", "в контексте",
	}

	enumerationRE = regexp.MustCompile(`\d+\.`)
)

// Classifier assigns a complexity bucket and confidence to queries. With a
// trained model loaded, the model decides; otherwise phrase and structure
// heuristics do.
type Classifier struct {
	model  Model
	logger *zap.Logger
}

// NewClassifier creates a classifier. A nil model selects pure heuristics.
func NewClassifier(model Model, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		model:  model,
		logger: logger.With(zap.String("component", "classifier")),
	}
}

// Classify analyses a query and returns its complexity bucket.
func (c *Classifier) Classify(query string) Classification {
	lowered := strings.ToLower(query)
	features := extractFeatures(lowered)

	cls, ok := Classification{}, false
	if c.model != nil {
		cls, ok = c.model.Predict(features)
		if !ok {
			c.logger.Debug("model prediction unavailable, using heuristics")
		}
	}
	if !ok {
		cls = heuristicClassify(lowered, features)
	}

	cls.Score = complexityScore(cls.Complexity, features.WordCount)
	return cls
}

// Score bands per bucket. The bands agree with the routing thresholds:
// simple stays below 0.3, complex and multi-hop start at 0.7.
var scoreBands = map[types.Complexity][2]float64{
	types.ComplexitySimple:   {0, 0.29},
	types.ComplexityModerate: {0.3, 0.69},
	types.ComplexityComplex:  {0.7, 0.85},
	types.ComplexityMultiHop: {0.85, 1.0},
}

// complexityScore places the query inside its bucket's score band by word
// count, one word in fifty covering the band.
func complexityScore(complexity types.Complexity, wordCount int) float64 {
	band, ok := scoreBands[complexity]
	if !ok {
		band = scoreBands[types.ComplexityModerate]
	}
	pos := math.Min(1.0, float64(wordCount)/50.0)
	return band[0] + pos*(band[1]-band[0])
}

// extractFeatures computes the classifier signals for a lowercased query.
func extractFeatures(query string) Features {
	f := Features{
		WordCount:      len(strings.Fields(query)),
		QueryLength:    len(query),
		QuestionMarks:  strings.Count(query, "?"),
		HasEnumeration: enumerationRE.MatchString(query),
	}

	for _, p := range simplePatterns {
		if strings.Contains(query, p) {
			f.SimplePattern = p
			break
		}
	}
	for _, p := range complexPatterns {
		if strings.Contains(query, p) {
			f.ComplexPattern = p
			break
		}
	}
	for _, kw := range multiHopKeywords {
		if containsWord(query, kw) {
			f.MultiHopKeywords++
		}
	}
	return f
}

// containsWord reports whether the keyword occurs in the query. Single-word
// keywords must match a whole token so that "и" does not match inside
// longer words.
func containsWord(query, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(query, keyword)
	}
	for _, tok := range strings.FieldsFunc(query, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' || r == ';' || r == ':'
	}) {
		if tok == keyword {
			return true
		}
	}
	return false
}

// heuristicClassify applies the phrase and structure rules. Simple phrase
// matches win outright; complex phrase matches check multi-hop indicators;
// everything else falls back to word-count buckets with structural
// adjustments.
func heuristicClassify(query string, f Features) Classification {
	if f.SimplePattern != "" {
		return Classification{
			Complexity: types.ComplexitySimple,
			Confidence: 0.85,
			Features:   f,
		}
	}

	if f.ComplexPattern != "" {
		complexity := types.ComplexityComplex
		if f.MultiHopKeywords >= 2 {
			complexity = types.ComplexityMultiHop
		}
		return Classification{
			Complexity: complexity,
			Confidence: 0.75,
			Features:   f,
		}
	}

	var complexity types.Complexity
	var confidence float64
	switch {
	case f.WordCount < 10:
		complexity, confidence = types.ComplexitySimple, 0.7
	case f.WordCount < 30:
		complexity, confidence = types.ComplexityModerate, 0.6
	case f.WordCount < 50:
		complexity, confidence = types.ComplexityComplex, 0.6
	default:
		complexity, confidence = types.ComplexityMultiHop, 0.7
	}

	if f.QuestionMarks > 1 {
		complexity = types.ComplexityMultiHop
		confidence *= 0.9
	}

	if f.HasEnumeration {
		if complexity == types.ComplexitySimple {
			complexity = types.ComplexityModerate
		}
		confidence *= 0.95
	}

	return Classification{
		Complexity: complexity,
		Confidence: confidence,
		Features:   f,
	}
}
