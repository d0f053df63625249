package nn

import (
	"sort"

	"sieve/internal/model"
	"sieve/internal/util"
)

// DefaultMaxFeatures bounds the vocabulary size.
const DefaultMaxFeatures = 100

// Vocabulary is the ordered keyword list defining the feature space.
// Index i of every feature vector corresponds to Vocabulary[i].
type Vocabulary []string

// FeatureVector is a single training sample: binary presence features and target.
type FeatureVector struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// ExampleText is the text a training example contributes to the corpus.
func ExampleText(e model.TrainingExample) string {
	return util.Join(e.Title, e.Description, e.Notes)
}

// ArticleText is the text an article is vectorized from.
func ArticleText(a model.Article) string {
	return util.Join(a.Title, a.Description)
}

// BuildVocabulary selects up to maxFeatures keywords by descending frequency
// across all examples. Ties keep first-seen order.
func BuildVocabulary(examples []model.TrainingExample, maxFeatures int) Vocabulary {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	counts := make(map[string]int)
	var order []string
	for _, e := range examples {
		for _, w := range util.Keywords(ExampleText(e)) {
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > maxFeatures {
		order = order[:maxFeatures]
	}
	return Vocabulary(order)
}

// Vectorize maps an article onto the vocabulary.
func Vectorize(a model.Article, v Vocabulary) []float64 {
	return vectorizeText(ArticleText(a), v)
}

func vectorizeText(text string, v Vocabulary) []float64 {
	x := make([]float64, len(v))
	if len(v) == 0 {
		return x
	}
	present := util.KeywordSet(text)
	for i, w := range v {
		if _, ok := present[w]; ok {
			x[i] = 1
		}
	}
	return x
}

// Samples turns labeled examples into feature vectors over v.
func Samples(examples []model.TrainingExample, v Vocabulary) []FeatureVector {
	out := make([]FeatureVector, 0, len(examples))
	for _, e := range examples {
		out = append(out, FeatureVector{
			X: vectorizeText(ExampleText(e), v),
			Y: []float64{float64(e.Label)},
		})
	}
	return out
}
