// Package fallback scores articles by comparing their keywords against the
// word frequencies of the approved and junk corpora. It needs no trained
// network and keeps no state between calls.
package fallback

import (
	"math"

	"sieve/internal/model"
	"sieve/internal/util"
)

// Frequencies maps a keyword to its share of a corpus' total keyword count.
type Frequencies map[string]float64

// BuildFrequencies counts every keyword occurrence across examples and
// normalises by the total.
func BuildFrequencies(examples []model.TrainingExample) Frequencies {
	counts := make(map[string]int)
	total := 0
	for _, e := range examples {
		for _, w := range util.Keywords(util.Join(e.Title, e.Description, e.Notes)) {
			counts[w]++
			total++
		}
	}
	f := make(Frequencies, len(counts))
	for w, c := range counts {
		f[w] = float64(c) / float64(total)
	}
	return f
}

// Score rates a single article. No overlap with either corpus gives 50. An
// article that only matches junk keywords is forced to 0, which also marks
// it for auto-delete.
func Score(a model.Article, examples []model.TrainingExample) model.ScoreResult {
	approved, junk := model.Split(examples)
	r := score(a, BuildFrequencies(approved), BuildFrequencies(junk))
	r.ArticleID = a.ID
	return r
}

// Scorer reuses the corpus frequencies across a batch.
type Scorer struct {
	approved Frequencies
	junk     Frequencies
}

func New(examples []model.TrainingExample) *Scorer {
	approved, junk := model.Split(examples)
	return &Scorer{approved: BuildFrequencies(approved), junk: BuildFrequencies(junk)}
}

func (s *Scorer) Score(a model.Article) model.ScoreResult {
	r := score(a, s.approved, s.junk)
	r.ArticleID = a.ID
	return r
}

func score(a model.Article, approved, junk Frequencies) model.ScoreResult {
	var aMass, jMass float64
	var aHits, jHits int
	for w := range util.KeywordSet(util.Join(a.Title, a.Description)) {
		if p, ok := approved[w]; ok {
			aMass += p
			aHits++
		}
		if p, ok := junk[w]; ok {
			jMass += p
			jHits++
		}
	}
	switch {
	case jHits > 0 && aHits == 0:
		return model.NewResult(model.SourceKeyword, 0)
	case aMass+jMass == 0:
		return model.NewResult(model.SourceKeyword, model.NeutralConfidence)
	}
	return model.NewResult(model.SourceKeyword, int(math.Round(100*aMass/(aMass+jMass))))
}
