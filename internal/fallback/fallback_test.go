package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sieve/internal/model"
)

func corpus() []model.TrainingExample {
	return []model.TrainingExample{
		model.Approved("chip fabs expand", "semiconductor demand"),
		model.Approved("chip prices fall", ""),
		model.Junk("lottery jackpot", "celebrity gossip"),
		model.Junk("lottery winner", "chip"),
	}
}

func TestBuildFrequenciesSumsToOne(t *testing.T) {
	f := BuildFrequencies(corpus()[:2])
	var sum float64
	for _, p := range f {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 2.0/8.0, f["chip"], 1e-12)
	assert.Empty(t, BuildFrequencies(nil))
}

func TestScorePureJunkSignature(t *testing.T) {
	r := Score(model.Article{ID: "a1", Title: "Lottery results tonight"}, corpus())
	assert.Equal(t, 0, r.Confidence)
	assert.True(t, r.ShouldAutoDelete)
	assert.False(t, r.ShouldAutoFlag)
	assert.Equal(t, "a1", r.ArticleID)
	assert.Equal(t, model.SourceKeyword, r.Source)
	assert.Contains(t, r.Reasoning, "keyword")
}

func TestScoreNoOverlapIsNeutral(t *testing.T) {
	r := Score(model.Article{Title: "Gardening tips for spring"}, corpus())
	assert.Equal(t, 50, r.Confidence)
	assert.False(t, r.ShouldAutoDelete)

	r = Score(model.Article{Title: "anything"}, nil)
	assert.Equal(t, 50, r.Confidence)
}

func TestScoreRatio(t *testing.T) {
	ex := corpus()
	approved, junk := model.Split(ex)
	fa, fj := BuildFrequencies(approved), BuildFrequencies(junk)

	// "chip" appears in both corpora; "semiconductor" only in approved.
	r := Score(model.Article{Title: "Chip and semiconductor news"}, ex)
	want := 100 * (fa["chip"] + fa["semiconductor"]) / (fa["chip"] + fa["semiconductor"] + fj["chip"])
	assert.InDelta(t, want, float64(r.Confidence), 0.5)
	assert.Greater(t, r.Confidence, 50)
}

func TestScoreApprovedOnly(t *testing.T) {
	r := Score(model.Article{Title: "Semiconductor demand"}, corpus())
	assert.Equal(t, 100, r.Confidence)
	assert.True(t, r.ShouldAutoFlag)
}

func TestScorerMatchesScore(t *testing.T) {
	ex := corpus()
	s := New(ex)
	for _, a := range []model.Article{
		{ID: "1", Title: "Chip demand"},
		{ID: "2", Title: "Lottery gossip"},
		{ID: "3", Title: "Nothing relevant"},
	} {
		require.Equal(t, Score(a, ex), s.Score(a))
	}
}
