package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nvidias new chip hits 5nm", Normalize("NVIDIA's new chip: hits 5nm!"))
}

func TestKeywordsFiltersShortAndStopWords(t *testing.T) {
	got := Keywords("The new chip from this fab will ship with more memory")
	assert.Equal(t, []string{"chip", "ship", "memory"}, got)
	for _, k := range got {
		assert.GreaterOrEqual(t, len(k), MinKeywordLen)
		assert.False(t, IsStopWord(k))
	}
}

func TestKeywordsStripsHTML(t *testing.T) {
	got := Keywords(`<p>Quantum <b>computing</b> &amp; lasers</p><script>var tracking = 1</script>`)
	assert.Equal(t, []string{"quantum", "computing", "lasers"}, got)
}

func TestKeywordsEmpty(t *testing.T) {
	assert.Empty(t, Keywords(""))
	assert.Empty(t, Keywords("   a an the   "))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world & friends", StripHTML("<div>Hello <i>world</i> &amp; friends</div><style>p{}</style>"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a b", Join("a", "", "  ", "b"))
}

func TestKeywordSet(t *testing.T) {
	set := KeywordSet("lottery lottery winner")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "lottery")
}

func TestKeywordsKeepsWordsAroundStrayAngleBrackets(t *testing.T) {
	cases := map[string][]string{
		"Chip revenue<profit margins shrink":               {"chip", "revenue", "profit", "margins", "shrink"},
		"Semiconductor yields <think twice> about lottery": {"semiconductor", "yields", "think", "twice", "lottery"},
		"<b>Chip</b> revenue<profit margins":               {"chip", "revenue", "profit", "margins"},
		"fabs < foundries > startups":                      {"fabs", "foundries", "startups"},
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Keywords(in))
		})
	}
}
