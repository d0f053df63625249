package analytics

import (
	"sieve/internal/model"
)

// bandOrder lists bands from most to least approvable.
var bandOrder = []model.Band{
	model.BandStrongApprove,
	model.BandLikely,
	model.BandMixed,
	model.BandLikelyJunk,
	model.BandStrongJunk,
}

// BandCount is the number of results that fell into a band.
type BandCount struct {
	Band  model.Band `json:"band"`
	Count int        `json:"count"`
}

// Distribution buckets results by confidence band. Every band is present,
// in order from strong-approve to strong-junk.
func Distribution(results []model.ScoreResult) []BandCount {
	counts := make(map[model.Band]int, len(bandOrder))
	for _, r := range results {
		counts[r.Band()]++
	}
	out := make([]BandCount, len(bandOrder))
	for i, b := range bandOrder {
		out[i] = BandCount{Band: b, Count: counts[b]}
	}
	return out
}

// BySource counts results per scorer source.
func BySource(results []model.ScoreResult) map[model.Source]int {
	out := make(map[model.Source]int)
	for _, r := range results {
		out[r.Source]++
	}
	return out
}
