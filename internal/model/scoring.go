package model

import (
	"fmt"
	"math"
)

// Thresholds applied uniformly regardless of which scorer produced the value.
const (
	AutoFlagAbove     = 80
	AutoJunkAtOrBelow = 20
	AutoDeleteBelow   = 5
	NeutralConfidence = 50
)

// Source names the scorer that produced a result.
type Source string

const (
	SourceNetwork Source = "neural network"
	SourceKeyword Source = "keyword"
	SourceNeutral Source = "neutral"
)

// Band is a coarse confidence bucket used in reasoning strings.
type Band string

const (
	BandStrongApprove Band = "strong-approve"
	BandLikely        Band = "likely"
	BandMixed         Band = "mixed"
	BandLikelyJunk    Band = "likely-junk"
	BandStrongJunk    Band = "strong-junk"
)

// BandFor maps a confidence in [0,100] to exactly one band.
func BandFor(confidence int) Band {
	switch {
	case confidence > 80:
		return BandStrongApprove
	case confidence > 60:
		return BandLikely
	case confidence > 40:
		return BandMixed
	case confidence > 20:
		return BandLikelyJunk
	default:
		return BandStrongJunk
	}
}

// ScoreResult is the per-article output of a scorer.
type ScoreResult struct {
	ArticleID        string `json:"article_id,omitempty"`
	Confidence       int    `json:"confidence"`
	Reasoning        string `json:"reasoning"`
	ShouldAutoFlag   bool   `json:"should_auto_flag"`
	ShouldAutoDelete bool   `json:"should_auto_delete"`
	Source           Source `json:"source"`
}

// ShouldAutoJunk is the caller-side junk threshold.
func (r ScoreResult) ShouldAutoJunk() bool { return r.Confidence <= AutoJunkAtOrBelow }

// Band returns the result's confidence band.
func (r ScoreResult) Band() Band { return BandFor(r.Confidence) }

// NewResult clamps confidence and derives flags and reasoning.
func NewResult(src Source, confidence int) ScoreResult {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	r := ScoreResult{
		Confidence:       confidence,
		ShouldAutoFlag:   confidence > AutoFlagAbove,
		ShouldAutoDelete: confidence < AutoDeleteBelow,
		Source:           src,
	}
	r.Reasoning = fmt.Sprintf("%s: %s (%d%%)", src, BandFor(confidence), confidence)
	if r.ShouldAutoDelete {
		r.Reasoning += " - auto-delete"
	}
	return r
}

// Neutral returns the confidence-50 result with an explanation.
func Neutral(reason string) ScoreResult {
	r := NewResult(SourceNeutral, NeutralConfidence)
	r.Reasoning = reason
	return r
}

// FromProbability converts a network output in (0,1) to a result. ok is false
// when p is NaN, infinite or outside [0,1].
func FromProbability(p float64) (ScoreResult, bool) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return ScoreResult{}, false
	}
	return NewResult(SourceNetwork, int(math.Round(100*p))), true
}
