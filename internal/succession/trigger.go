// Package succession implements the trigger evaluator (C5) and the transfer
// document builder (C6): the pure functions that decide when a generation
// should hand off, and assemble what it hands off to its successor.
package succession

import (
	"time"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/models"
)

// Factor names double as map keys and primary-trigger labels; order here is
// the fixed tie-break order.
const (
	FactorInteractions = "interactions"
	FactorConfidence   = "confidence"
	FactorErrors       = "errors"
	FactorStall        = "stall"
)

var factorOrder = []string{FactorInteractions, FactorConfidence, FactorErrors, FactorStall}

// Urgency is the trigger evaluator's verdict.
type Urgency string

const (
	UrgencyNone      Urgency = "none"
	UrgencySoon      Urgency = "soon"
	UrgencyImmediate Urgency = "immediate"
)

// Result is the trigger evaluator's output: a weighted score, the urgency
// bucket it falls into, the factor driving that score, and the per-factor
// breakdown for diagnostics (surfaced by `gasctl trigger`).
type Result struct {
	Score         float64
	Urgency       Urgency
	Primary       string
	FactorScores  map[string]float64
}

// Evaluate is a pure function of a generation's status snapshot: it never
// mutates gen and depends only on cfg and now.
func Evaluate(gen *models.Generation, cfg config.TriggerConfig, now time.Time) Result {
	interactionsRaw := minF(float64(gen.Interactions)/cfg.InteractionLimit, 1.0)
	confidenceRaw := maxF(0, 1-gen.Confidence/cfg.ConfidenceMin)

	errorRate := 0.0
	if gen.Interactions > 0 {
		errorRate = float64(gen.Errors) / float64(gen.Interactions)
	}
	errorsRaw := minF(errorRate/cfg.ErrorRateMax, 1.0)

	stallMinutes := now.Sub(gen.LastUpdated).Minutes()
	stallThresholdMinutes := cfg.StallThreshold.Minutes()
	stallRaw := 0.0
	if stallThresholdMinutes > 0 {
		stallRaw = minF(stallMinutes/stallThresholdMinutes, 1.0)
	}

	interactions := cfg.WeightInteractions * interactionsRaw
	confidence := cfg.WeightConfidence * confidenceRaw
	errors := cfg.WeightErrors * errorsRaw
	stall := cfg.WeightStall * stallRaw

	weighted := map[string]float64{
		FactorInteractions: interactions,
		FactorConfidence:   confidence,
		FactorErrors:       errors,
		FactorStall:        stall,
	}
	raw := map[string]float64{
		FactorInteractions: interactionsRaw,
		FactorConfidence:   confidenceRaw,
		FactorErrors:       errorsRaw,
		FactorStall:        stallRaw,
	}

	score := interactions + confidence + errors + stall

	var urgency Urgency
	switch {
	case score > cfg.ImmediateThreshold:
		urgency = UrgencyImmediate
	case score > cfg.SoonThreshold:
		urgency = UrgencySoon
	default:
		urgency = UrgencyNone
	}

	return Result{
		Score:        score,
		Urgency:      urgency,
		Primary:      primaryFactor(raw),
		FactorScores: weighted,
	}
}

// primaryFactor returns the factor with the highest raw (unweighted)
// per-factor severity, ties broken by factorOrder. This is deliberately
// computed from the unweighted scores, not the weighted ones in
// FactorScores: a low-weight factor at its unweighted maximum should still
// be reported as primary over a high-weight factor with a much lower
// unweighted severity.
func primaryFactor(raw map[string]float64) string {
	best := factorOrder[0]
	for _, f := range factorOrder[1:] {
		if raw[f] > raw[best] {
			best = f
		}
	}
	return best
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
