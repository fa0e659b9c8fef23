package succession

import (
	"testing"
	"time"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/models"
)

func testTriggerConfig() config.TriggerConfig {
	return config.DefaultConfig().Trigger
}

func TestEvaluateFreshGenerationIsNone(t *testing.T) {
	gen := models.NewGeneration("agent", 1, 0)
	gen.LastUpdated = time.Now()
	gen.Interactions = 5
	gen.Confidence = 1.0

	result := Evaluate(gen, testTriggerConfig(), time.Now())
	if result.Urgency != UrgencyNone {
		t.Fatalf("urgency = %v, want none", result.Urgency)
	}
}

func TestEvaluateHighInteractionsIsPrimary(t *testing.T) {
	cfg := testTriggerConfig()
	gen := models.NewGeneration("agent", 1, 0)
	gen.LastUpdated = time.Now()
	gen.Interactions = 300 // well past InteractionLimit
	gen.Confidence = 1.0

	result := Evaluate(gen, cfg, time.Now())
	if result.Primary != FactorInteractions {
		t.Fatalf("primary = %q, want interactions", result.Primary)
	}
}

func TestEvaluateLowConfidenceDrivesScore(t *testing.T) {
	cfg := testTriggerConfig()
	gen := models.NewGeneration("agent", 1, 0)
	gen.LastUpdated = time.Now()
	gen.Confidence = 0.1

	result := Evaluate(gen, cfg, time.Now())
	if result.FactorScores[FactorConfidence] <= 0 {
		t.Fatalf("expected positive confidence factor score, got %f", result.FactorScores[FactorConfidence])
	}
}

func TestEvaluateStallScalesWithElapsedTime(t *testing.T) {
	cfg := testTriggerConfig()
	gen := models.NewGeneration("agent", 1, 0)
	gen.Confidence = 1.0
	gen.LastUpdated = time.Now().Add(-20 * time.Minute)

	result := Evaluate(gen, cfg, time.Now())
	if result.FactorScores[FactorStall] != cfg.WeightStall {
		t.Fatalf("stall factor = %f, want capped at weight %f", result.FactorScores[FactorStall], cfg.WeightStall)
	}
}

func TestEvaluateUrgencyThresholds(t *testing.T) {
	cfg := testTriggerConfig()
	gen := models.NewGeneration("agent", 1, 0)
	gen.LastUpdated = time.Now()
	gen.Interactions = 1000
	gen.Errors = 1000
	gen.Confidence = 0.0

	result := Evaluate(gen, cfg, time.Now())
	if result.Urgency != UrgencyImmediate {
		t.Fatalf("urgency = %v, want immediate for maxed-out factors", result.Urgency)
	}
}

func TestEvaluatePrimaryUsesUnweightedSeverityNotWeightedScore(t *testing.T) {
	cfg := testTriggerConfig()
	gen := models.NewGeneration("agent", 1, 0)
	gen.Confidence = 1.0
	gen.Interactions = 100 // 100/150 = 0.667 raw, well under errors/stall
	gen.Errors = 14        // errorRate 0.14, /0.15 = 0.933 raw
	gen.LastUpdated = time.Now().Add(-20 * time.Minute) // >= stallThreshold, 1.0 raw

	result := Evaluate(gen, cfg, time.Now())

	// Weighted, errors (0.25 * 0.933 = 0.233) outscores stall
	// (0.20 * 1.0 = 0.20), but stall's unweighted severity (1.0) exceeds
	// errors' (0.933): the primary trigger must be stall.
	if result.FactorScores[FactorErrors] <= result.FactorScores[FactorStall] {
		t.Fatalf("test setup invalid: errors weighted score %f should exceed stall's %f",
			result.FactorScores[FactorErrors], result.FactorScores[FactorStall])
	}
	if result.Primary != FactorStall {
		t.Fatalf("primary = %q, want stall (highest unweighted severity)", result.Primary)
	}
}

func TestPrimaryFactorTieBreakOrder(t *testing.T) {
	raw := map[string]float64{
		FactorInteractions: 0.5,
		FactorConfidence:   0.5,
		FactorErrors:       0.5,
		FactorStall:        0.5,
	}
	if got := primaryFactor(raw); got != FactorInteractions {
		t.Fatalf("primary = %q, want interactions (first in tie-break order)", got)
	}
}
