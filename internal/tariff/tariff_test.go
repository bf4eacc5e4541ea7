package tariff

import (
	"math"
	"strings"
	"testing"
)

func TestTierBoundary(t *testing.T) {
	tr := Reference
	for _, d := range []float64{0.5, 1, 3, 12.25} {
		if got := tr.Cost(d, tr.Threshold); got != d*tr.LowRate {
			t.Fatalf("d=%v at threshold: got %v want low rate", d, got)
		}
		if got := tr.Cost(d, tr.Threshold+1e-9); got != d*tr.HighRate {
			t.Fatalf("d=%v above threshold: got %v want high rate", d, got)
		}
	}
}

func TestZeroWeightUsesLowRate(t *testing.T) {
	if got := Reference.Cost(3, 0); got != 30 {
		t.Fatalf("empty vehicle over 3: got %v want 30", got)
	}
	if got := Reference.Cost(0, 100); got != 0 {
		t.Fatalf("zero distance should cost nothing, got %v", got)
	}
}

func TestReferenceScenarioLegs(t *testing.T) {
	// hub->A empty then A->hub loaded, distance 3 each way.
	if got := Reference.Cost(3, 0) + Reference.Cost(3, 3); got != 60 {
		t.Fatalf("weight 3: got %v want 60", got)
	}
	if got := Reference.Cost(3, 0) + Reference.Cost(3, 6); got != 54 {
		t.Fatalf("weight 6: got %v want 54", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Reference.Validate(); err != nil {
		t.Fatalf("reference tariff invalid: %v", err)
	}
	bad := []Tariff{
		{Threshold: -1, LowRate: 1, HighRate: 1},
		{Threshold: 1, LowRate: math.NaN(), HighRate: 1},
		{Threshold: 1, LowRate: 1, HighRate: math.Inf(1)},
	}
	for _, tr := range bad {
		if err := tr.Validate(); err == nil {
			t.Fatalf("expected error for %+v", tr)
		}
	}
}

func TestValidateReportsFirstBadField(t *testing.T) {
	tr := Tariff{Threshold: -1, LowRate: math.NaN(), HighRate: -2}
	for i := 0; i < 50; i++ {
		err := tr.Validate()
		if err == nil || !strings.Contains(err.Error(), "threshold") {
			t.Fatalf("run %d: want threshold error, got %v", i, err)
		}
	}
	tr.Threshold = 1
	if err := tr.Validate(); err == nil || !strings.Contains(err.Error(), "low_rate") {
		t.Fatalf("want low_rate error, got %v", err)
	}
}

func TestMinRate(t *testing.T) {
	if got := Reference.MinRate(); got != 8 {
		t.Fatalf("reference min rate: got %v want 8", got)
	}
	if got := (Tariff{Threshold: 5, LowRate: 3, HighRate: 7}).MinRate(); got != 3 {
		t.Fatalf("got %v want 3", got)
	}
}
