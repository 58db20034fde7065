package jitprofile

import (
	"testing"

	"vmopt/internal/ir"
)

func TestRecordCallTripsQuickThresholdExactlyOnce(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "hot"}
	p := NewProfiler()

	var trips int
	var lastTier Tier
	for i := 0; i < quickThreshold+5; i++ {
		if tripped, tier := p.RecordCall(m); tripped {
			trips++
			lastTier = tier
		}
	}
	if trips != 1 {
		t.Fatalf("expected exactly one threshold trip in the first batch, got %d", trips)
	}
	if lastTier != TierQuickJIT {
		t.Fatalf("expected the first trip to be TierQuickJIT, got %v", lastTier)
	}
}

func TestRecordCallTripsOptimizedThreshold(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "hot"}
	p := NewProfiler()

	var optimizedTrips int
	for i := 0; i < optimizedThreshold; i++ {
		if tripped, tier := p.RecordCall(m); tripped && tier == TierOptimized {
			optimizedTrips++
		}
	}
	if optimizedTrips != 1 {
		t.Fatalf("expected exactly one TierOptimized trip, got %d", optimizedTrips)
	}
	if p.CallCount(m) != optimizedThreshold {
		t.Fatalf("expected call count to equal the number of recorded calls, got %d", p.CallCount(m))
	}
}

func TestHotMethodsOnlyIncludesMethodsPastQuickThreshold(t *testing.T) {
	hot := &ir.Method{Owner: "A", Name: "hot"}
	cold := &ir.Method{Owner: "A", Name: "cold"}
	p := NewProfiler()
	for i := 0; i < quickThreshold; i++ {
		p.RecordCall(hot)
	}
	p.RecordCall(cold)

	set := p.HotMethods()
	if !set[hot.Key()] {
		t.Fatalf("expected %s to be flagged hot", hot.Key())
	}
	if set[cold.Key()] {
		t.Fatalf("did not expect %s to be flagged hot", cold.Key())
	}
}

func TestForNativeLoweringOnlyIncludesOptimizedTier(t *testing.T) {
	quick := &ir.Method{Owner: "A", Name: "quick"}
	optimized := &ir.Method{Owner: "A", Name: "optimized"}
	p := NewProfiler()
	for i := 0; i < quickThreshold; i++ {
		p.RecordCall(quick)
	}
	for i := 0; i < optimizedThreshold; i++ {
		p.RecordCall(optimized)
	}

	out := p.ForNativeLowering([]*ir.Method{quick, optimized})
	if len(out) != 1 || out[0] != optimized {
		t.Fatalf("expected only the optimized-tier method, got %v", out)
	}
}

func TestTierString(t *testing.T) {
	cases := map[Tier]string{
		TierInterpreted: "interpreted",
		TierQuickJIT:    "quick",
		TierOptimized:   "optimized",
	}
	for tier, want := range cases {
		if got := tier.String(); got != want {
			t.Fatalf("Tier(%d).String() = %q, want %q", tier, got, want)
		}
	}
}
