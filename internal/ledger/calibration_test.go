package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketRange(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantLow    float64
		wantHigh   float64
	}{
		{name: "mid-bucket", confidence: 0.55, wantLow: 50, wantHigh: 60},
		{name: "lower-edge-inclusive", confidence: 0.60, wantLow: 60, wantHigh: 70},
		{name: "upper-edge-exclusive", confidence: 0.5999, wantLow: 50, wantHigh: 60},
		{name: "clamps-below-floor", confidence: 0.12, wantLow: 40, wantHigh: 50},
		{name: "clamps-above-ceiling", confidence: 0.93, wantLow: 70, wantHigh: 80},
		{name: "exact-ceiling-clamps", confidence: 0.80, wantLow: 70, wantHigh: 80},
		{name: "exact-floor", confidence: 0.40, wantLow: 40, wantHigh: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := BucketRange(tt.confidence)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
		})
	}
}

func TestBucketMidpoint(t *testing.T) {
	assert.InDelta(t, 0.55, BucketMidpoint(50, 60), 1e-9)
	assert.InDelta(t, 0.75, BucketMidpoint(70, 80), 1e-9)
}
