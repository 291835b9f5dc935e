package ledger

// Calibration buckets span 40-80% confidence in steps of 10. Confidences
// outside the span clamp into the edge buckets so every settlement lands
// somewhere.
const (
	bucketFloor = 40.0
	bucketCeil  = 80.0
	bucketStep  = 10.0
)

// BucketRange returns the [low, high) confidence bucket for a model
// confidence expressed in [0, 1].
func BucketRange(confidence float64) (low, high float64) {
	pct := confidence * 100

	if pct < bucketFloor {
		return bucketFloor, bucketFloor + bucketStep
	}
	if pct >= bucketCeil {
		return bucketCeil - bucketStep, bucketCeil
	}

	low = bucketFloor
	for low+bucketStep <= pct {
		low += bucketStep
	}
	return low, low + bucketStep
}

// BucketMidpoint returns the stated-confidence midpoint of a bucket as a
// probability in [0, 1].
func BucketMidpoint(low, high float64) float64 {
	return (low + high) / 2.0 / 100.0
}
