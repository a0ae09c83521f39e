package p3features

// findPeaks walks vals once and appends the index of every local maximum
// whose rise above the deepest valley since the previous accepted peak
// reaches prominence. A point is a local maximum when it exceeds its left
// neighbor and is not exceeded by its right neighbor, so short plateaus
// register once at their left edge.
func findPeaks(vals []float64, prominence float64, dst []int) []int {
	if len(vals) < 3 {
		return dst
	}

	valley := vals[0]
	for i := 1; i < len(vals)-1; i++ {
		if vals[i] < valley {
			valley = vals[i]
		}
		if vals[i] > vals[i-1] && vals[i] >= vals[i+1] && vals[i]-valley >= prominence {
			dst = append(dst, i)
			valley = vals[i]
		}
	}
	return dst
}

// regularityScore maps the variance of inter-peak intervals to [0,1]:
// perfectly rhythmic peaks (constant spacing) score 1, erratic bursts
// decay toward 0. Fewer than two peaks means no rhythm to measure.
func regularityScore(peakIdx []int) float64 {
	if len(peakIdx) < 2 {
		return 0
	}

	n := len(peakIdx) - 1
	var sum float64
	for i := 1; i < len(peakIdx); i++ {
		sum += float64(peakIdx[i] - peakIdx[i-1])
	}
	mean := sum / float64(n)

	var ss float64
	for i := 1; i < len(peakIdx); i++ {
		d := float64(peakIdx[i]-peakIdx[i-1]) - mean
		ss += d * d
	}
	variance := ss / float64(n)

	return 1.0 / (1.0 + variance)
}
