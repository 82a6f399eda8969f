package stats

import "math"

// WeightedScore is one group's average score together with the number of
// responses behind it.
type WeightedScore struct {
	Score float64
	Count int
}

// WeightedAverage returns the count-weighted mean of the given rows. The
// second return is false when the total count is zero.
func WeightedAverage(rows []WeightedScore) (float64, bool) {
	var sum float64
	var total int
	for _, r := range rows {
		sum += r.Score * float64(r.Count)
		total += r.Count
	}
	if total == 0 {
		return 0, false
	}
	return sum / float64(total), true
}

// Pearson computes the Pearson correlation coefficient of x and y. It
// returns 0 when fewer than 3 pairs are available or either series is
// constant.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return 0
	}
	return cov / denom
}

// StdDev computes the population standard deviation (divide by n).
func StdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// OLSSlope fits y = a + b*i over indices 0..n-1 and returns b. For a daily
// series, multiply by 30 to express the change per 30 days.
func OLSSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// ScoreLabel maps a 1-5 satisfaction score onto its qualitative band.
func ScoreLabel(score float64) string {
	switch {
	case score >= 4.5:
		return "very high"
	case score >= 4.0:
		return "good"
	case score >= 3.5:
		return "standard"
	case score >= 3.0:
		return "needs improvement"
	default:
		return "urgent"
	}
}
