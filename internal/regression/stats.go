package regression

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// sampleStdDev is the n-1 standard deviation; 0 for fewer than 2 values.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

// linearRegression fits y = slope*x + intercept by ordinary least squares
// and reports the slope together with the coefficient of determination.
// R-squared is clamped to 0 so numerical noise never reports a negative fit.
func linearRegression(xs, ys []float64) (slope, rSquared float64) {
	n := len(xs)
	if n < 2 {
		return 0, 0
	}

	xMean := mean(xs)
	yMean := mean(ys)

	numerator := 0.0
	denominator := 0.0
	for i := 0; i < n; i++ {
		dx := xs[i] - xMean
		numerator += dx * (ys[i] - yMean)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0, 0
	}
	slope = numerator / denominator

	intercept := yMean - slope*xMean
	ssRes := 0.0
	ssTot := 0.0
	for i := 0; i < n; i++ {
		pred := slope*xs[i] + intercept
		ssRes += (ys[i] - pred) * (ys[i] - pred)
		ssTot += (ys[i] - yMean) * (ys[i] - yMean)
	}
	if ssTot == 0 {
		return slope, 0
	}

	return slope, math.Max(0, 1-ssRes/ssTot)
}
