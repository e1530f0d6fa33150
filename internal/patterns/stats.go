package patterns

import "math"

// regression holds a least-squares fit of a series against its indices.
type regression struct {
	Slope      float64
	Intercept  float64
	RSquared   float64
	Confidence float64
}

// linearRegression fits y against x = 0..n-1. Returns false for series
// shorter than 3 points or with a degenerate x spread (which would divide
// by zero). R-squared of a zero-variance series is defined as 0.
func linearRegression(series []float64) (regression, bool) {
	n := len(series)
	if n < 3 {
		return regression{}, false
	}

	var sumX, sumY, sumXY, sumX2 float64
	for x, y := range series {
		fx := float64(x)
		sumX += fx
		sumY += y
		sumXY += fx * y
		sumX2 += fx * fx
	}

	fn := float64(n)
	denom := fn*sumX2 - sumX*sumX
	if denom == 0 {
		return regression{}, false
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	yMean := sumY / fn
	var ssTotal, ssResidual float64
	for x, y := range series {
		predicted := slope*float64(x) + intercept
		ssTotal += (y - yMean) * (y - yMean)
		ssResidual += (y - predicted) * (y - predicted)
	}

	rSquared := 0.0
	if ssTotal != 0 {
		rSquared = 1 - ssResidual/ssTotal
	}

	return regression{
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   rSquared,
		Confidence: math.Sqrt(math.Abs(rSquared)),
	}, true
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series. Returns false for mismatched or short series, or when either
// series has zero variance.
func pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 3 {
		return 0, false
	}

	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 {
		return 0, false
	}

	return (n*sumXY - sumX*sumY) / denominator, true
}
