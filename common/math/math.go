package math

import (
	"math"
)

// CompoundAnnualGrowthRate returns the annualised growth between two values
// as a fraction. periodsPerYear is how many observations make a year and
// numberOfPeriods is how many observations separate open from close
func CompoundAnnualGrowthRate(openValue, closeValue, periodsPerYear, numberOfPeriods float64) float64 {
	if openValue <= 0 || numberOfPeriods <= 0 {
		return 0
	}
	growth := closeValue / openValue
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, periodsPerYear/numberOfPeriods) - 1
}

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values))
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean using n-1 as the denominator
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(values)
	var combined float64
	for i := range values {
		diff := values[i] - mean
		combined += diff * diff
	}
	return math.Sqrt(combined / float64(len(values)-1))
}

// SharpeRatio returns the mean excess return over its sample standard
// deviation, scaled by the square root of periodsPerYear.
// Fewer than two returns or zero dispersion yields 0
func SharpeRatio(returns []float64, riskFreePerPeriod, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := make([]float64, len(returns))
	for i := range returns {
		excess[i] = returns[i] - riskFreePerPeriod
	}
	stdDev := SampleStandardDeviation(excess)
	if stdDev == 0 {
		return 0
	}
	return ArithmeticAverage(excess) / stdDev * math.Sqrt(periodsPerYear)
}

// SortinoRatio is the Sharpe ratio using downside deviation only
func SortinoRatio(returns []float64, riskFreePerPeriod, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var downside float64
	excess := make([]float64, len(returns))
	for i := range returns {
		excess[i] = returns[i] - riskFreePerPeriod
		if excess[i] < 0 {
			downside += excess[i] * excess[i]
		}
	}
	downsideDeviation := math.Sqrt(downside / float64(len(returns)))
	if downsideDeviation == 0 {
		return 0
	}
	return ArithmeticAverage(excess) / downsideDeviation * math.Sqrt(periodsPerYear)
}

// CalmarRatio compares the annualised return against the maximum drawdown
// fraction
func CalmarRatio(annualisedReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualisedReturn / maxDrawdown
}

// RoundFloat rounds your floating point number to the desired decimal place
func RoundFloat(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(x*pow) / pow
}
