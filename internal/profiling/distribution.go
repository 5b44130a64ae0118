package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ColumnProfile summarises the distribution of one numeric column.
type ColumnProfile struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`

	Skewness float64 `json:"skewness"`
	// Kurtosis is excess kurtosis; a normal distribution scores zero.
	Kurtosis float64 `json:"kurtosis"`
	// NormalityP is a rough shape score from skewness and kurtosis, not a
	// Shapiro-Wilk p-value.
	NormalityP float64 `json:"normality_p"`
	Outliers   int     `json:"outliers"`
}

// LooksNormal reports whether the shape score clears the 0.05 threshold.
func (p ColumnProfile) LooksNormal() bool {
	return p.NormalityP > 0.05
}

// AnalyzeColumn computes the profile of data. Empty input is an error.
func AnalyzeColumn(name string, data []float64) (ColumnProfile, error) {
	profile := ColumnProfile{Name: name, Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return profile, fmt.Errorf("column %s: %w", name, err)
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return profile, fmt.Errorf("column %s: %w", name, err)
	}
	min, err := stats.Min(data)
	if err != nil {
		return profile, fmt.Errorf("column %s: %w", name, err)
	}
	max, err := stats.Max(data)
	if err != nil {
		return profile, fmt.Errorf("column %s: %w", name, err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return profile, fmt.Errorf("column %s: %w", name, err)
	}

	// Quartiles for IQR-based outlier detection
	q25, q75 := median, median
	if len(data) > 1 {
		if q25, err = stats.Percentile(data, 25); err != nil {
			return profile, fmt.Errorf("column %s: %w", name, err)
		}
		if q75, err = stats.Percentile(data, 75); err != nil {
			return profile, fmt.Errorf("column %s: %w", name, err)
		}
	}

	profile.Mean = mean
	profile.StdDev = stdDev
	profile.Min = min
	profile.Max = max
	profile.Median = median
	profile.Q25 = q25
	profile.Q75 = q75
	profile.Skewness = skewness(data, mean, stdDev)
	profile.Kurtosis = excessKurtosis(data, mean, stdDev)
	profile.NormalityP = normalityP(profile.Skewness, profile.Kurtosis)
	profile.Outliers = countOutliers(data, q25, q75)
	return profile, nil
}

// skewness is the adjusted Fisher-Pearson coefficient.
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

func excessKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	excess := sum/n - 3
	correction := (n - 1) / ((n - 2) * (n - 3))
	return excess*correction + 6/(n+1)
}

// normalityP folds skewness and kurtosis into one statistic and reads it
// against a chi-square with two degrees of freedom.
func normalityP(skew, kurt float64) float64 {
	stat := math.Abs(skew) + math.Abs(kurt)/2
	chi := distuv.ChiSquared{K: 2}
	return 1 - chi.CDF(stat*stat)
}

func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr

	count := 0
	for _, x := range data {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}
