// Package threshold classifies usage figures against a daily allowance.
package threshold

import (
	"errors"
	"math"
)

// Band is the severity of a usage value relative to its threshold.
type Band string

const (
	BandGood     Band = "good"
	BandWarning  Band = "warning"
	BandExceeded Band = "exceeded"
)

const (
	WarningRatio = 0.8
	WeeklyDays   = 7
	MonthlyDays  = 30
)

var ErrInvalidThreshold = errors.New("invalid_threshold")

// Classify maps value onto a band. Values above the threshold are exceeded,
// values above 80% of it are a warning, everything else is good.
func Classify(value, threshold float64) (Band, error) {
	if err := Validate(threshold); err != nil {
		return "", err
	}
	switch {
	case value > threshold:
		return BandExceeded, nil
	case value > threshold*WarningRatio:
		return BandWarning, nil
	default:
		return BandGood, nil
	}
}

func Validate(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}

func Weekly(daily float64) float64 {
	return daily * WeeklyDays
}

func Monthly(daily float64) float64 {
	return daily * MonthlyDays
}

// Bands holds the classification of each aggregation window.
type Bands struct {
	Today   Band `json:"today"`
	Weekly  Band `json:"weekly"`
	Monthly Band `json:"monthly"`
}

// ClassifyAll classifies the three window sums using the scaled thresholds.
func ClassifyAll(today, weekly, monthly, daily float64) (Bands, error) {
	var (
		out Bands
		err error
	)
	if out.Today, err = Classify(today, daily); err != nil {
		return Bands{}, err
	}
	if out.Weekly, err = Classify(weekly, Weekly(daily)); err != nil {
		return Bands{}, err
	}
	if out.Monthly, err = Classify(monthly, Monthly(daily)); err != nil {
		return Bands{}, err
	}
	return out, nil
}

// Percent returns value as a whole percentage of threshold, rounding half up.
func Percent(value, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return math.Floor(value/threshold*100 + 0.5)
}
