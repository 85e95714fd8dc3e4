package domain

import (
	"math"
	"strconv"
	"strings"
)

// MinorUnits converts a decimal major-unit amount (e.g. 19.99) to minor units, rounding half away from zero.
func MinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// MajorUnits converts minor units back to a decimal amount for presentation.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// ParseMajorUnits parses a decimal string such as "40" or "19.99" into minor units.
func ParseMajorUnits(raw string) (int64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, strconv.ErrRange
	}
	return MinorUnits(value), nil
}
