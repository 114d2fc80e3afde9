package index

import (
	"fmt"
	"math"
)

// TFScheme selects how raw term counts are turned into the tf factor of a
// document weight.
type TFScheme string

const (
	// TFRaw uses the count itself.
	TFRaw TFScheme = "raw"
	// TFLog uses 1 + ln(count).
	TFLog TFScheme = "log"
)

// ParseTFScheme validates a scheme name from configuration.
func ParseTFScheme(s string) (TFScheme, error) {
	switch TFScheme(s) {
	case TFRaw, TFLog:
		return TFScheme(s), nil
	case "":
		return TFRaw, nil
	default:
		return "", fmt.Errorf("unknown tf scheme %q", s)
	}
}

// TF returns the tf factor for a term seen freq times. Non-positive counts
// give zero.
func (s TFScheme) TF(freq int) float64 {
	if freq <= 0 {
		return 0
	}
	if s == TFLog {
		return 1 + math.Log(float64(freq))
	}
	return float64(freq)
}

// IDF is the smoothed inverse document frequency ln((1+n)/(1+df)) + 1.
// It is at least 1 whenever df <= n, so a term present in every document
// still carries weight, and it never divides by zero.
func IDF(n, df int) float64 {
	if n < 0 {
		n = 0
	}
	if df < 0 {
		df = 0
	}
	if df > n {
		df = n
	}
	return math.Log(float64(1+n)/float64(1+df)) + 1
}
