package data

import (
	"fmt"
	"math/rand"
	"time"

	"portfolio-backtest/internal/model"
)

// RandomWindows draws n windows spanning length consecutive dates each from a
// sorted date axis. The same rng seed always yields the same windows.
func RandomWindows(dates []time.Time, length, n int, rng *rand.Rand) ([]model.Window, error) {
	if length < 2 {
		return nil, fmt.Errorf("window length %d: need at least 2 dates", length)
	}
	if length > len(dates) {
		return nil, fmt.Errorf("window length %d exceeds %d available dates", length, len(dates))
	}
	if n <= 0 {
		return nil, nil
	}
	span := len(dates) - length + 1
	out := make([]model.Window, n)
	for i := range out {
		start := rng.Intn(span)
		out[i] = model.Window{Start: dates[start], End: dates[start+length-1]}
	}
	return out, nil
}

// RollingWindows returns every window of length dates advancing by step.
func RollingWindows(dates []time.Time, length, step int) []model.Window {
	if length < 2 || step < 1 {
		return nil
	}
	var out []model.Window
	for start := 0; start+length <= len(dates); start += step {
		out = append(out, model.Window{Start: dates[start], End: dates[start+length-1]})
	}
	return out
}
