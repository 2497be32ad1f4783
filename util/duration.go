package util

import "time"

// Graph times are float nanoseconds.

func NanosToMillis(ns float64) float64 {
	return ns / 1000 / 1000
}

func NanosDuration(ns float64) time.Duration {
	return time.Duration(ns)
}

func AvgDuration(vs ...time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	return time.Duration(AvgFloat64(func(item time.Duration) float64 {
		return float64(item)
	}, vs...))
}

func MaxDuration(vs ...time.Duration) time.Duration {
	return time.Duration(MaxFloat64(func(item time.Duration) float64 {
		return float64(item)
	}, vs...))
}
