package util

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

func StringSliceIndexOf(slice []string, target string) int {
	for i, s := range slice {
		if s == target {
			return i
		}
	}
	return -1
}

func StringSliceJoinWith(slice []string, s string) string {
	return fmt.Sprintf("[%s]", strings.Join(slice, s))
}

func SwapStringSlice(slice []string, i, j int) {
	slice[i], slice[j] = slice[j], slice[i]
}

// StringSliceSortBy orders slice by the position of each element in
// targetSequence. Elements missing from targetSequence go first, keeping their
// relative order.
func StringSliceSortBy(slice []string, targetSequence []string) {
	sorter := &Sorter{
		LenFunc: func() int {
			return len(slice)
		},
		LessFunc: func(i, j int) bool {
			return StringSliceIndexOf(targetSequence, slice[i]) < StringSliceIndexOf(targetSequence, slice[j])
		},
		SwapFunc: func(i, j int) {
			SwapStringSlice(slice, i, j)
		},
	}
	sort.Stable(sorter)
}

func SumFloat64[T any](f func(item T) float64, vs ...T) float64 {
	s := 0.
	for _, v := range vs {
		s += f(v)
	}
	return s
}

// MaxFloat64 returns 0 for an empty input.
func MaxFloat64[T any](f func(item T) float64, vs ...T) float64 {
	if len(vs) == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, v := range vs {
		max = math.Max(max, f(v))
	}
	return max
}

func AvgFloat64[T any](f func(item T) float64, vs ...T) float64 {
	if len(vs) == 0 {
		return 0
	}
	return SumFloat64(f, vs...) / float64(len(vs))
}
