package mmath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ReduceIndexes picks the sample indexes needed to reproduce every channel within
// tolerance by linear interpolation over times (Ramer-Douglas-Peucker across all
// channels at once). The first and last index are always kept.
func ReduceIndexes(times []float64, channels [][]float64, tolerance float64) []int {
	n := len(times)
	if n <= 2 {
		indexes := make([]int, n)
		for i := range indexes {
			indexes[i] = i
		}
		return indexes
	}

	keep := map[int]bool{0: true, n - 1: true}
	stack := [][2]int{{0, n - 1}}

	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		start, end := seg[0], seg[1]
		if end-start < 2 {
			continue
		}

		deviations := make([]float64, end-start-1)
		for i := start + 1; i < end; i++ {
			deviations[i-start-1] = maxDeviation(times, channels, start, end, i)
		}

		at := floats.MaxIdx(deviations)
		if deviations[at] > tolerance {
			mid := start + 1 + at
			keep[mid] = true
			stack = append(stack, [2]int{start, mid}, [2]int{mid, end})
		}
	}

	indexes := make([]int, 0, len(keep))
	for i := range keep {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

func maxDeviation(times []float64, channels [][]float64, start, end, i int) float64 {
	span := times[end] - times[start]
	t := 0.0
	if span > 0 {
		t = (times[i] - times[start]) / span
	}

	deviation := 0.0
	for _, ch := range channels {
		expected := ch[start] + (ch[end]-ch[start])*t
		deviation = math.Max(deviation, math.Abs(ch[i]-expected))
	}
	return deviation
}
