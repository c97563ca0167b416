// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// MaxSlice gets the maximum value and indices of the maximum values in
// a slice of float64.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i := 1; i < len(values); i++ {
		value := values[i]
		if value > max {
			max = value
			indices = []int{i}
		} else if value == max {
			indices = append(indices, i)
		}
	}
	return
}

// Argmax returns the index of the largest value in values. Ties are
// broken in favour of the lowest index.
func Argmax(values []float64) int {
	_, indices := MaxSlice(values)
	return indices[0]
}

// Softmax returns the softmax of values / temperature. The maximum
// value is subtracted before exponentiating so that large action
// values do not overflow.
func Softmax(values []float64, temperature float64) []float64 {
	max, _ := MaxSlice(values)

	probs := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		probs[i] = math.Exp((v - max) / temperature)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
