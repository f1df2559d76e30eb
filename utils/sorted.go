package utils

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// SortedKeys returns the keys of a set-like map in ascending order
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
