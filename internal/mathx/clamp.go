// Package mathx has the generic range helpers used by the dimmer.
package mathx

import "golang.org/x/exp/constraints"

// Clamp returns v limited to [lo, hi]. lo must not be greater than hi.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// Between reports whether v lies in the closed range [lo, hi].
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return lo <= v && v <= hi
}
