package microblog

import "golang.org/x/exp/constraints"

const (
	DefaultTimelineCapacity = 50
	DefaultPageLimit        = 50
)

// ClampLimit substitutes def for non-positive values and caps the result at max.
// A non-positive max disables the upper bound.
func ClampLimit[T constraints.Integer](requested, def, max T) T {
	if requested <= 0 {
		requested = def
	}
	if max > 0 && requested > max {
		return max
	}
	return requested
}
