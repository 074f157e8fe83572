// Package lin provides the vector math a spatial index needs: axis-aligned
// bounds comparison, volume, and distance-along-a-direction projection.
// Trimmed from a general purpose 3D math library down to what AABB bloat
// and back-to-front sorting actually touch — no matrices, quaternions, or
// angle conversions, since the leaf system never rotates anything.
package lin

import "math"

// Epsilon is used to distinguish when a float is close enough to a number.
const Epsilon float64 = 0.000001

// Aeq (~=) almost-equals returns true if the difference between a and b is
// so small that it doesn't matter.
func Aeq(a, b float64) bool { return math.Abs(a-b) < Epsilon }

// Max3 returns the largest of the 3 numbers.
func Max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }

// Min3 returns the smallest of the 3 numbers.
func Min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
