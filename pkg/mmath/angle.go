package mmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the shortest ray AngleBetween still treats as a direction.
const Epsilon = 1e-9

// AngleBetween returns the angle at b between the rays b->a and b->c, in [0, π].
// A zero-length ray gives 0.
func AngleBetween(a, b, c mgl64.Vec3) float64 {
	ba, ok := direction(a, b)
	if !ok {
		return 0
	}
	bc, ok := direction(c, b)
	if !ok {
		return 0
	}
	return math.Acos(mgl64.Clamp(ba.Dot(bc), -1, 1))
}

func direction(to, from mgl64.Vec3) (mgl64.Vec3, bool) {
	v := to.Sub(from)
	l := v.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}
