package tsdf

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCastRayZeroLength(t *testing.T) {
	// S4: s == e returns a single index.
	s := r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}
	got := CastRay(s, s)
	test.That(t, got, test.ShouldResemble, []GlobalIndex{{X: 0, Y: 0, Z: 0}})
}

func TestCastRayAxisAligned(t *testing.T) {
	got := CastRay(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 4.5, Y: 0, Z: 0})
	want := []GlobalIndex{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}, {4, 0, 0}}
	test.That(t, got, test.ShouldResemble, want)
}

func TestCastRayDiagonalTieBreak(t *testing.T) {
	// S2: fixes the lowest-axis tie-break.
	got := CastRay(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 2, Z: 0})
	want := []GlobalIndex{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {2, 1, 0}, {2, 2, 0},
	}
	test.That(t, got, test.ShouldResemble, want)
}

func TestCastRayNegativeCoordinates(t *testing.T) {
	got := CastRay(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: -3, Y: 0, Z: 0})
	want := []GlobalIndex{{0, 0, 0}, {-1, 0, 0}, {-2, 0, 0}, {-3, 0, 0}}
	test.That(t, got, test.ShouldResemble, want)
}

func TestCastRayEndpoints(t *testing.T) {
	// Property 2: output starts with floor(s), ends with floor(e).
	starts := []r3.Vector{{X: -3.7, Y: 1.2, Z: 0.9}, {X: 0, Y: 0, Z: 0}, {X: 10.5, Y: -4.4, Z: 2.1}}
	ends := []r3.Vector{{X: 5.1, Y: -2.3, Z: 8.8}, {X: 4, Y: 4, Z: 4}, {X: -1.5, Y: 3.5, Z: -9.9}}

	for i := range starts {
		out := CastRay(starts[i], ends[i])
		test.That(t, out[0], test.ShouldResemble, GridIndexFromScaledPoint(starts[i]))
		test.That(t, out[len(out)-1], test.ShouldResemble, GridIndexFromScaledPoint(ends[i]))
	}
}

func TestCastRaySixConnectivity(t *testing.T) {
	// Property 3: consecutive indices differ by exactly +-1 in exactly one component.
	out := CastRay(r3.Vector{X: -1.3, Y: 2.7, Z: -0.4}, r3.Vector{X: 6.8, Y: -3.1, Z: 5.6})
	for i := 1; i < len(out); i++ {
		dx := abs64(out[i].X - out[i-1].X)
		dy := abs64(out[i].Y - out[i-1].Y)
		dz := abs64(out[i].Z - out[i-1].Z)
		sum := dx + dy + dz
		test.That(t, sum, test.ShouldEqual, int64(1))
	}
}

func TestCastRayDeterministic(t *testing.T) {
	// Property 4: depends only on (s, e).
	s := r3.Vector{X: 1.1, Y: -2.2, Z: 3.3}
	e := r3.Vector{X: -4.4, Y: 5.5, Z: -6.6}
	first := CastRay(s, e)
	for i := 0; i < 5; i++ {
		test.That(t, CastRay(s, e), test.ShouldResemble, first)
	}
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
