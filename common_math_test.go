package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestComputeBasisOrthonormal(t *testing.T) {
	normals := []mgl64.Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0, -1, 0},
		mgl64.Vec3{1, 1, 1}.Normalize(),
		mgl64.Vec3{-0.3, 0.9, 0.2}.Normalize(),
	}
	for _, n := range normals {
		t1, t2 := computeBasis(n)
		if math.Abs(t1.Len()-1) > 1e-12 || math.Abs(t2.Len()-1) > 1e-12 {
			t.Errorf("basis for %v not unit length: %v %v", n, t1, t2)
		}
		if math.Abs(n.Dot(t1)) > 1e-12 || math.Abs(n.Dot(t2)) > 1e-12 || math.Abs(t1.Dot(t2)) > 1e-12 {
			t.Errorf("basis for %v not orthogonal", n)
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	xf := MakeTransform(mgl64.Vec3{1, -2, 3}, mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}))
	p := mgl64.Vec3{4, 5, -6}
	back := xf.ApplyInverse(xf.Apply(p))
	if !vecNear(back, p, 1e-12) {
		t.Fatalf("round trip drifted: %v != %v", back, p)
	}
}

func TestIntegrateOrientationStaysUnit(t *testing.T) {
	q := mgl64.QuatIdent()
	w := mgl64.Vec3{3, -2, 5}
	for i := 0; i < 1000; i++ {
		q = integrateOrientation(q, w, 1.0/120.0)
	}
	if math.Abs(q.Len()-1) > 1e-9 {
		t.Fatalf("quaternion length drifted to %v", q.Len())
	}
}

func TestIntegrateOrientationMatchesAxisAngle(t *testing.T) {
	// A full substep of pure z spin should rotate x toward y by w*dt.
	w := mgl64.Vec3{0, 0, 1}
	dt := 1e-4
	q := integrateOrientation(mgl64.QuatIdent(), w, dt)
	got := q.Rotate(mgl64.Vec3{1, 0, 0})
	want := mgl64.Vec3{math.Cos(dt), math.Sin(dt), 0}
	if !vecNear(got, want, 1e-8) {
		t.Fatalf("rotated %v, want %v", got, want)
	}
}

func TestSkewMatchesCross(t *testing.T) {
	r := mgl64.Vec3{1, 2, 3}
	v := mgl64.Vec3{-4, 5, 0.5}
	got := skew(r).Mul3x1(v)
	want := r.Cross(v)
	if !vecNear(got, want, 1e-12) {
		t.Fatalf("skew(r)*v = %v, want r x v = %v", got, want)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want float64 }{
		{5, 0, 1, 1},
		{-5, 0, 1, 0},
		{0.5, 0, 1, 0.5},
	}
	for _, c := range cases {
		if got := clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("clamp(%v,%v,%v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
