package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABBOverlaps(t *testing.T) {
	a := MakeAABBFromCenter(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	cases := []struct {
		name   string
		center mgl64.Vec3
		want   bool
	}{
		{"coincident", mgl64.Vec3{0, 0, 0}, true},
		{"touching faces", mgl64.Vec3{2, 0, 0}, true},
		{"separated x", mgl64.Vec3{2.5, 0, 0}, false},
		{"separated diagonal", mgl64.Vec3{2.5, 2.5, 2.5}, false},
		{"overlap corner", mgl64.Vec3{1.5, 1.5, 1.5}, true},
	}
	for _, c := range cases {
		b := MakeAABBFromCenter(c.center, mgl64.Vec3{1, 1, 1})
		if got := a.Overlaps(b); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAABBUnionContains(t *testing.T) {
	a := MakeAABBFromCenter(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := MakeAABBFromCenter(mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 1, 1})
	u := a.Union(b)
	for _, p := range []mgl64.Vec3{a.Min, a.Max, b.Min, b.Max} {
		if !u.Contains(p) {
			t.Fatalf("union %+v does not contain corner %v", u, p)
		}
	}
	if u.Contains(mgl64.Vec3{0, 2, 0}) {
		t.Error("union contains a point outside both boxes' y range")
	}
}

func TestAABBExpandByDisplacement(t *testing.T) {
	a := MakeAABBFromCenter(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	e := a.ExpandByDisplacement(mgl64.Vec3{2, -3, 0})
	if e.Max[0] != 3 || e.Min[0] != -1 {
		t.Errorf("x bounds %v..%v, want -1..3", e.Min[0], e.Max[0])
	}
	if e.Min[1] != -4 || e.Max[1] != 1 {
		t.Errorf("y bounds %v..%v, want -4..1", e.Min[1], e.Max[1])
	}
}

func TestAABBRayIntersect(t *testing.T) {
	box := MakeAABBFromCenter(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})

	if tmin, ok := box.RayIntersect(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100); !ok || tmin != 4 {
		t.Errorf("axis hit: got (%v,%v), want (4,true)", tmin, ok)
	}
	if _, ok := box.RayIntersect(mgl64.Vec3{-5, 3, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Error("parallel miss reported as hit")
	}
	if tmin, ok := box.RayIntersect(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}, 100); !ok || tmin != 0 {
		t.Errorf("inside origin: got (%v,%v), want (0,true)", tmin, ok)
	}
	if _, ok := box.RayIntersect(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Error("box behind ray reported as hit")
	}
	if _, ok := box.RayIntersect(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 2); ok {
		t.Error("hit beyond max distance reported")
	}
}
