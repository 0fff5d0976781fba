package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBroadphasePairGeneration(t *testing.T) {
	bp := newBroadPhase(2.0)

	a := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0, 0, 0})
	b := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0.8, 0, 0})
	c := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{50, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}
	c.handle = Handle{Index: 2, Generation: 1}

	pairs := bp.computePairs([]*Body{a, b, c}, 1.0/120.0)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0][0] != a || pairs[0][1] != b {
		t.Fatalf("pair bodies wrong: %v %v", pairs[0][0].handle, pairs[0][1].handle)
	}
}

func TestBroadphaseSkipsStaticStatic(t *testing.T) {
	bp := newBroadPhase(2.0)
	a := testBody(StaticBody, BoxShape{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{0, 0, 0})
	b := testBody(StaticBody, BoxShape{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{0.5, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}

	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 0 {
		t.Fatalf("static-static produced %d pairs", len(pairs))
	}
}

func TestBroadphaseSkipsSleepingPairs(t *testing.T) {
	bp := newBroadPhase(2.0)
	a := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0, 0, 0})
	b := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0.8, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}
	a.awake = false
	b.awake = false

	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 0 {
		t.Fatalf("sleeping pair produced %d pairs", len(pairs))
	}

	// One awake body is enough to surface the pair again.
	a.awake = true
	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 1 {
		t.Fatal("awake body against sleeping body lost the pair")
	}
}

func TestBroadphaseLayerMask(t *testing.T) {
	bp := newBroadPhase(2.0)
	a := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0, 0, 0})
	b := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0.8, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}

	a.layer, a.mask = 0b01, 0b10
	b.layer, b.mask = 0b10, 0b01
	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 1 {
		t.Fatal("mutually masked-in pair not generated")
	}

	b.mask = 0b10 // b no longer accepts a's layer
	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 0 {
		t.Fatal("masked-out pair still generated")
	}
}

func TestBroadphaseVelocityPadding(t *testing.T) {
	bp := newBroadPhase(2.0)
	// Separated now, but moving fast enough to meet within the padded bounds.
	a := testBody(DynamicBody, SphereShape{Radius: 0.1}, mgl64.Vec3{0, 0, 0})
	b := testBody(StaticBody, BoxShape{HalfExtents: mgl64.Vec3{0.1, 1, 1}}, mgl64.Vec3{1, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}
	a.linVel = mgl64.Vec3{60, 0, 0}

	if pairs := bp.computePairs([]*Body{a, b}, 1.0/120.0); len(pairs) != 1 {
		t.Fatal("fast body did not pair with the box ahead of it")
	}
}

func TestBroadphaseDeterministicOrder(t *testing.T) {
	mk := func() []*Body {
		var bodies []*Body
		for i := 0; i < 20; i++ {
			b := testBody(DynamicBody, SphereShape{Radius: 0.6}, mgl64.Vec3{float64(i) * 0.9, 0, 0})
			b.handle = Handle{Index: uint32(i), Generation: 1}
			bodies = append(bodies, b)
		}
		return bodies
	}

	ref := newBroadPhase(2.0).computePairs(mk(), 1.0/120.0)
	for run := 0; run < 10; run++ {
		got := newBroadPhase(2.0).computePairs(mk(), 1.0/120.0)
		if len(got) != len(ref) {
			t.Fatalf("run %d: %d pairs vs %d", run, len(got), len(ref))
		}
		for i := range got {
			if got[i][0].handle != ref[i][0].handle || got[i][1].handle != ref[i][1].handle {
				t.Fatalf("run %d: pair %d ordering differs", run, i)
			}
		}
	}
}

func TestBroadphaseQueryAABB(t *testing.T) {
	bp := newBroadPhase(2.0)
	a := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{0, 0, 0})
	b := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{10, 0, 0})
	a.handle = Handle{Index: 0, Generation: 1}
	b.handle = Handle{Index: 1, Generation: 1}
	bp.computePairs([]*Body{a, b}, 1.0/120.0)

	var hits []*Body
	bp.queryAABB(MakeAABBFromCenter(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2}), func(x *Body) bool {
		hits = append(hits, x)
		return true
	})
	if len(hits) != 1 || hits[0] != a {
		t.Fatalf("query hit %d bodies", len(hits))
	}
}
