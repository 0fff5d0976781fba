package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRaySphereShape(t *testing.T) {
	xf := MakeTransform(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())

	dist, normal, ok := shapeRaycast(SphereShape{Radius: 1}, xf, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok || math.Abs(dist-4) > 1e-9 {
		t.Fatalf("got (%v,%v), want distance 4", dist, ok)
	}
	if !vecNear(normal, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Fatalf("normal %v, want -x", normal)
	}

	// Origin inside hits at zero.
	if dist, _, ok := shapeRaycast(SphereShape{Radius: 1}, xf, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 100); !ok || dist != 0 {
		t.Fatalf("inside origin: got (%v,%v)", dist, ok)
	}

	// Grazing offset misses.
	if _, _, ok := shapeRaycast(SphereShape{Radius: 1}, xf, mgl64.Vec3{-5, 1.01, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Fatal("ray above the sphere reported a hit")
	}
}

func TestRayBoxShape(t *testing.T) {
	xf := MakeTransform(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent())
	box := BoxShape{HalfExtents: mgl64.Vec3{1, 1, 1}}

	dist, normal, ok := shapeRaycast(box, xf, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok || math.Abs(dist-6) > 1e-9 {
		t.Fatalf("got (%v,%v), want distance 6", dist, ok)
	}
	if !vecNear(normal, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Fatalf("entry normal %v, want -x", normal)
	}

	// Top face entry reports an up normal.
	_, normal, ok = shapeRaycast(box, xf, mgl64.Vec3{2, 5, 0}, mgl64.Vec3{0, -1, 0}, 100)
	if !ok || !vecNear(normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Fatalf("top entry normal %v", normal)
	}
}

func TestRayCapsuleShape(t *testing.T) {
	xf := MakeTransform(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
	c := CapsuleShape{HalfHeight: 1, Radius: 0.5}

	// Into the cylindrical section.
	dist, normal, ok := shapeRaycast(c, xf, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok || math.Abs(dist-4.5) > 1e-9 {
		t.Fatalf("side hit: got (%v,%v), want 4.5", dist, ok)
	}
	if !vecNear(normal, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Fatalf("side normal %v", normal)
	}

	// Straight down onto the top cap.
	dist, _, ok = shapeRaycast(c, xf, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -1, 0}, 100)
	if !ok || math.Abs(dist-3.5) > 1e-9 {
		t.Fatalf("cap hit: got (%v,%v), want 3.5", dist, ok)
	}

	// Past the cap sphere.
	if _, _, ok := shapeRaycast(c, xf, mgl64.Vec3{-5, 1.6, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Fatal("ray above the capsule reported a hit")
	}
}

func TestRayConvexHullShape(t *testing.T) {
	hull, err := NewConvexHull([]mgl64.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	xf := MakeTransform(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())

	dist, _, ok := shapeRaycast(hull, xf, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatal("ray missed the hull cube")
	}
	// The bisection refines against the support mapping; allow a loose bound.
	if math.Abs(dist-4) > 0.05 {
		t.Fatalf("hull hit at %v, want about 4", dist)
	}

	if _, _, ok := shapeRaycast(hull, xf, mgl64.Vec3{-5, 3, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Fatal("ray above the hull reported a hit")
	}
}

func TestRayCompoundNearestChild(t *testing.T) {
	c := CompoundShape{Children: []CompoundChild{
		{Shape: SphereShape{Radius: 0.5}, Offset: MakeTransform(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent())},
		{Shape: SphereShape{Radius: 0.5}, Offset: MakeTransform(mgl64.Vec3{4, 0, 0}, mgl64.QuatIdent())},
	}}
	xf := MakeTransform(mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())

	dist, _, ok := shapeRaycast(c, xf, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok || math.Abs(dist-6.5) > 1e-9 {
		t.Fatalf("compound hit at %v, want 6.5 (near child)", dist)
	}
}

func TestTimeOfImpactSphereWall(t *testing.T) {
	wall := testBody(StaticBody, BoxShape{HalfExtents: mgl64.Vec3{0.05, 2, 2}}, mgl64.Vec3{3, 0, 0})
	bullet := testBody(DynamicBody, SphereShape{Radius: 0.05}, mgl64.Vec3{2.6, 0, 0})
	bullet.linVel = mgl64.Vec3{48, 0, 0}

	h := 1.0 / 120.0
	toi, hit := timeOfImpact(bullet, wall, h)
	if !hit {
		t.Fatal("no impact reported for a sphere aimed at a wall")
	}
	// Gap to the inflated face is 0.3 of a 0.4 displacement.
	want := (3 - 0.05 - 0.05 - 2.6) / (48 * h)
	if math.Abs(toi-want) > 0.01 {
		t.Fatalf("toi %v, want about %v", toi, want)
	}

	// Moving away: no impact.
	bullet.linVel = mgl64.Vec3{-48, 0, 0}
	if _, hit := timeOfImpact(bullet, wall, h); hit {
		t.Fatal("impact reported while receding")
	}
}

func TestTimeOfImpactSphereCapsule(t *testing.T) {
	capsule := testBody(StaticBody, CapsuleShape{HalfHeight: 0.5, Radius: 0.2}, mgl64.Vec3{1, 0, 0})
	bullet := testBody(DynamicBody, SphereShape{Radius: 0.1}, mgl64.Vec3{0, 0, 0})
	bullet.linVel = mgl64.Vec3{96, 0, 0}

	h := 1.0 / 120.0
	toi, hit := timeOfImpact(bullet, capsule, h)
	if !hit {
		t.Fatal("no impact reported for a sphere aimed at a capsule")
	}
	// Contact when the centers are 0.3 apart: 0.7 of a 0.8 displacement.
	want := (1 - 0.2 - 0.1) / (96 * h)
	if math.Abs(toi-want) > 1e-6 {
		t.Fatalf("toi %v, want %v", toi, want)
	}
}

func TestTimeOfImpactCapsuleSphere(t *testing.T) {
	target := testBody(StaticBody, SphereShape{Radius: 0.1}, mgl64.Vec3{1, 0, 0})
	bullet := testBody(DynamicBody, CapsuleShape{HalfHeight: 0.5, Radius: 0.2}, mgl64.Vec3{0, 0, 0})
	bullet.linVel = mgl64.Vec3{96, 0, 0}

	h := 1.0 / 120.0
	toi, hit := timeOfImpact(bullet, target, h)
	if !hit {
		t.Fatal("no impact reported for a capsule aimed at a sphere")
	}
	want := (1 - 0.2 - 0.1) / (96 * h)
	if math.Abs(toi-want) > 1e-6 {
		t.Fatalf("toi %v, want %v", toi, want)
	}

	bullet.linVel = mgl64.Vec3{-96, 0, 0}
	if _, hit := timeOfImpact(bullet, target, h); hit {
		t.Fatal("impact reported while receding")
	}
}

func TestBodyIsFast(t *testing.T) {
	h := 1.0 / 120.0
	slow := testBody(DynamicBody, SphereShape{Radius: 0.5}, mgl64.Vec3{})
	slow.linVel = mgl64.Vec3{1, 0, 0}
	if bodyIsFast(slow, h) {
		t.Error("slow body flagged for CCD")
	}

	fast := testBody(DynamicBody, SphereShape{Radius: 0.05}, mgl64.Vec3{})
	fast.linVel = mgl64.Vec3{30, 0, 0}
	if !bodyIsFast(fast, h) {
		t.Error("fast small body not flagged for CCD")
	}

	static := testBody(StaticBody, SphereShape{Radius: 0.05}, mgl64.Vec3{})
	static.linVel = mgl64.Vec3{30, 0, 0}
	if bodyIsFast(static, h) {
		t.Error("static body flagged for CCD")
	}
}

func TestClampVelocityForCCD(t *testing.T) {
	h := 1.0 / 120.0
	b := testBody(DynamicBody, SphereShape{Radius: 0.05}, mgl64.Vec3{})
	b.linVel = mgl64.Vec3{120, 0, 0}
	clampVelocityForCCD(b, h)
	maxSpeed := maxDisplacementRadii * 0.05 / h
	if got := b.linVel.Len(); got > maxSpeed+1e-9 {
		t.Fatalf("speed %v above displacement cap %v", got, maxSpeed)
	}
}
