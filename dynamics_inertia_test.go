package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSphereInertia(t *testing.T) {
	i := computeInertia(SphereShape{Radius: 2}, 5)
	want := 0.4 * 5 * 4.0
	for d := 0; d < 3; d++ {
		if math.Abs(i.At(d, d)-want) > 1e-12 {
			t.Fatalf("diagonal %d = %v, want %v", d, i.At(d, d), want)
		}
	}
	if i.At(0, 1) != 0 || i.At(1, 2) != 0 {
		t.Fatal("sphere inertia has off-diagonal terms")
	}
}

func TestBoxInertia(t *testing.T) {
	// Full extents 2x4x6, mass 12: I_x = m/12 * (4^2 + 6^2) = 52.
	i := computeInertia(BoxShape{HalfExtents: mgl64.Vec3{1, 2, 3}}, 12)
	want := mgl64.Vec3{52, 40, 20}
	for d := 0; d < 3; d++ {
		if math.Abs(i.At(d, d)-want[d]) > 1e-9 {
			t.Errorf("diagonal %d = %v, want %v", d, i.At(d, d), want[d])
		}
	}
}

func TestCapsuleInertiaAxisSymmetry(t *testing.T) {
	i := computeInertia(CapsuleShape{HalfHeight: 1, Radius: 0.5}, 3)
	if i.At(0, 0) != i.At(2, 2) {
		t.Fatalf("capsule x/z inertia differ: %v vs %v", i.At(0, 0), i.At(2, 2))
	}
	// The long axis resists rotation less than the transverse axes.
	if i.At(1, 1) >= i.At(0, 0) {
		t.Fatalf("axial inertia %v not below transverse %v", i.At(1, 1), i.At(0, 0))
	}
}

func TestDegenerateInertiaStaysInvertible(t *testing.T) {
	i := computeInertia(BoxShape{HalfExtents: mgl64.Vec3{1, 0, 1}}, 10)
	inv := invertInertia(i)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if !isFinite(inv.At(r, c)) {
				t.Fatalf("inverse inertia not finite at %d,%d", r, c)
			}
		}
	}
}

func TestWorldInvInertiaRotates(t *testing.T) {
	// Rotating a box 90 degrees about z swaps the x and y diagonal entries.
	local := boxInertia(mgl64.Vec3{1, 2, 3}, 12)
	inv := local.Inv()
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	world := worldInvInertia(q, inv)
	if math.Abs(world.At(0, 0)-inv.At(1, 1)) > 1e-9 || math.Abs(world.At(1, 1)-inv.At(0, 0)) > 1e-9 {
		t.Fatalf("diagonals not swapped: world %v vs local %v", world, inv)
	}
}

func TestCompoundInertiaExceedsCentered(t *testing.T) {
	// Two spheres held apart carry more inertia about the separation normal
	// than the same mass in one central sphere.
	apart := CompoundShape{Children: []CompoundChild{
		{Shape: SphereShape{Radius: 0.5}, Offset: MakeTransform(mgl64.Vec3{-1, 0, 0}, mgl64.QuatIdent())},
		{Shape: SphereShape{Radius: 0.5}, Offset: MakeTransform(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())},
	}}
	iApart := computeInertia(apart, 4)
	iCenter := computeInertia(SphereShape{Radius: 0.5}, 4)
	if iApart.At(1, 1) <= iCenter.At(1, 1) {
		t.Fatalf("separated compound inertia %v not above centered %v", iApart.At(1, 1), iCenter.At(1, 1))
	}
	// The separation axis itself gains nothing from the offsets.
	if math.Abs(iApart.At(0, 0)-iCenter.At(0, 0)) > 1e-9 {
		t.Fatalf("x inertia changed by x offsets: %v vs %v", iApart.At(0, 0), iCenter.At(0, 0))
	}
}

func TestMixRules(t *testing.T) {
	if got := MixFriction(0.25, 1.0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("MixFriction = %v, want 0.5", got)
	}
	if got := MixRestitution(0.2, 0.9); got != 0.9 {
		t.Errorf("MixRestitution = %v, want 0.9", got)
	}
}
