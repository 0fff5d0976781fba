package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// stepWorld advances the world by whole substeps.
func stepWorld(t *testing.T, w *World, seconds float64) {
	t.Helper()
	h := w.Config().FixedTimestep
	steps := int(seconds/h + 0.5)
	for i := 0; i < steps; i++ {
		w.Step(h)
	}
}

func mustCreate(t *testing.T, w *World, def BodyDef) Handle {
	t.Helper()
	h, err := w.CreateBody(def)
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	return h
}

func TestDistanceJointHoldsLength(t *testing.T) {
	w := NewWorld(DefaultConfig())

	anchor := mustCreate(t, w, BodyDef{
		Type:  StaticBody,
		Shape: SphereShape{Radius: 0.1},
	})
	bob := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    SphereShape{Radius: 0.1},
		Position: mgl64.Vec3{0.3, -1, 0},
		Mass:     2,
	})

	a, b := w.GetBody(anchor), w.GetBody(bob)
	w.AddJoint(NewDistanceJoint(a, b, a.Position(), b.Position()))
	restLength := b.Position().Sub(a.Position()).Len()

	stepWorld(t, w, 3)

	got := b.Position().Sub(a.Position()).Len()
	if math.Abs(got-restLength) > 0.05 {
		t.Fatalf("separation %v, want %v within 0.05", got, restLength)
	}
	// The bob must have swung toward the vertical under gravity.
	if b.Position()[0] >= 0.3 {
		t.Fatalf("pendulum did not swing: x = %v", b.Position()[0])
	}
}

func TestBallSocketAnchorsCoincide(t *testing.T) {
	w := NewWorld(DefaultConfig())

	anchor := mustCreate(t, w, BodyDef{
		Type:  StaticBody,
		Shape: SphereShape{Radius: 0.1},
	})
	arm := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    BoxShape{HalfExtents: mgl64.Vec3{0.5, 0.1, 0.1}},
		Position: mgl64.Vec3{0.6, 0, 0},
		Mass:     1,
	})

	a, b := w.GetBody(anchor), w.GetBody(arm)
	j := NewBallSocketJoint(a, b, mgl64.Vec3{0, 0, 0})
	w.AddJoint(j)

	stepWorld(t, w, 3)

	if err := j.positionError(); err > 0.02 {
		t.Fatalf("ball socket anchors drifted apart by %v", err)
	}
}

func TestHingeRestrictsAxis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := NewWorld(cfg)

	frame := mustCreate(t, w, BodyDef{
		Type:  StaticBody,
		Shape: BoxShape{HalfExtents: mgl64.Vec3{0.1, 0.1, 0.1}},
	})
	door := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    BoxShape{HalfExtents: mgl64.Vec3{0.5, 1, 0.05}},
		Position: mgl64.Vec3{0.6, 0, 0},
		Mass:     5,
	})

	a, b := w.GetBody(frame), w.GetBody(door)
	hinge := NewHingeJoint(a, b, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0})
	w.AddJoint(hinge)

	// Push the door; it may only swing around the hinge axis.
	b.ApplyTorque(mgl64.Vec3{0, 20, 0})
	stepWorld(t, w, 1)

	if math.Abs(hinge.Angle()) < 0.05 {
		t.Fatal("door did not swing under torque")
	}
	av := b.AngularVelocity()
	if math.Abs(av[0]) > 0.02 || math.Abs(av[2]) > 0.02 {
		t.Fatalf("off-axis angular velocity leaked: %v", av)
	}
	// The door must stay in the hinge plane.
	if math.Abs(b.Position()[1]) > 0.02 {
		t.Fatalf("door drifted vertically to %v", b.Position()[1])
	}
}

func TestFixedJointLocksRelativePose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := NewWorld(cfg)

	base := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    BoxShape{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
		Position: mgl64.Vec3{0, 0, 0},
		Mass:     1,
	})
	attachment := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    BoxShape{HalfExtents: mgl64.Vec3{0.2, 0.2, 0.2}},
		Position: mgl64.Vec3{1, 0, 0},
		Mass:     1,
	})

	a, b := w.GetBody(base), w.GetBody(attachment)
	w.AddJoint(NewFixedJoint(a, b, mgl64.Vec3{0.5, 0, 0}))

	a.ApplyImpulse(mgl64.Vec3{0, 2, 0}, a.Position().Add(mgl64.Vec3{0, 0, 0.3}))
	stepWorld(t, w, 1)

	sep := b.Position().Sub(a.Position()).Len()
	if math.Abs(sep-1) > 0.05 {
		t.Fatalf("fixed joint separation %v, want 1", sep)
	}
	rel := relativeRotation(a, b).Normalize()
	if angle := 2 * math.Acos(clamp(math.Abs(rel.W), 0, 1)); angle > 0.05 {
		t.Fatalf("relative rotation drifted by %v rad", angle)
	}
}

func TestSliderAllowsOnlyAxisTranslation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := NewWorld(cfg)

	rail := mustCreate(t, w, BodyDef{
		Type:  StaticBody,
		Shape: BoxShape{HalfExtents: mgl64.Vec3{5, 0.1, 0.1}},
	})
	block := mustCreate(t, w, BodyDef{
		Type:     DynamicBody,
		Shape:    BoxShape{HalfExtents: mgl64.Vec3{0.3, 0.3, 0.3}},
		Position: mgl64.Vec3{1, 0, 0},
		Mass:     1,
	})

	a, b := w.GetBody(rail), w.GetBody(block)
	w.AddJoint(NewSliderJoint(a, b, b.Position(), mgl64.Vec3{1, 0, 0}))

	// Push along and across the axis; only the axial part may survive.
	b.ApplyImpulse(mgl64.Vec3{1, 1, 0}, b.Position())
	stepWorld(t, w, 1)

	if b.Position()[0] <= 1.01 {
		t.Fatalf("block did not slide along the axis: x = %v", b.Position()[0])
	}
	if math.Abs(b.Position()[1]) > 0.02 || math.Abs(b.Position()[2]) > 0.02 {
		t.Fatalf("block left the rail: %v", b.Position())
	}
}

func TestDestroyBodyDropsJoints(t *testing.T) {
	w := NewWorld(DefaultConfig())
	a := mustCreate(t, w, BodyDef{Type: StaticBody, Shape: SphereShape{Radius: 0.1}})
	b := mustCreate(t, w, BodyDef{
		Type: DynamicBody, Shape: SphereShape{Radius: 0.1},
		Position: mgl64.Vec3{0, -1, 0}, Mass: 1,
	})
	w.AddJoint(NewDistanceJoint(w.GetBody(a), w.GetBody(b), mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}))

	if err := w.DestroyBody(b); err != nil {
		t.Fatal(err)
	}
	if len(w.joints) != 0 {
		t.Fatalf("%d joints left after destroying an endpoint", len(w.joints))
	}
	stepWorld(t, w, 0.1) // must not panic on the removed body
}
