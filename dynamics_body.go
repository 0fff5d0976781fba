package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Entity is the opaque handle of the entity/component store that owns the
// body's collider and pose components. The physics core only compares and
// reports it.
type Entity uint64

// BodyType classifies how a body participates in the simulation.
type BodyType uint8

const (
	// StaticBody never moves and has infinite mass. Static bodies collide
	// with dynamic bodies but not with each other.
	StaticBody BodyType = iota

	// KinematicBody moves under its own velocity, has infinite mass for
	// collision response, and is never put to sleep by the timer.
	KinematicBody

	// DynamicBody has finite mass and responds to forces and contacts.
	DynamicBody
)

// Material holds the surface response coefficients of a body.
type Material struct {
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
}

// Handle is a generation-checked reference to a body. Stale handles (the
// body was destroyed, possibly with the slot reused) are rejected by every
// World lookup.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero handle, which never refers to a body.
func (h Handle) IsZero() bool { return h.Generation == 0 }

// pairKey identifies an unordered body pair, normalized so the smaller slot
// index comes first.
type pairKey struct {
	a, b uint32
}

func makePairKey(a, b Handle) pairKey {
	if a.Index > b.Index {
		a, b = b, a
	}
	return pairKey{a: a.Index, b: b.Index}
}

// BodyDef describes a body to create. Zero values are sensible: a static
// body at the origin with identity orientation.
type BodyDef struct {
	Type        BodyType
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	LinVel      mgl64.Vec3
	AngVel      mgl64.Vec3
	Mass        float64
	Material    Material
	Shape       Shape

	// LocalOffset shifts the shape relative to the body origin.
	LocalOffset mgl64.Vec3

	LinearDamping  float64
	AngularDamping float64

	// Trigger bodies detect overlap but never resolve it.
	Trigger bool

	// Layer and Mask filter candidate pairs: a pair is considered when
	// (a.Layer & b.Mask) != 0 and (b.Layer & a.Mask) != 0. Zero values
	// collide with everything.
	Layer uint32
	Mask  uint32

	Entity Entity
}

// Body is a rigid body owned by a World. All fields are mutated only by the
// solver and integrator during a step.
type Body struct {
	handle Handle
	entity Entity

	bodyType BodyType
	shape    Shape
	offset   mgl64.Vec3

	position    mgl64.Vec3 // world space, double precision
	orientation mgl64.Quat
	linVel      mgl64.Vec3
	angVel      mgl64.Vec3

	force  mgl64.Vec3
	torque mgl64.Vec3

	mass           float64
	invMass        float64
	localInertia   mgl64.Mat3
	invLocalI      mgl64.Mat3
	invWorldI      mgl64.Mat3
	material       Material
	linearDamping  float64
	angularDamping float64

	layer, mask uint32
	trigger     bool

	awake     bool
	sleepTime float64
	grounded  bool

	islandIndex int
}

func (b *Body) Handle() Handle             { return b.handle }
func (b *Body) Entity() Entity             { return b.entity }
func (b *Body) Type() BodyType             { return b.bodyType }
func (b *Body) Shape() Shape               { return b.shape }
func (b *Body) Position() mgl64.Vec3       { return b.position }
func (b *Body) Orientation() mgl64.Quat    { return b.orientation }
func (b *Body) LinearVelocity() mgl64.Vec3 { return b.linVel }
func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angVel }
func (b *Body) Mass() float64              { return b.mass }
func (b *Body) Material() Material         { return b.material }
func (b *Body) IsAwake() bool              { return b.awake }
func (b *Body) IsTrigger() bool            { return b.trigger }

// Grounded reports whether the body rested on a supporting contact during
// the last step, judged by contact normal against the world up axis.
func (b *Body) Grounded() bool { return b.grounded }

// transform returns the body pose with the shape offset applied.
func (b *Body) transform() Transform {
	xf := MakeTransform(b.position, b.orientation)
	if b.offset != (mgl64.Vec3{}) {
		xf.Position = xf.Position.Add(xf.Rotation.Rotate(b.offset))
	}
	return xf
}

// SetAwake wakes or sleeps a body. Waking resets the sleep timer; sleeping
// zeroes velocities and pending forces.
func (b *Body) SetAwake(awake bool) {
	if b.bodyType == StaticBody {
		return
	}
	if awake {
		if !b.awake {
			b.awake = true
		}
		b.sleepTime = 0
	} else {
		b.awake = false
		b.sleepTime = 0
		b.linVel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
		b.force = mgl64.Vec3{}
		b.torque = mgl64.Vec3{}
	}
}

// SetVelocity overrides the body velocity and wakes it.
func (b *Body) SetVelocity(linear, angular mgl64.Vec3) {
	if b.bodyType == StaticBody {
		return
	}
	b.linVel = linear
	b.angVel = angular
	b.SetAwake(true)
}

// ApplyForce accumulates a force through the center of mass for the next
// substep. Wakes the body.
func (b *Body) ApplyForce(force mgl64.Vec3) {
	if b.bodyType != DynamicBody {
		return
	}
	b.force = b.force.Add(force)
	b.SetAwake(true)
}

// ApplyTorque accumulates a torque for the next substep. Wakes the body.
func (b *Body) ApplyTorque(torque mgl64.Vec3) {
	if b.bodyType != DynamicBody {
		return
	}
	b.torque = b.torque.Add(torque)
	b.SetAwake(true)
}

// ApplyImpulse changes the linear velocity immediately. When point differs
// from the center of mass the lever arm adds angular velocity as well.
func (b *Body) ApplyImpulse(impulse, point mgl64.Vec3) {
	if b.bodyType != DynamicBody {
		return
	}
	b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
	r := point.Sub(b.position)
	b.angVel = b.angVel.Add(b.invWorldI.Mul3x1(r.Cross(impulse)))
	b.SetAwake(true)
}

// ApplyAngularImpulse changes the angular velocity immediately.
func (b *Body) ApplyAngularImpulse(impulse mgl64.Vec3) {
	if b.bodyType != DynamicBody {
		return
	}
	b.angVel = b.angVel.Add(b.invWorldI.Mul3x1(impulse))
	b.SetAwake(true)
}

// velocityAt returns the velocity of the world-space point as carried by the
// body: v + w x r.
func (b *Body) velocityAt(point mgl64.Vec3) mgl64.Vec3 {
	return b.linVel.Add(b.angVel.Cross(point.Sub(b.position)))
}

// updateWorldInertia refreshes the world-space inverse inertia tensor from
// the current orientation: R * I^-1 * R^T.
func (b *Body) updateWorldInertia() {
	if b.bodyType != DynamicBody {
		b.invWorldI = mgl64.Mat3{}
		return
	}
	b.invWorldI = worldInvInertia(b.orientation, b.invLocalI)
}

// arenaSlot maps a handle index to live body storage. Generation advances on
// destroy so stale handles miss.
type arenaSlot struct {
	generation uint32
	body       *Body
}

// bodyArena is the generation-checked index arena holding all bodies of a
// World. Dense iteration happens over the list; handle lookups go through
// the slots.
type bodyArena struct {
	slots []arenaSlot
	free  []uint32
	list  []*Body
}

func (a *bodyArena) insert(b *Body) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{})
	}
	slot := &a.slots[idx]
	slot.generation++
	slot.body = b
	b.handle = Handle{Index: idx, Generation: slot.generation}
	a.list = append(a.list, b)
	return b.handle
}

func (a *bodyArena) get(h Handle) *Body {
	if int(h.Index) >= len(a.slots) {
		return nil
	}
	slot := a.slots[h.Index]
	if slot.generation != h.Generation || slot.body == nil {
		return nil
	}
	return slot.body
}

func (a *bodyArena) remove(h Handle) *Body {
	b := a.get(h)
	if b == nil {
		return nil
	}
	slot := &a.slots[h.Index]
	slot.body = nil
	slot.generation++
	a.free = append(a.free, h.Index)
	for i, x := range a.list {
		if x == b {
			a.list = append(a.list[:i], a.list[i+1:]...)
			break
		}
	}
	return b
}
