package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJoint keeps two local anchor points at a fixed separation, like a
// rigid massless rod between them.
type DistanceJoint struct {
	jointBase

	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	Length       float64

	rA, rB  mgl64.Vec3
	u       mgl64.Vec3 // unit vector from anchor A to anchor B
	mass    float64
	bias    float64
	impulse float64
	err     float64
}

// NewDistanceJoint connects two bodies at the given world anchors, with the
// rest length taken from their current separation.
func NewDistanceJoint(a, b *Body, worldAnchorA, worldAnchorB mgl64.Vec3) *DistanceJoint {
	return &DistanceJoint{
		jointBase:    jointBase{bodyA: a, bodyB: b},
		LocalAnchorA: MakeTransform(a.position, a.orientation).ApplyInverse(worldAnchorA),
		LocalAnchorB: MakeTransform(b.position, b.orientation).ApplyInverse(worldAnchorB),
		Length:       worldAnchorB.Sub(worldAnchorA).Len(),
	}
}

func (j *DistanceJoint) initVelocityConstraints(h, baumgarte float64) {
	a, b := j.bodyA, j.bodyB
	var worldA, worldB mgl64.Vec3
	j.rA, j.rB, worldA, worldB = jointAnchors(a, b, j.LocalAnchorA, j.LocalAnchorB)

	j.u = worldB.Sub(worldA)
	length := j.u.Len()
	if length > 1e-9 {
		j.u = j.u.Mul(1.0 / length)
	} else {
		j.u = mgl64.Vec3{0, 1, 0}
	}

	c := length - j.Length
	j.err = math.Abs(c)
	j.bias = baumgarte / h * c
	j.mass = effectiveMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI, j.u)

	applyImpulsePair(a, b, j.rA, j.rB, j.u.Mul(j.impulse))
}

func (j *DistanceJoint) solveVelocityConstraints() {
	cdot := relativeVelocity(j.bodyA, j.bodyB, j.rA, j.rB).Dot(j.u)
	lambda := -j.mass * (cdot + j.bias)
	j.impulse += lambda
	applyImpulsePair(j.bodyA, j.bodyB, j.rA, j.rB, j.u.Mul(lambda))
}

func (j *DistanceJoint) positionError() float64 { return j.err }
