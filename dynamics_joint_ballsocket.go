package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BallSocketJoint pins a local anchor point of each body together while
// leaving all three rotational degrees of freedom free.
type BallSocketJoint struct {
	jointBase

	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3

	rA, rB  mgl64.Vec3
	mass    mgl64.Mat3
	bias    mgl64.Vec3
	impulse mgl64.Vec3
	err     float64
}

// NewBallSocketJoint anchors the two bodies at a shared world-space point,
// captured into each body's local frame.
func NewBallSocketJoint(a, b *Body, worldAnchor mgl64.Vec3) *BallSocketJoint {
	return &BallSocketJoint{
		jointBase:    jointBase{bodyA: a, bodyB: b},
		LocalAnchorA: MakeTransform(a.position, a.orientation).ApplyInverse(worldAnchor),
		LocalAnchorB: MakeTransform(b.position, b.orientation).ApplyInverse(worldAnchor),
	}
}

func (j *BallSocketJoint) initVelocityConstraints(h, baumgarte float64) {
	a, b := j.bodyA, j.bodyB
	var worldA, worldB mgl64.Vec3
	j.rA, j.rB, worldA, worldB = jointAnchors(a, b, j.LocalAnchorA, j.LocalAnchorB)

	k := pointConstraintMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI)
	j.mass = k.Inv()

	c := worldB.Sub(worldA)
	j.err = c.Len()
	j.bias = c.Mul(baumgarte / h)

	applyImpulsePair(a, b, j.rA, j.rB, j.impulse)
}

func (j *BallSocketJoint) solveVelocityConstraints() {
	cdot := relativeVelocity(j.bodyA, j.bodyB, j.rA, j.rB)
	lambda := j.mass.Mul3x1(cdot.Add(j.bias).Mul(-1))
	j.impulse = j.impulse.Add(lambda)
	applyImpulsePair(j.bodyA, j.bodyB, j.rA, j.rB, lambda)
}

func (j *BallSocketJoint) positionError() float64 { return j.err }
