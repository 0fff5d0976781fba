package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// FixedJoint welds two bodies together: the anchor points stay coincident
// and the relative orientation stays at its creation value.
type FixedJoint struct {
	jointBase

	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3

	refRotation mgl64.Quat

	rA, rB       mgl64.Vec3
	pointMass    mgl64.Mat3
	pointBias    mgl64.Vec3
	pointImpulse mgl64.Vec3

	angMass    mgl64.Mat3
	angBias    mgl64.Vec3
	angImpulse mgl64.Vec3

	err float64
}

// NewFixedJoint welds the bodies at a world anchor in their current poses.
func NewFixedJoint(a, b *Body, worldAnchor mgl64.Vec3) *FixedJoint {
	return &FixedJoint{
		jointBase:    jointBase{bodyA: a, bodyB: b},
		LocalAnchorA: MakeTransform(a.position, a.orientation).ApplyInverse(worldAnchor),
		LocalAnchorB: MakeTransform(b.position, b.orientation).ApplyInverse(worldAnchor),
		refRotation:  a.orientation.Conjugate().Mul(b.orientation).Normalize(),
	}
}

func (j *FixedJoint) initVelocityConstraints(h, baumgarte float64) {
	a, b := j.bodyA, j.bodyB
	var worldA, worldB mgl64.Vec3
	j.rA, j.rB, worldA, worldB = jointAnchors(a, b, j.LocalAnchorA, j.LocalAnchorB)

	k := pointConstraintMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI)
	j.pointMass = k.Inv()
	c := worldB.Sub(worldA)
	j.pointBias = c.Mul(baumgarte / h)
	j.err = c.Len()

	kAng := a.invWorldI.Add(b.invWorldI)
	j.angMass = kAng.Inv()
	errRot := rotationErrorVec(j.refRotation.Conjugate().Mul(relativeRotation(a, b)).Normalize())
	// Map the local-frame error into world space through A.
	errWorld := a.orientation.Rotate(errRot)
	j.angBias = errWorld.Mul(baumgarte / h)
	j.err = math.Max(j.err, errWorld.Len())

	applyImpulsePair(a, b, j.rA, j.rB, j.pointImpulse)
	applyAngularImpulsePair(a, b, j.angImpulse)
}

func (j *FixedJoint) solveVelocityConstraints() {
	a, b := j.bodyA, j.bodyB

	// Angular lock.
	wRel := b.angVel.Sub(a.angVel)
	angLambda := j.angMass.Mul3x1(wRel.Add(j.angBias).Mul(-1))
	j.angImpulse = j.angImpulse.Add(angLambda)
	applyAngularImpulsePair(a, b, angLambda)

	// Anchor point.
	cdot := relativeVelocity(a, b, j.rA, j.rB)
	lambda := j.pointMass.Mul3x1(cdot.Add(j.pointBias).Mul(-1))
	j.pointImpulse = j.pointImpulse.Add(lambda)
	applyImpulsePair(a, b, j.rA, j.rB, lambda)
}

func (j *FixedJoint) positionError() float64 { return j.err }
