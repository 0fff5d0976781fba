package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HingeJoint pins the anchor points together and restricts relative
// rotation to a single axis, optionally limited to an angle range.
type HingeJoint struct {
	jointBase

	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	LocalAxisA   mgl64.Vec3

	// LowerLimit and UpperLimit bound the hinge angle in radians when
	// EnableLimit is set. The limit constraint is one-sided and activates
	// only while violated.
	EnableLimit bool
	LowerLimit  float64
	UpperLimit  float64

	refRotation mgl64.Quat // conj(qA) * qB at creation

	rA, rB       mgl64.Vec3
	pointMass    mgl64.Mat3
	pointBias    mgl64.Vec3
	pointImpulse mgl64.Vec3

	axis        mgl64.Vec3 // world hinge axis
	b1, b2      mgl64.Vec3 // basis perpendicular to the axis
	axisMass    [2]float64
	axisBias    [2]float64
	axisImpulse [2]float64

	limitActive  int // -1 lower, +1 upper, 0 inactive
	limitMass    float64
	limitBias    float64
	limitImpulse float64

	err float64
}

// NewHingeJoint creates a hinge at a world anchor about a world axis. The
// current relative orientation becomes the zero angle.
func NewHingeJoint(a, b *Body, worldAnchor, worldAxis mgl64.Vec3) *HingeJoint {
	return &HingeJoint{
		jointBase:    jointBase{bodyA: a, bodyB: b},
		LocalAnchorA: MakeTransform(a.position, a.orientation).ApplyInverse(worldAnchor),
		LocalAnchorB: MakeTransform(b.position, b.orientation).ApplyInverse(worldAnchor),
		LocalAxisA:   a.orientation.Conjugate().Rotate(worldAxis.Normalize()),
		refRotation:  a.orientation.Conjugate().Mul(b.orientation).Normalize(),
	}
}

// Angle returns the current hinge angle in radians, the twist of the
// relative rotation about the hinge axis measured from the creation pose.
func (j *HingeJoint) Angle() float64 {
	d := j.refRotation.Conjugate().Mul(relativeRotation(j.bodyA, j.bodyB)).Normalize()
	return 2 * math.Atan2(d.V.Dot(j.LocalAxisA), d.W)
}

func (j *HingeJoint) initVelocityConstraints(h, baumgarte float64) {
	a, b := j.bodyA, j.bodyB
	var worldA, worldB mgl64.Vec3
	j.rA, j.rB, worldA, worldB = jointAnchors(a, b, j.LocalAnchorA, j.LocalAnchorB)

	k := pointConstraintMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI)
	j.pointMass = k.Inv()
	c := worldB.Sub(worldA)
	j.pointBias = c.Mul(baumgarte / h)
	j.err = c.Len()

	// Keep the two axes aligned: constrain angular velocity on the basis
	// perpendicular to the hinge axis.
	j.axis = a.orientation.Rotate(j.LocalAxisA)
	j.b1, j.b2 = computeBasis(j.axis)
	j.axisMass[0] = angularMass(a, b, j.b1)
	j.axisMass[1] = angularMass(a, b, j.b2)

	axisB := b.orientation.Rotate(j.refRotation.Conjugate().Rotate(j.LocalAxisA))
	misalign := j.axis.Cross(axisB)
	j.axisBias[0] = baumgarte / h * misalign.Dot(j.b1)
	j.axisBias[1] = baumgarte / h * misalign.Dot(j.b2)
	j.err = math.Max(j.err, misalign.Len())

	// Angle limit, one-sided.
	j.limitActive = 0
	if j.EnableLimit {
		angle := j.Angle()
		if angle <= j.LowerLimit {
			j.limitActive = -1
			j.limitBias = baumgarte / h * (angle - j.LowerLimit)
		} else if angle >= j.UpperLimit {
			j.limitActive = 1
			j.limitBias = baumgarte / h * (angle - j.UpperLimit)
		}
		if j.limitActive != 0 {
			j.limitMass = angularMass(a, b, j.axis)
		} else {
			j.limitImpulse = 0
		}
	}

	applyImpulsePair(a, b, j.rA, j.rB, j.pointImpulse)
	applyAngularImpulsePair(a, b, j.b1.Mul(j.axisImpulse[0]).Add(j.b2.Mul(j.axisImpulse[1])))
	if j.limitActive != 0 {
		applyAngularImpulsePair(a, b, j.axis.Mul(j.limitImpulse))
	}
}

func (j *HingeJoint) solveVelocityConstraints() {
	a, b := j.bodyA, j.bodyB
	wRel := b.angVel.Sub(a.angVel)

	// Axis alignment.
	for i, basis := range [2]mgl64.Vec3{j.b1, j.b2} {
		cdot := wRel.Dot(basis)
		lambda := -j.axisMass[i] * (cdot + j.axisBias[i])
		j.axisImpulse[i] += lambda
		applyAngularImpulsePair(a, b, basis.Mul(lambda))
		wRel = b.angVel.Sub(a.angVel)
	}

	// Limit: clamp the accumulated impulse to one side of zero.
	if j.limitActive != 0 {
		cdot := wRel.Dot(j.axis)
		lambda := -j.limitMass * (cdot + j.limitBias)
		old := j.limitImpulse
		if j.limitActive < 0 {
			j.limitImpulse = math.Max(old+lambda, 0)
		} else {
			j.limitImpulse = math.Min(old+lambda, 0)
		}
		lambda = j.limitImpulse - old
		applyAngularImpulsePair(a, b, j.axis.Mul(lambda))
	}

	// Anchor point.
	cdot := relativeVelocity(a, b, j.rA, j.rB)
	lambda := j.pointMass.Mul3x1(cdot.Add(j.pointBias).Mul(-1))
	j.pointImpulse = j.pointImpulse.Add(lambda)
	applyImpulsePair(a, b, j.rA, j.rB, lambda)
}

func (j *HingeJoint) positionError() float64 { return j.err }
