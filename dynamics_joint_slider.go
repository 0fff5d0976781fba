package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SliderJoint (prismatic) allows translation along a single axis while
// locking rotation entirely, optionally bounded by a translation range.
type SliderJoint struct {
	jointBase

	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	LocalAxisA   mgl64.Vec3

	// Translation limits along the axis, active when EnableLimit is set.
	EnableLimit bool
	LowerLimit  float64
	UpperLimit  float64

	refRotation mgl64.Quat

	rA, rB      mgl64.Vec3
	axis        mgl64.Vec3
	p1, p2      mgl64.Vec3 // perpendicular basis of the axis
	perpMass    [2]float64
	perpBias    [2]float64
	perpImpulse [2]float64

	angMass    mgl64.Mat3
	angBias    mgl64.Vec3
	angImpulse mgl64.Vec3

	limitActive  int
	limitMass    float64
	limitBias    float64
	limitImpulse float64

	err float64
}

// NewSliderJoint creates a slider through a world anchor along a world
// axis, with zero translation at the current poses.
func NewSliderJoint(a, b *Body, worldAnchor, worldAxis mgl64.Vec3) *SliderJoint {
	return &SliderJoint{
		jointBase:    jointBase{bodyA: a, bodyB: b},
		LocalAnchorA: MakeTransform(a.position, a.orientation).ApplyInverse(worldAnchor),
		LocalAnchorB: MakeTransform(b.position, b.orientation).ApplyInverse(worldAnchor),
		LocalAxisA:   a.orientation.Conjugate().Rotate(worldAxis.Normalize()),
		refRotation:  a.orientation.Conjugate().Mul(b.orientation).Normalize(),
	}
}

// Translation returns the current slide distance along the axis.
func (j *SliderJoint) Translation() float64 {
	_, _, worldA, worldB := jointAnchors(j.bodyA, j.bodyB, j.LocalAnchorA, j.LocalAnchorB)
	axis := j.bodyA.orientation.Rotate(j.LocalAxisA)
	return worldB.Sub(worldA).Dot(axis)
}

func (j *SliderJoint) initVelocityConstraints(h, baumgarte float64) {
	a, b := j.bodyA, j.bodyB
	var worldA, worldB mgl64.Vec3
	j.rA, j.rB, worldA, worldB = jointAnchors(a, b, j.LocalAnchorA, j.LocalAnchorB)

	j.axis = a.orientation.Rotate(j.LocalAxisA)
	j.p1, j.p2 = computeBasis(j.axis)

	d := worldB.Sub(worldA)
	j.err = 0
	for i, p := range [2]mgl64.Vec3{j.p1, j.p2} {
		j.perpMass[i] = effectiveMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI, p)
		c := d.Dot(p)
		j.perpBias[i] = baumgarte / h * c
		j.err = math.Max(j.err, math.Abs(c))
	}

	kAng := a.invWorldI.Add(b.invWorldI)
	j.angMass = kAng.Inv()
	errRot := rotationErrorVec(j.refRotation.Conjugate().Mul(relativeRotation(a, b)).Normalize())
	j.angBias = a.orientation.Rotate(errRot).Mul(baumgarte / h)

	// Translation limit, one-sided along the axis.
	j.limitActive = 0
	if j.EnableLimit {
		translation := d.Dot(j.axis)
		if translation <= j.LowerLimit {
			j.limitActive = -1
			j.limitBias = baumgarte / h * (translation - j.LowerLimit)
		} else if translation >= j.UpperLimit {
			j.limitActive = 1
			j.limitBias = baumgarte / h * (translation - j.UpperLimit)
		}
		if j.limitActive != 0 {
			j.limitMass = effectiveMass(a.invMass+b.invMass, j.rA, j.rB, a.invWorldI, b.invWorldI, j.axis)
		} else {
			j.limitImpulse = 0
		}
	}

	applyImpulsePair(a, b, j.rA, j.rB, j.p1.Mul(j.perpImpulse[0]).Add(j.p2.Mul(j.perpImpulse[1])))
	applyAngularImpulsePair(a, b, j.angImpulse)
	if j.limitActive != 0 {
		applyImpulsePair(a, b, j.rA, j.rB, j.axis.Mul(j.limitImpulse))
	}
}

func (j *SliderJoint) solveVelocityConstraints() {
	a, b := j.bodyA, j.bodyB

	// Angular lock.
	wRel := b.angVel.Sub(a.angVel)
	angLambda := j.angMass.Mul3x1(wRel.Add(j.angBias).Mul(-1))
	j.angImpulse = j.angImpulse.Add(angLambda)
	applyAngularImpulsePair(a, b, angLambda)

	// Perpendicular translation lock.
	for i, p := range [2]mgl64.Vec3{j.p1, j.p2} {
		cdot := relativeVelocity(a, b, j.rA, j.rB).Dot(p)
		lambda := -j.perpMass[i] * (cdot + j.perpBias[i])
		j.perpImpulse[i] += lambda
		applyImpulsePair(a, b, j.rA, j.rB, p.Mul(lambda))
	}

	// Limit.
	if j.limitActive != 0 {
		cdot := relativeVelocity(a, b, j.rA, j.rB).Dot(j.axis)
		lambda := -j.limitMass * (cdot + j.limitBias)
		old := j.limitImpulse
		if j.limitActive < 0 {
			j.limitImpulse = math.Max(old+lambda, 0)
		} else {
			j.limitImpulse = math.Min(old+lambda, 0)
		}
		lambda = j.limitImpulse - old
		applyImpulsePair(a, b, j.rA, j.rB, j.axis.Mul(lambda))
	}
}

func (j *SliderJoint) positionError() float64 { return j.err }
