package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Joint constrains the relative motion of two bodies. Joints are solved in
// the same Gauss-Seidel loop as contacts, one velocity sweep per iteration,
// so both converge together. Position drift is corrected through a
// Baumgarte bias folded into the velocity target.
type Joint interface {
	BodyA() *Body
	BodyB() *Body

	// initVelocityConstraints computes anchors, effective masses and bias
	// terms for the substep, and warm starts from the accumulated impulses.
	initVelocityConstraints(h, baumgarte float64)

	// solveVelocityConstraints runs one impulse sweep.
	solveVelocityConstraints()

	// positionError returns the largest residual constraint error, used for
	// convergence reporting and joint health checks.
	positionError() float64
}

// jointBase carries the body endpoints shared by all joint types.
type jointBase struct {
	bodyA *Body
	bodyB *Body
}

func (j *jointBase) BodyA() *Body { return j.bodyA }
func (j *jointBase) BodyB() *Body { return j.bodyB }

// angularMass returns the effective mass of an angular constraint along a
// unit axis: 1 / (u . (invIA + invIB) . u).
func angularMass(a, b *Body, axis mgl64.Vec3) float64 {
	k := a.invWorldI.Mul3x1(axis).Dot(axis) + b.invWorldI.Mul3x1(axis).Dot(axis)
	if k <= 0 {
		return 0
	}
	return 1.0 / k
}

// applyAngularImpulsePair applies a pure angular impulse: negatively to A,
// positively to B.
func applyAngularImpulsePair(a, b *Body, impulse mgl64.Vec3) {
	if a.bodyType == DynamicBody {
		a.angVel = a.angVel.Sub(a.invWorldI.Mul3x1(impulse))
	}
	if b.bodyType == DynamicBody {
		b.angVel = b.angVel.Add(b.invWorldI.Mul3x1(impulse))
	}
}

// jointAnchors resolves the world-space anchor offsets of a joint for the
// current poses.
func jointAnchors(a, b *Body, localA, localB mgl64.Vec3) (rA, rB, worldA, worldB mgl64.Vec3) {
	rA = a.orientation.Rotate(localA)
	rB = b.orientation.Rotate(localB)
	worldA = a.position.Add(rA)
	worldB = b.position.Add(rB)
	return
}

// relativeRotation returns conj(qA) * qB, the rotation of B in A's frame.
func relativeRotation(a, b *Body) mgl64.Quat {
	return a.orientation.Conjugate().Mul(b.orientation).Normalize()
}

// rotationErrorVec converts a small error quaternion into a rotation vector
// (axis * angle), the linearization used by the angular bias terms.
func rotationErrorVec(q mgl64.Quat) mgl64.Vec3 {
	if q.W < 0 {
		q = mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	return q.V.Mul(2)
}
