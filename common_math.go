package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid body pose: a rotation followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// MakeTransform returns a transform from a position and an orientation.
func MakeTransform(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Position: position, Rotation: rotation}
}

// IdentityTransform returns the identity pose at the origin.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// Apply maps a local-space point into world space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// ApplyInverse maps a world-space point into local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Position))
}

// RotateVec maps a local-space direction into world space.
func (t Transform) RotateVec(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// RotateVecInverse maps a world-space direction into local space.
func (t Transform) RotateVecInverse(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(v)
}

// Mul composes two transforms: (t * u)(p) == t(u(p)).
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Position: t.Apply(u.Position),
		Rotation: t.Rotation.Mul(u.Rotation).Normalize(),
	}
}

// integrateOrientation advances a unit quaternion by an angular velocity over
// dt using the quaternion derivative q' = 0.5 * (w, 0) * q, renormalizing to
// keep the quaternion unit length.
func integrateOrientation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	omega := mgl64.Quat{W: 0, V: w}
	dq := omega.Mul(q).Scale(0.5 * dt)
	return q.Add(dq).Normalize()
}

// rotationMatrix returns the 3x3 rotation matrix of a unit quaternion.
func rotationMatrix(q mgl64.Quat) mgl64.Mat3 {
	return q.Mat4().Mat3()
}

// computeBasis builds two tangent vectors orthogonal to a unit normal.
// The smallest normal component is chosen as the seed axis so the cross
// product stays well conditioned.
func computeBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var seed mgl64.Vec3
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	switch {
	case ax <= ay && ax <= az:
		seed = mgl64.Vec3{1, 0, 0}
	case ay <= az:
		seed = mgl64.Vec3{0, 1, 0}
	default:
		seed = mgl64.Vec3{0, 0, 1}
	}
	t1 := n.Cross(seed).Normalize()
	t2 := n.Cross(t1)
	return t1, t2
}

// skew returns the cross-product matrix of r: skew(r) * v == r x v.
func skew(r mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, r[2], -r[1], // column 0
		-r[2], 0, r[0], // column 1
		r[1], -r[0], 0, // column 2
	}
}

// pointConstraintMass builds the 3x3 effective mass matrix K of a
// point-to-point constraint:
//
//	K = (1/mA + 1/mB) * I3 - S(rA)*invIA*S(rA) - S(rB)*invIB*S(rB)
//
// where S is the cross-product matrix. K is symmetric positive definite for
// any pair with at least one finite mass.
func pointConstraintMass(invMassSum float64, rA, rB mgl64.Vec3, invIA, invIB mgl64.Mat3) mgl64.Mat3 {
	k := mgl64.Ident3().Mul(invMassSum)
	sA := skew(rA)
	sB := skew(rB)
	k = k.Sub(sA.Mul3(invIA).Mul3(sA))
	k = k.Sub(sB.Mul3(invIB).Mul3(sB))
	return k
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func vec3IsFinite(v mgl64.Vec3) bool {
	return isFinite(v[0]) && isFinite(v[1]) && isFinite(v[2])
}
