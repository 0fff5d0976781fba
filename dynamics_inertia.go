package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// computeInertia returns the local-space inertia tensor of a shape with the
// given mass, about the body origin. Degenerate extents are clamped to a
// small epsilon instead of producing a singular tensor; the caller logs the
// condition once per shape.
func computeInertia(s Shape, mass float64) mgl64.Mat3 {
	switch v := s.(type) {
	case SphereShape:
		r := math.Max(v.Radius, linearSlop)
		i := 0.4 * mass * r * r
		return diagInertia(i, i, i)

	case BoxShape:
		return boxInertia(v.HalfExtents, mass)

	case OBBShape:
		return boxInertia(v.HalfExtents, mass)

	case CapsuleShape:
		return capsuleInertia(v, mass)

	case ConvexHullShape:
		// Approximated by the hull's bounding box. Exact convex hull
		// inertia needs a face decomposition the shape does not store.
		aabb := v.ComputeAABB(IdentityTransform())
		return boxInertia(aabb.Extents(), mass)

	case CompoundShape:
		return compoundInertia(v, mass)
	}
	return diagInertia(inertiaEpsilon, inertiaEpsilon, inertiaEpsilon)
}

// invertInertia returns the inverse tensor, clamping any degenerate diagonal
// to keep the inverse finite.
func invertInertia(inertia mgl64.Mat3) mgl64.Mat3 {
	for i := 0; i < 3; i++ {
		if inertia.At(i, i) < inertiaEpsilon {
			inertia.Set(i, i, inertiaEpsilon)
		}
	}
	return inertia.Inv()
}

// worldInvInertia maps a local inverse inertia tensor into world space:
// R * I^-1 * R^T.
func worldInvInertia(rotation mgl64.Quat, invLocal mgl64.Mat3) mgl64.Mat3 {
	r := rotationMatrix(rotation)
	return r.Mul3(invLocal).Mul3(r.Transpose())
}

func diagInertia(x, y, z float64) mgl64.Mat3 {
	return mgl64.Mat3{
		math.Max(x, inertiaEpsilon), 0, 0,
		0, math.Max(y, inertiaEpsilon), 0,
		0, 0, math.Max(z, inertiaEpsilon),
	}
}

// boxInertia is the solid box tensor: I_x = m/12 * (h_y^2 + h_z^2) for full
// extents h = 2 * halfExtents.
func boxInertia(halfExtents mgl64.Vec3, mass float64) mgl64.Mat3 {
	x := math.Max(halfExtents[0], linearSlop)
	y := math.Max(halfExtents[1], linearSlop)
	z := math.Max(halfExtents[2], linearSlop)
	k := mass / 3.0 // m/12 * (2h)^2 = m/3 * h^2
	return diagInertia(k*(y*y+z*z), k*(x*x+z*z), k*(x*x+y*y))
}

// capsuleInertia composes a solid cylinder with two hemispherical caps,
// each shifted to the cylinder ends by the parallel axis theorem. The
// capsule axis is local Y.
func capsuleInertia(c CapsuleShape, mass float64) mgl64.Mat3 {
	r := math.Max(c.Radius, linearSlop)
	h := 2.0 * c.HalfHeight

	cylVolume := math.Pi * r * r * h
	sphVolume := 4.0 / 3.0 * math.Pi * r * r * r
	total := cylVolume + sphVolume
	if total < 1e-12 {
		return diagInertia(inertiaEpsilon, inertiaEpsilon, inertiaEpsilon)
	}
	mCyl := mass * cylVolume / total
	mSph := mass * sphVolume / total

	// Cylinder about its center, axis along Y.
	iY := 0.5 * mCyl * r * r
	iX := mCyl * (r*r/4.0 + h*h/12.0)

	// Both hemispheres together form a sphere of mass mSph; shift each half
	// to a cap center at +-halfHeight.
	sphereTerm := 0.4 * mSph * r * r
	capShift := mSph * (c.HalfHeight*c.HalfHeight + 3.0/8.0*r*c.HalfHeight*2.0)

	iX += sphereTerm + capShift
	iY += sphereTerm
	return diagInertia(iX, iY, iX)
}

// compoundInertia distributes the mass over children by bounding-box volume
// and shifts each child tensor to the body origin with the parallel axis
// theorem. Child rotations are folded in by conjugation.
func compoundInertia(s CompoundShape, mass float64) mgl64.Mat3 {
	if len(s.Children) == 0 {
		return diagInertia(inertiaEpsilon, inertiaEpsilon, inertiaEpsilon)
	}

	volumes := make([]float64, len(s.Children))
	total := 0.0
	for i, c := range s.Children {
		ext := c.Shape.ComputeAABB(IdentityTransform()).Extents()
		v := math.Max(8.0*ext[0]*ext[1]*ext[2], 1e-9)
		volumes[i] = v
		total += v
	}

	sum := mgl64.Mat3{}
	for i, c := range s.Children {
		m := mass * volumes[i] / total
		childI := computeInertia(c.Shape, m)

		r := rotationMatrix(c.Offset.Rotation)
		childI = r.Mul3(childI).Mul3(r.Transpose())

		// Parallel axis: I += m * (|d|^2 * I3 - d d^T).
		d := c.Offset.Position
		dd := d.Dot(d)
		shift := mgl64.Ident3().Mul(dd).Sub(outer(d, d)).Mul(m)
		sum = sum.Add(childI).Add(shift)
	}
	return sum
}

func outer(a, b mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		a[0] * b[0], a[1] * b[0], a[2] * b[0],
		a[0] * b[1], a[1] * b[1], a[2] * b[1],
		a[0] * b[2], a[1] * b[2], a[2] * b[2],
	}
}
