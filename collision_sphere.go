package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Analytic narrowphase routines for the sphere and capsule families. Each
// returns a one-point manifold or nil when the shapes are separated.

// Feature IDs for analytic contacts. Analytic pairs produce a single point,
// so a stable constant per routine is enough for cache matching.
const (
	featureSphereCore uint32 = 0x01
	featureCapsuleSeg uint32 = 0x02
	featureBoxFace    uint32 = 0x10
	featureBoxDeep    uint32 = 0x20
	featureConvex     uint32 = 0x40
)

func collideSpheres(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	ra := sa.(SphereShape).Radius
	rb := sb.(SphereShape).Radius
	return sphereSphere(a, b, xfA.Position, ra, xfB.Position, rb, featureSphereCore)
}

func collideSphereCapsule(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	sphere := sa.(SphereShape)
	capsule := sb.(CapsuleShape)
	p0, p1 := capsule.segment(xfB)
	closest := closestPointOnSegment(xfA.Position, p0, p1)
	return sphereSphere(a, b, xfA.Position, sphere.Radius, closest, capsule.Radius, featureCapsuleSeg)
}

func collideCapsules(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	ca := sa.(CapsuleShape)
	cb := sb.(CapsuleShape)
	a0, a1 := ca.segment(xfA)
	b0, b1 := cb.segment(xfB)
	pa, pb := closestPointsOnSegments(a0, a1, b0, b1)
	return sphereSphere(a, b, pa, ca.Radius, pb, cb.Radius, featureCapsuleSeg)
}

// collideSphereBox handles both the axis-aligned and oriented box variants
// by working in the box's local frame.
func collideSphereBox(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	sphere := sa.(SphereShape)
	var he mgl64.Vec3
	switch v := sb.(type) {
	case BoxShape:
		he = v.HalfExtents
	case OBBShape:
		he = v.HalfExtents
	default:
		return nil
	}

	local := xfB.ApplyInverse(xfA.Position)
	clamped := mgl64.Vec3{
		clamp(local[0], -he[0], he[0]),
		clamp(local[1], -he[1], he[1]),
		clamp(local[2], -he[2], he[2]),
	}

	delta := local.Sub(clamped)
	distSq := delta.LenSqr()

	if distSq > 1e-14 {
		// Sphere center outside the box.
		dist := math.Sqrt(distSq)
		if dist > sphere.Radius {
			return nil
		}
		normalLocal := delta.Mul(1.0 / dist)
		normal := xfB.RotateVec(normalLocal).Mul(-1) // from A (sphere) toward B (box)
		point := xfB.Apply(clamped)
		return onePointManifold(a, b, point, normal, dist-sphere.Radius, featureBoxFace)
	}

	// Center inside the box: push out along the axis of least penetration.
	minDepth := maxFloat
	axis := 0
	sign := 1.0
	for i := 0; i < 3; i++ {
		if d := he[i] - local[i]; d < minDepth {
			minDepth = d
			axis = i
			sign = 1.0
		}
		if d := he[i] + local[i]; d < minDepth {
			minDepth = d
			axis = i
			sign = -1.0
		}
	}
	var normalLocal mgl64.Vec3
	normalLocal[axis] = sign
	normal := xfB.RotateVec(normalLocal).Mul(-1)
	point := xfB.Apply(local)
	return onePointManifold(a, b, point, normal, -(minDepth + sphere.Radius), featureBoxDeep)
}

// sphereSphere resolves two world-space spheres (possibly virtual, e.g. a
// capsule's closest core point) into a one-point manifold.
func sphereSphere(a, b *Body, ca mgl64.Vec3, ra float64, cb mgl64.Vec3, rb float64, feature uint32) *ContactManifold {
	d := cb.Sub(ca)
	distSq := d.LenSqr()
	rsum := ra + rb
	if distSq > rsum*rsum {
		return nil
	}

	var normal mgl64.Vec3
	dist := math.Sqrt(distSq)
	if dist > 1e-9 {
		normal = d.Mul(1.0 / dist)
	} else {
		normal = mgl64.Vec3{0, 1, 0}
	}
	separation := dist - rsum
	point := ca.Add(normal.Mul(ra + separation*0.5))
	return onePointManifold(a, b, point, normal, separation, feature)
}

func onePointManifold(a, b *Body, point, normal mgl64.Vec3, separation float64, feature uint32) *ContactManifold {
	m := &ContactManifold{BodyA: a, BodyB: b, Normal: normal}
	m.Points = append(m.Points, makeContactPoint(a, b, point, separation, feature))
	return m
}

func makeContactPoint(a, b *Body, point mgl64.Vec3, separation float64, feature uint32) ContactPoint {
	return ContactPoint{
		LocalA:     MakeTransform(a.position, a.orientation).ApplyInverse(point),
		LocalB:     MakeTransform(b.position, b.orientation).ApplyInverse(point),
		Position:   point,
		Separation: separation,
		FeatureID:  feature,
	}
}

func closestPointOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	denom := ab.LenSqr()
	if denom < 1e-14 {
		return a
	}
	t := clamp(p.Sub(a).Dot(ab)/denom, 0, 1)
	return a.Add(ab.Mul(t))
}

// closestPointsOnSegments returns the closest pair of points between two
// segments. Standard clamped parametric solution; parallel segments fall
// back to endpoint projection.
func closestPointsOnSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.LenSqr()
	e := d2.LenSqr()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a < 1e-14 && e < 1e-14:
		return p1, p2
	case a < 1e-14:
		t = clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e < 1e-14 {
			s = clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 1e-14 {
				s = clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = clamp((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
