package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RaycastHit describes the nearest intersection of a ray with a body.
type RaycastHit struct {
	Entity   Entity
	Body     Handle
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// shapeRaycast intersects a world-space ray with one shape. Returns the hit
// distance along dir (unit length) and the surface normal, or ok=false.
func shapeRaycast(s Shape, xf Transform, origin, dir mgl64.Vec3, maxDist float64) (float64, mgl64.Vec3, bool) {
	switch v := s.(type) {
	case SphereShape:
		return raySphere(origin, dir, xf.Position, v.Radius, maxDist)

	case BoxShape:
		return rayBox(origin, dir, shapeTransform(s, xf), v.HalfExtents, maxDist)

	case OBBShape:
		return rayBox(origin, dir, xf, v.HalfExtents, maxDist)

	case CapsuleShape:
		return rayCapsule(origin, dir, xf, v, maxDist)

	case ConvexHullShape:
		return rayConvex(origin, dir, s, xf, maxDist)

	case CompoundShape:
		bestDist := maxDist
		var bestN mgl64.Vec3
		hit := false
		for _, c := range v.Children {
			if d, n, ok := shapeRaycast(c.Shape, xf.Mul(c.Offset), origin, dir, bestDist); ok {
				bestDist, bestN, hit = d, n, true
			}
		}
		if hit {
			return bestDist, bestN, true
		}
	}
	return 0, mgl64.Vec3{}, false
}

func raySphere(origin, dir, center mgl64.Vec3, radius, maxDist float64) (float64, mgl64.Vec3, bool) {
	m := origin.Sub(center)
	b := m.Dot(dir)
	c := m.LenSqr() - radius*radius
	if c > 0 && b > 0 {
		return 0, mgl64.Vec3{}, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, mgl64.Vec3{}, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		t = 0 // started inside
	}
	if t > maxDist {
		return 0, mgl64.Vec3{}, false
	}
	point := origin.Add(dir.Mul(t))
	n := point.Sub(center)
	if n.LenSqr() > 1e-18 {
		n = n.Normalize()
	} else {
		n = dir.Mul(-1)
	}
	return t, n, true
}

func rayBox(origin, dir mgl64.Vec3, xf Transform, he mgl64.Vec3, maxDist float64) (float64, mgl64.Vec3, bool) {
	// Work in the box's local frame.
	lo := xf.ApplyInverse(origin)
	ld := xf.RotateVecInverse(dir)

	box := AABB{Min: he.Mul(-1), Max: he}
	t, ok := box.RayIntersect(lo, ld, maxDist)
	if !ok {
		return 0, mgl64.Vec3{}, false
	}

	// Entry face normal: the axis whose slab was entered last.
	p := lo.Add(ld.Mul(t))
	var n mgl64.Vec3
	bestGap := maxFloat
	for i := 0; i < 3; i++ {
		if gap := math.Abs(he[i] - math.Abs(p[i])); gap < bestGap {
			bestGap = gap
			n = mgl64.Vec3{}
			if p[i] >= 0 {
				n[i] = 1
			} else {
				n[i] = -1
			}
		}
	}
	return t, xf.RotateVec(n), true
}

func rayCapsule(origin, dir mgl64.Vec3, xf Transform, c CapsuleShape, maxDist float64) (float64, mgl64.Vec3, bool) {
	p0, p1 := c.segment(xf)

	// Infinite cylinder about the segment axis.
	axis := p1.Sub(p0)
	axisLenSq := axis.LenSqr()

	best := maxDist
	var bestN mgl64.Vec3
	hit := false

	// Spherical caps.
	for _, capCenter := range [2]mgl64.Vec3{p0, p1} {
		if t, n, ok := raySphere(origin, dir, capCenter, c.Radius, best); ok {
			best, bestN, hit = t, n, true
		}
	}

	if axisLenSq > 1e-14 {
		// Project out the axis component and solve the 2D circle.
		d := axis.Mul(1.0 / math.Sqrt(axisLenSq))
		m := origin.Sub(p0)
		mPerp := m.Sub(d.Mul(m.Dot(d)))
		dirPerp := dir.Sub(d.Mul(dir.Dot(d)))

		a := dirPerp.LenSqr()
		if a > 1e-14 {
			b := mPerp.Dot(dirPerp)
			cc := mPerp.LenSqr() - c.Radius*c.Radius
			disc := b*b - a*cc
			if disc >= 0 {
				t := (-b - math.Sqrt(disc)) / a
				if t >= 0 && t < best {
					// Accept only within the cylindrical section.
					point := origin.Add(dir.Mul(t))
					s := point.Sub(p0).Dot(d)
					if s >= 0 && s*s <= axisLenSq {
						onAxis := p0.Add(d.Mul(s))
						best = t
						bestN = point.Sub(onAxis).Normalize()
						hit = true
					}
				}
			}
		}
	}

	if !hit {
		return 0, mgl64.Vec3{}, false
	}
	return best, bestN, true
}

// rayConvex intersects a ray with a support-mapped convex shape by marching
// the entry point: coarse AABB entry, then bisection on point containment.
// Exact face geometry is not stored for hulls, so the surface is resolved
// numerically; the normal is estimated from the support direction at the
// hit.
func rayConvex(origin, dir mgl64.Vec3, s Shape, xf Transform, maxDist float64) (float64, mgl64.Vec3, bool) {
	aabb := s.ComputeAABB(xf)
	entry, ok := aabb.RayIntersect(origin, dir, maxDist)
	if !ok {
		return 0, mgl64.Vec3{}, false
	}

	exit := maxDist

	contains := func(t float64) bool {
		p := origin.Add(dir.Mul(t))
		point := SphereShape{Radius: 1e-6}
		var sx simplex
		return gjkOverlap(s, xf, point, MakeTransform(p, mgl64.QuatIdent()), &sx)
	}

	// Find a sample inside the shape between entry and exit.
	lo, hi := entry, exit
	found := -1.0
	steps := 16
	for i := 0; i <= steps; i++ {
		t := lo + (hi-lo)*float64(i)/float64(steps)
		if contains(t) {
			found = t
			hi = t
			break
		}
	}
	if found < 0 {
		return 0, mgl64.Vec3{}, false
	}

	// Bisect [entry, found] down to the surface.
	lo = entry
	for i := 0; i < 24 && hi-lo > 1e-7; i++ {
		mid := 0.5 * (lo + hi)
		if contains(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}

	t := lo
	point := origin.Add(dir.Mul(t))
	// Normal estimate: direction from the interior support centroid.
	n := point.Sub(xf.Apply(mgl64.Vec3{}))
	if n.LenSqr() > 1e-18 {
		n = n.Normalize()
	} else {
		n = dir.Mul(-1)
	}
	return t, n, true
}
