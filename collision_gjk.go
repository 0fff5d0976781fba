package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

const gjkMaxIterations = 32

// simplex is a set of 1-4 points in Minkowski difference space, refined by
// GJK toward the origin.
type simplex struct {
	points [4]mgl64.Vec3
	count  int
}

// minkowskiSupport returns the support point of the Minkowski difference
// A - B along dir.
func minkowskiSupport(sa Shape, xfA Transform, sb Shape, xfB Transform, dir mgl64.Vec3) mgl64.Vec3 {
	pa := supportWorld(sa, xfA, dir)
	pb := supportWorld(sb, xfB, dir.Mul(-1))
	return pa.Sub(pb)
}

// gjkOverlap reports whether two convex shapes overlap. On success the
// simplex holds a tetrahedron containing the origin, which seeds EPA.
func gjkOverlap(sa Shape, xfA Transform, sb Shape, xfB Transform, s *simplex) bool {
	dir := xfB.Position.Sub(xfA.Position)
	if dir.LenSqr() < 1e-12 {
		dir = mgl64.Vec3{1, 0, 0}
	}

	s.points[0] = minkowskiSupport(sa, xfA, sb, xfB, dir)
	s.count = 1
	dir = s.points[0].Mul(-1)
	if dir.LenSqr() < 1e-16 {
		return true
	}

	for i := 0; i < gjkMaxIterations; i++ {
		p := minkowskiSupport(sa, xfA, sb, xfB, dir)
		if p.Dot(dir) <= 0 {
			return false
		}
		s.points[s.count] = p
		s.count++
		if simplexContainsOrigin(s, &dir) {
			return true
		}
	}
	return false
}

// simplexContainsOrigin determines the simplex feature closest to the
// origin, reduces the simplex to it, and points dir at the origin. Only a
// tetrahedron can contain the origin in 3D.
func simplexContainsOrigin(s *simplex, dir *mgl64.Vec3) bool {
	switch s.count {
	case 2:
		return simplexLine(s, dir)
	case 3:
		return simplexTriangle(s, dir)
	case 4:
		return simplexTetrahedron(s, dir)
	}
	return false
}

func simplexLine(s *simplex, dir *mgl64.Vec3) bool {
	a := s.points[1] // most recent
	b := s.points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-12 {
		if ao.LenSqr() < 1e-12 {
			return true
		}
		s.points[0] = a
		s.count = 1
		*dir = ao
		return false
	}

	if ab.Dot(ao) <= 0 {
		s.points[0] = a
		s.count = 1
		*dir = ao
		return false
	}

	perp := ab.Cross(ao).Cross(ab)
	if perp.LenSqr() < 1e-12 {
		return true // origin on the segment
	}
	*dir = perp
	return false
}

func simplexTriangle(s *simplex, dir *mgl64.Vec3) bool {
	a := s.points[2]
	b := s.points[1]
	c := s.points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	if abc.LenSqr() < 1e-14 {
		// Collinear; fall back to the most recent edge.
		s.points[0] = b
		s.points[1] = a
		s.count = 2
		return simplexLine(s, dir)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		s.points[0] = b
		s.points[1] = a
		s.count = 2
		*dir = ab.Cross(ao).Cross(ab)
		return false
	}
	if abc.Cross(ac).Dot(ao) > 0 {
		s.points[0] = c
		s.points[1] = a
		s.count = 2
		*dir = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*dir = abc
	} else {
		s.points[0] = a
		s.points[1] = c
		s.points[2] = b
		s.count = 3
		*dir = abc.Mul(-1)
	}
	return false
}

func simplexTetrahedron(s *simplex, dir *mgl64.Vec3) bool {
	a := s.points[3]
	b := s.points[2]
	c := s.points[1]
	d := s.points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// Outward face normals (away from the opposite vertex).
	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	if abc.LenSqr() < 1e-14 || acd.LenSqr() < 1e-14 || adb.LenSqr() < 1e-14 {
		s.points[0] = c
		s.points[1] = b
		s.points[2] = a
		s.count = 3
		return simplexTriangle(s, dir)
	}

	if abc.Dot(ao) > 0 {
		s.points[0] = c
		s.points[1] = b
		s.points[2] = a
		s.count = 3
		return simplexTriangle(s, dir)
	}
	if acd.Dot(ao) > 0 {
		s.points[0] = d
		s.points[1] = c
		s.points[2] = a
		s.count = 3
		return simplexTriangle(s, dir)
	}
	if adb.Dot(ao) > 0 {
		s.points[0] = b
		s.points[1] = d
		s.points[2] = a
		s.count = 3
		return simplexTriangle(s, dir)
	}
	return true
}
