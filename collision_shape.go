package physics

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType discriminates the collider shape variants. The narrowphase
// dispatch table is indexed by ordered pairs of these.
type ShapeType uint8

const (
	ShapeSphere ShapeType = iota
	ShapeBox               // axis-aligned box, ignores body orientation
	ShapeCapsule           // Y-axis aligned in local space
	ShapeOBB               // oriented box, rotates with the body
	ShapeConvexHull
	ShapeCompound

	shapeTypeCount
)

// Shape is an immutable collision shape. Shapes are owned by the caller and
// referenced by bodies; the physics core never mutates them.
type Shape interface {
	Type() ShapeType

	// ComputeAABB returns the world-space bounds of the shape under xf.
	ComputeAABB(xf Transform) AABB

	// Support returns the local-space point of the shape furthest along dir.
	// The direction need not be normalized. Used by GJK/EPA.
	Support(dir mgl64.Vec3) mgl64.Vec3

	// MinRadius returns the smallest half-thickness of the shape. The CCD
	// pass flags a body as fast when it moves more than a fraction of this
	// per substep.
	MinRadius() float64
}

// SphereShape is a sphere centered on the body origin.
type SphereShape struct {
	Radius float64
}

func (s SphereShape) Type() ShapeType { return ShapeSphere }

func (s SphereShape) ComputeAABB(xf Transform) AABB {
	return MakeAABBFromCenter(xf.Position, mgl64.Vec3{s.Radius, s.Radius, s.Radius})
}

func (s SphereShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	if dir.LenSqr() < 1e-18 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return dir.Normalize().Mul(s.Radius)
}

func (s SphereShape) MinRadius() float64 { return s.Radius }

// BoxShape is an axis-aligned box. It does not rotate with the body: the
// narrowphase substitutes the identity orientation when evaluating it, which
// keeps box-box pairs on the cheap 3-axis SAT path.
type BoxShape struct {
	HalfExtents mgl64.Vec3
}

func (s BoxShape) Type() ShapeType { return ShapeBox }

func (s BoxShape) ComputeAABB(xf Transform) AABB {
	return MakeAABBFromCenter(xf.Position, s.HalfExtents)
}

func (s BoxShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	return boxSupport(s.HalfExtents, dir)
}

func (s BoxShape) MinRadius() float64 { return minElem(s.HalfExtents) }

// OBBShape is an oriented box that rotates with the body.
type OBBShape struct {
	HalfExtents mgl64.Vec3
}

func (s OBBShape) Type() ShapeType { return ShapeOBB }

func (s OBBShape) ComputeAABB(xf Transform) AABB {
	// World extents of a rotated box: |R| * halfExtents.
	r := rotationMatrix(xf.Rotation)
	var ext mgl64.Vec3
	for row := 0; row < 3; row++ {
		ext[row] = math.Abs(r.At(row, 0))*s.HalfExtents[0] +
			math.Abs(r.At(row, 1))*s.HalfExtents[1] +
			math.Abs(r.At(row, 2))*s.HalfExtents[2]
	}
	return MakeAABBFromCenter(xf.Position, ext)
}

func (s OBBShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	return boxSupport(s.HalfExtents, dir)
}

func (s OBBShape) MinRadius() float64 { return minElem(s.HalfExtents) }

// CapsuleShape is a capsule along the local Y axis: a segment from
// (0,-HalfHeight,0) to (0,+HalfHeight,0) inflated by Radius.
type CapsuleShape struct {
	HalfHeight float64
	Radius     float64
}

func (s CapsuleShape) Type() ShapeType { return ShapeCapsule }

func (s CapsuleShape) ComputeAABB(xf Transform) AABB {
	a := xf.Apply(mgl64.Vec3{0, -s.HalfHeight, 0})
	b := xf.Apply(mgl64.Vec3{0, s.HalfHeight, 0})
	seg := MakeAABBFromCenter(a, mgl64.Vec3{}).Union(MakeAABBFromCenter(b, mgl64.Vec3{}))
	return seg.Expand(s.Radius)
}

func (s CapsuleShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	var p mgl64.Vec3
	if dir[1] >= 0 {
		p = mgl64.Vec3{0, s.HalfHeight, 0}
	} else {
		p = mgl64.Vec3{0, -s.HalfHeight, 0}
	}
	if dir.LenSqr() < 1e-18 {
		return p.Add(mgl64.Vec3{s.Radius, 0, 0})
	}
	return p.Add(dir.Normalize().Mul(s.Radius))
}

func (s CapsuleShape) MinRadius() float64 { return s.Radius }

// segment returns the capsule's world-space core segment endpoints.
func (s CapsuleShape) segment(xf Transform) (mgl64.Vec3, mgl64.Vec3) {
	return xf.Apply(mgl64.Vec3{0, -s.HalfHeight, 0}), xf.Apply(mgl64.Vec3{0, s.HalfHeight, 0})
}

// ConvexHullShape is the convex hull of a local-space point set. Points are
// used directly as support candidates; interior points are harmless but
// wasteful. Construct through NewConvexHull, which validates the set.
type ConvexHullShape struct {
	Points []mgl64.Vec3

	minRadius float64
}

// NewConvexHull validates a point set and returns a hull shape. At least 4
// non-coplanar points are required for a shape with volume.
func NewConvexHull(points []mgl64.Vec3) (ConvexHullShape, error) {
	if len(points) < 4 {
		return ConvexHullShape{}, errors.New("physics: convex hull needs at least 4 points")
	}
	pts := make([]mgl64.Vec3, len(points))
	copy(pts, points)

	var lo, hi mgl64.Vec3 = pts[0], pts[0]
	for _, p := range pts[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	ext := hi.Sub(lo).Mul(0.5)
	return ConvexHullShape{Points: pts, minRadius: math.Max(minElem(ext), linearSlop)}, nil
}

func (s ConvexHullShape) Type() ShapeType { return ShapeConvexHull }

func (s ConvexHullShape) ComputeAABB(xf Transform) AABB {
	p0 := xf.Apply(s.Points[0])
	out := AABB{Min: p0, Max: p0}
	for _, p := range s.Points[1:] {
		out = out.Union(MakeAABBFromCenter(xf.Apply(p), mgl64.Vec3{}))
	}
	return out
}

func (s ConvexHullShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	best := s.Points[0]
	bestDot := best.Dot(dir)
	for _, p := range s.Points[1:] {
		if d := p.Dot(dir); d > bestDot {
			bestDot = d
			best = p
		}
	}
	return best
}

func (s ConvexHullShape) MinRadius() float64 { return s.minRadius }

// CompoundChild is a sub-shape with a rigid offset from the body origin.
type CompoundChild struct {
	Shape  Shape
	Offset Transform
}

// CompoundShape aggregates convex children under one body. The narrowphase
// recurses per child and accumulates all child manifolds under the parent
// pair. Compound inside compound is not supported.
type CompoundShape struct {
	Children []CompoundChild
}

func (s CompoundShape) Type() ShapeType { return ShapeCompound }

func (s CompoundShape) ComputeAABB(xf Transform) AABB {
	if len(s.Children) == 0 {
		return MakeAABBFromCenter(xf.Position, mgl64.Vec3{})
	}
	out := s.Children[0].Shape.ComputeAABB(xf.Mul(s.Children[0].Offset))
	for _, c := range s.Children[1:] {
		out = out.Union(c.Shape.ComputeAABB(xf.Mul(c.Offset)))
	}
	return out
}

// Support on a compound is only meaningful for coarse queries; children are
// dispatched individually by the narrowphase.
func (s CompoundShape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	var best mgl64.Vec3
	bestDot := -maxFloat
	for _, c := range s.Children {
		p := c.Offset.Apply(c.Shape.Support(c.Offset.RotateVecInverse(dir)))
		if d := p.Dot(dir); d > bestDot {
			bestDot = d
			best = p
		}
	}
	return best
}

func (s CompoundShape) MinRadius() float64 {
	r := maxFloat
	for _, c := range s.Children {
		r = math.Min(r, c.Shape.MinRadius())
	}
	if r == maxFloat {
		return linearSlop
	}
	return r
}

func boxSupport(he, dir mgl64.Vec3) mgl64.Vec3 {
	out := he
	for i := 0; i < 3; i++ {
		if dir[i] < 0 {
			out[i] = -he[i]
		}
	}
	return out
}

func minElem(v mgl64.Vec3) float64 {
	return math.Min(v[0], math.Min(v[1], v[2]))
}

// shapeTransform returns the transform a shape is evaluated under. The
// axis-aligned box variant discards the body orientation.
func shapeTransform(s Shape, xf Transform) Transform {
	if s.Type() == ShapeBox {
		xf.Rotation = mgl64.QuatIdent()
	}
	return xf
}

// supportWorld returns the world-space support point of a shape under xf.
func supportWorld(s Shape, xf Transform, dir mgl64.Vec3) mgl64.Vec3 {
	local := s.Support(xf.RotateVecInverse(dir))
	return xf.Apply(local)
}

// shapeIsDegenerate reports whether the shape has (near) zero extent on some
// axis, which would produce a singular inertia tensor.
func shapeIsDegenerate(s Shape) bool {
	switch v := s.(type) {
	case SphereShape:
		return v.Radius < linearSlop
	case BoxShape:
		return minElem(v.HalfExtents) < linearSlop
	case OBBShape:
		return minElem(v.HalfExtents) < linearSlop
	case CapsuleShape:
		return v.Radius < linearSlop
	case ConvexHullShape:
		return v.minRadius <= linearSlop
	case CompoundShape:
		for _, c := range v.Children {
			if shapeIsDegenerate(c.Shape) {
				return true
			}
		}
		return len(v.Children) == 0
	}
	return false
}
