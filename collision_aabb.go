package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// MakeAABBFromCenter returns the AABB centered on c with the given half extents.
func MakeAABBFromCenter(c, halfExtents mgl64.Vec3) AABB {
	return AABB{Min: c.Sub(halfExtents), Max: c.Add(halfExtents)}
}

// Center returns the box center.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half extents.
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Overlaps reports whether two boxes intersect, touching included.
func (a AABB) Overlaps(b AABB) bool {
	if a.Max[0] < b.Min[0] || b.Max[0] < a.Min[0] {
		return false
	}
	if a.Max[1] < b.Min[1] || b.Max[1] < a.Min[1] {
		return false
	}
	if a.Max[2] < b.Min[2] || b.Max[2] < a.Min[2] {
		return false
	}
	return true
}

// Contains reports whether p lies inside the box, boundary included.
func (a AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// Union returns the smallest box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1]), math.Min(a.Min[2], b.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1]), math.Max(a.Max[2], b.Max[2])},
	}
}

// Expand grows the box by margin on every side.
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// ExpandByDisplacement grows the box along a displacement vector, covering
// the volume swept by moving the box by d.
func (a AABB) ExpandByDisplacement(d mgl64.Vec3) AABB {
	out := a
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			out.Min[i] += d[i]
		} else {
			out.Max[i] += d[i]
		}
	}
	return out
}

// RayIntersect intersects a ray with the box using the slab method. It
// returns the entry distance and true when the ray hits within
// [0, maxDistance]. A ray starting inside the box hits at distance 0.
func (a AABB) RayIntersect(origin, dir mgl64.Vec3, maxDistance float64) (float64, bool) {
	tmin := 0.0
	tmax := maxDistance
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		invD := 1.0 / dir[i]
		t1 := (a.Min[i] - origin[i]) * invD
		t2 := (a.Max[i] - origin[i]) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
