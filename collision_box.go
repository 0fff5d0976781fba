package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// collideBoxes runs the 3-axis separating axis test for two axis-aligned
// boxes and builds a face manifold: the corners of the overlap rectangle on
// the minimum penetration axis, up to 4 points.
func collideBoxes(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	heA := sa.(BoxShape).HalfExtents
	heB := sb.(BoxShape).HalfExtents
	boxA := MakeAABBFromCenter(xfA.Position, heA)
	boxB := MakeAABBFromCenter(xfB.Position, heB)

	var overlap mgl64.Vec3
	for i := 0; i < 3; i++ {
		overlap[i] = math.Min(boxA.Max[i], boxB.Max[i]) - math.Max(boxA.Min[i], boxB.Min[i])
		if overlap[i] <= 0 {
			return nil
		}
	}

	// Minimum penetration axis.
	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}
	depth := overlap[axis]

	var normal mgl64.Vec3
	if xfB.Position[axis] >= xfA.Position[axis] {
		normal[axis] = 1
	} else {
		normal[axis] = -1
	}

	// Contact plane halfway through the overlap slab on the contact axis.
	var planeCoord float64
	if normal[axis] > 0 {
		planeCoord = math.Max(boxA.Min[axis], boxB.Min[axis]) + depth*0.5
	} else {
		planeCoord = math.Min(boxA.Max[axis], boxB.Max[axis]) - depth*0.5
	}

	// Overlap rectangle on the two tangent axes.
	u := (axis + 1) % 3
	v := (axis + 2) % 3
	uMin := math.Max(boxA.Min[u], boxB.Min[u])
	uMax := math.Min(boxA.Max[u], boxB.Max[u])
	vMin := math.Max(boxA.Min[v], boxB.Min[v])
	vMax := math.Min(boxA.Max[v], boxB.Max[v])

	m := &ContactManifold{BodyA: a, BodyB: b, Normal: normal}
	corners := [4][2]float64{{uMin, vMin}, {uMax, vMin}, {uMax, vMax}, {uMin, vMax}}
	for i, c := range corners {
		var p mgl64.Vec3
		p[axis] = planeCoord
		p[u] = c[0]
		p[v] = c[1]
		cp := makeContactPoint(a, b, p, -depth, featureBoxFace|uint32(i+1)<<8)
		m.Points = append(m.Points, cp)
	}
	return m
}
