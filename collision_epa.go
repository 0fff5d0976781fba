package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	epaMaxIterations = 32
	epaTolerance     = 1e-4
)

// epaFace is one triangle of the expanding polytope, with its plane normal
// pointing away from the origin and its distance to the origin.
type epaFace struct {
	a, b, c  int
	normal   mgl64.Vec3
	distance float64
}

// epaResult is the penetration witness of an overlapping pair.
type epaResult struct {
	normal mgl64.Vec3 // from A toward B
	depth  float64    // positive penetration
}

// epaPenetration expands the GJK termination simplex inside the Minkowski
// difference until the closest boundary face is found. Its normal and
// distance are the minimum translation to separate the shapes. If the
// simplex is degenerate or the expansion fails to converge, a fallback
// witness from the body centers is returned with ok=false so the caller can
// log and continue.
func epaPenetration(sa Shape, xfA Transform, sb Shape, xfB Transform, s *simplex) (epaResult, bool) {
	if s.count < 4 {
		return epaFallback(xfA, xfB, s), false
	}

	verts := []mgl64.Vec3{s.points[0], s.points[1], s.points[2], s.points[3]}
	faces := []epaFace{}
	for _, idx := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		f, ok := makeEpaFace(verts, idx[0], idx[1], idx[2])
		if !ok {
			return epaFallback(xfA, xfB, s), false
		}
		faces = append(faces, f)
	}

	for iter := 0; iter < epaMaxIterations; iter++ {
		closest := 0
		for i := range faces {
			if faces[i].distance < faces[closest].distance {
				closest = i
			}
		}
		face := faces[closest]

		support := minkowskiSupport(sa, xfA, sb, xfB, face.normal)
		growth := support.Dot(face.normal) - face.distance
		if growth < epaTolerance {
			return epaResult{normal: face.normal, depth: face.distance}, true
		}

		// Remove every face visible from the new vertex and keep the horizon
		// edges; each horizon edge forms a new face with the vertex.
		verts = append(verts, support)
		newIdx := len(verts) - 1

		// Horizon edges are kept in discovery order so new faces are
		// appended deterministically; ties between closest faces then
		// resolve the same way on every run.
		type edge struct{ a, b int }
		edgeCount := map[edge]int{}
		var horizon []edge
		kept := faces[:0]
		for _, f := range faces {
			if f.normal.Dot(support.Sub(verts[f.a])) > 0 {
				for _, e := range [3]edge{{f.a, f.b}, {f.b, f.c}, {f.c, f.a}} {
					if e.a > e.b {
						e.a, e.b = e.b, e.a
					}
					edgeCount[e]++
					horizon = append(horizon, e)
				}
				continue
			}
			kept = append(kept, f)
		}
		faces = kept

		for _, e := range horizon {
			if edgeCount[e] != 1 {
				continue // interior edge, shared by two removed faces
			}
			if f, ok := makeEpaFace(verts, e.a, e.b, newIdx); ok {
				faces = append(faces, f)
			}
		}
		if len(faces) == 0 {
			break
		}
	}

	return epaFallback(xfA, xfB, s), false
}

func makeEpaFace(verts []mgl64.Vec3, a, b, c int) (epaFace, bool) {
	n := verts[b].Sub(verts[a]).Cross(verts[c].Sub(verts[a]))
	if n.LenSqr() < 1e-18 {
		return epaFace{}, false
	}
	n = n.Normalize()
	d := n.Dot(verts[a])
	if d < 0 {
		n = n.Mul(-1)
		d = -d
	}
	return epaFace{a: a, b: b, c: c, normal: n, distance: d}, true
}

// epaFallback estimates a witness when the polytope is unusable: the normal
// from body centers and a shallow depth from the nearest simplex point.
func epaFallback(xfA, xfB Transform, s *simplex) epaResult {
	n := xfB.Position.Sub(xfA.Position)
	if n.LenSqr() < 1e-12 {
		n = mgl64.Vec3{0, 1, 0}
	} else {
		n = n.Normalize()
	}
	depth := linearSlop
	for i := 0; i < s.count; i++ {
		depth = math.Max(depth, -s.points[i].Dot(n))
	}
	return epaResult{normal: n, depth: depth}
}
