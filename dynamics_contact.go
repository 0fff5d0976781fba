package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is a single touching point of a manifold. Accumulated
// impulses persist across frames through the contact cache (warm starting).
type ContactPoint struct {
	// LocalA and LocalB anchor the point in each body's local frame, so the
	// position pass can re-derive world positions after integration.
	LocalA mgl64.Vec3
	LocalB mgl64.Vec3

	// Position is the world-space contact point.
	Position mgl64.Vec3

	// Separation is the signed distance along the normal. Negative values
	// are penetration.
	Separation float64

	// FeatureID identifies the generating feature pair (face corner, cap,
	// axis) so the point can be matched against last frame's manifold.
	FeatureID uint32

	NormalImpulse  float64
	TangentImpulse [2]float64
}

// ContactManifold is the set of contact points between one shape pair.
// Normal points from BodyA toward BodyB. A manifold never holds more than
// maxManifoldPoints points after cache update.
type ContactManifold struct {
	BodyA *Body
	BodyB *Body

	Normal mgl64.Vec3
	Points []ContactPoint
}

// cachedPoint is what survives of a contact point between frames.
type cachedPoint struct {
	featureID      uint32
	localA         mgl64.Vec3
	normalImpulse  float64
	tangentImpulse [2]float64
}

type cachedManifold struct {
	points   []cachedPoint
	touching bool
}

// contactCache persists manifolds across steps keyed by body pair. Matched
// points inherit their accumulated impulses; fresh points start at zero.
type contactCache struct {
	entries map[pairKey]*cachedManifold
}

func newContactCache() *contactCache {
	return &contactCache{entries: make(map[pairKey]*cachedManifold)}
}

// update reduces each manifold to at most maxManifoldPoints points and warm
// starts it from the cached entry of the same pair. It returns the pairs
// that began touching this step (for collision callbacks).
func (cc *contactCache) update(manifolds []*ContactManifold) []pairKey {
	touched := make(map[pairKey]*cachedManifold, len(manifolds))
	var began []pairKey

	for _, m := range manifolds {
		if len(m.Points) > maxManifoldPoints {
			m.Points = reduceManifold(m.Points)
		}

		key := makePairKey(m.BodyA.handle, m.BodyB.handle)
		prev := cc.entries[key]
		if prev != nil {
			for i := range m.Points {
				matchCachedPoint(&m.Points[i], prev.points)
			}
		}
		if prev == nil || !prev.touching {
			began = append(began, key)
		}

		entry := touched[key]
		if entry == nil {
			entry = &cachedManifold{touching: true}
			touched[key] = entry
		}
		for i := range m.Points {
			p := &m.Points[i]
			entry.points = append(entry.points, cachedPoint{
				featureID:      p.FeatureID,
				localA:         p.LocalA,
				normalImpulse:  p.NormalImpulse,
				tangentImpulse: p.TangentImpulse,
			})
		}
	}

	cc.entries = touched
	return began
}

// storeImpulses writes the solved impulses back into the cache for the next
// frame's warm start. Compound pairs spread several manifolds over one key,
// so the entry is truncated once per key, not once per manifold.
func (cc *contactCache) storeImpulses(manifolds []*ContactManifold) {
	cleared := make(map[pairKey]bool, len(manifolds))
	for _, m := range manifolds {
		key := makePairKey(m.BodyA.handle, m.BodyB.handle)
		entry := cc.entries[key]
		if entry == nil {
			continue
		}
		if !cleared[key] {
			entry.points = entry.points[:0]
			cleared[key] = true
		}
		for i := range m.Points {
			p := &m.Points[i]
			entry.points = append(entry.points, cachedPoint{
				featureID:      p.FeatureID,
				localA:         p.LocalA,
				normalImpulse:  p.NormalImpulse,
				tangentImpulse: p.TangentImpulse,
			})
		}
	}
}

// removeBody drops every cached pair involving the slot index.
func (cc *contactCache) removeBody(h Handle) {
	for key := range cc.entries {
		if key.a == h.Index || key.b == h.Index {
			delete(cc.entries, key)
		}
	}
}

// matchCachedPoint matches a new point against last frame's points, first by
// feature ID, then by nearest local anchor within tolerance.
func matchCachedPoint(p *ContactPoint, prev []cachedPoint) {
	for i := range prev {
		if prev[i].featureID != 0 && prev[i].featureID == p.FeatureID {
			p.NormalImpulse = prev[i].normalImpulse
			p.TangentImpulse = prev[i].tangentImpulse
			return
		}
	}
	bestD := contactMatchTolerance * contactMatchTolerance
	best := -1
	for i := range prev {
		if d := prev[i].localA.Sub(p.LocalA).LenSqr(); d < bestD {
			bestD = d
			best = i
		}
	}
	if best >= 0 {
		p.NormalImpulse = prev[best].normalImpulse
		p.TangentImpulse = prev[best].tangentImpulse
	}
}

// reduceManifold keeps at most maxManifoldPoints points: the deepest point
// first, then greedily the points that maximize the spanned contact area.
// A spread patch resists rotation, which is what keeps stacked boxes stable.
func reduceManifold(points []ContactPoint) []ContactPoint {
	if len(points) <= maxManifoldPoints {
		return points
	}

	kept := make([]ContactPoint, 0, maxManifoldPoints)
	used := make([]bool, len(points))

	// 1: deepest point.
	deepest := 0
	for i := range points {
		if points[i].Separation < points[deepest].Separation {
			deepest = i
		}
	}
	kept = append(kept, points[deepest])
	used[deepest] = true

	// 2: farthest from the deepest.
	best, bestD := -1, -1.0
	for i := range points {
		if used[i] {
			continue
		}
		if d := points[i].Position.Sub(kept[0].Position).LenSqr(); d > bestD {
			bestD = d
			best = i
		}
	}
	kept = append(kept, points[best])
	used[best] = true

	// 3: maximize triangle area with the first two.
	best, bestD = -1, -1.0
	edge := kept[1].Position.Sub(kept[0].Position)
	for i := range points {
		if used[i] {
			continue
		}
		if a := edge.Cross(points[i].Position.Sub(kept[0].Position)).LenSqr(); a > bestD {
			bestD = a
			best = i
		}
	}
	kept = append(kept, points[best])
	used[best] = true

	// 4: maximize the total area added against the triangle's edges.
	best, bestD = -1, -1.0
	for i := range points {
		if used[i] {
			continue
		}
		area := 0.0
		for j := 0; j < 3; j++ {
			e := kept[(j+1)%3].Position.Sub(kept[j].Position)
			d := points[i].Position.Sub(kept[j].Position)
			area += e.Cross(d).Len()
		}
		if area > bestD {
			bestD = area
			best = i
		}
	}
	kept = append(kept, points[best])
	return kept
}
