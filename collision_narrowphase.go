package physics

// collideFunc produces the contact manifold of one shape pair, or nil when
// separated. The transforms have already been adjusted by shapeTransform.
type collideFunc func(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold

// collideTable dispatches by ordered shape-type pair, the explicit table
// replacement for dispatch-by-type. Entries left nil fall through to the
// generic convex GJK+EPA path. Compound is handled before the table by
// recursion.
var collideTable [shapeTypeCount][shapeTypeCount]collideFunc

func init() {
	collideTable[ShapeSphere][ShapeSphere] = collideSpheres
	collideTable[ShapeSphere][ShapeCapsule] = collideSphereCapsule
	collideTable[ShapeCapsule][ShapeSphere] = flipped(collideSphereCapsule)
	collideTable[ShapeCapsule][ShapeCapsule] = collideCapsules
	collideTable[ShapeSphere][ShapeBox] = collideSphereBox
	collideTable[ShapeBox][ShapeSphere] = flipped(collideSphereBox)
	collideTable[ShapeSphere][ShapeOBB] = collideSphereBox
	collideTable[ShapeOBB][ShapeSphere] = flipped(collideSphereBox)
	collideTable[ShapeBox][ShapeBox] = collideBoxes
}

// flipped adapts a collide function to swapped operands, reversing the
// resulting normal so it still points from A to B.
func flipped(fn collideFunc) collideFunc {
	return func(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
		m := fn(b, sb, xfB, a, sa, xfA)
		if m == nil {
			return nil
		}
		m.BodyA, m.BodyB = a, b
		m.Normal = m.Normal.Mul(-1)
		for i := range m.Points {
			m.Points[i].LocalA, m.Points[i].LocalB = m.Points[i].LocalB, m.Points[i].LocalA
		}
		return m
	}
}

// tagCompoundChild folds the child index into each point's feature ID.
// Analytic routines emit a constant ID per routine, so without the tag two
// children of one compound would alias in the contact cache and swap warm
// started impulses. A-side children use bits 16-23, B-side bits 24-31.
func tagCompoundChild(ms []*ContactManifold, child int, sideA bool) {
	shift := uint(16)
	if !sideA {
		shift = 24
	}
	tag := (uint32(child+1) & 0xff) << shift
	for _, m := range ms {
		for i := range m.Points {
			m.Points[i].FeatureID |= tag
		}
	}
}

// collidePair computes all manifolds between two bodies, recursing into
// compound children. The returned slice is empty when the pair is separated.
func collidePair(a, b *Body) []*ContactManifold {
	return collideShapes(a, a.shape, a.transform(), b, b.shape, b.transform(), nil)
}

func collideShapes(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform, out []*ContactManifold) []*ContactManifold {
	if ca, ok := sa.(CompoundShape); ok {
		for ci, child := range ca.Children {
			start := len(out)
			out = collideShapes(a, child.Shape, xfA.Mul(child.Offset), b, sb, xfB, out)
			tagCompoundChild(out[start:], ci, true)
		}
		return out
	}
	if cb, ok := sb.(CompoundShape); ok {
		for ci, child := range cb.Children {
			start := len(out)
			out = collideShapes(a, sa, xfA, b, child.Shape, xfB.Mul(child.Offset), out)
			tagCompoundChild(out[start:], ci, false)
		}
		return out
	}

	xfA = shapeTransform(sa, xfA)
	xfB = shapeTransform(sb, xfB)

	var m *ContactManifold
	if fn := collideTable[sa.Type()][sb.Type()]; fn != nil {
		m = fn(a, sa, xfA, b, sb, xfB)
	} else {
		m = collideConvex(a, sa, xfA, b, sb, xfB)
	}
	if m != nil && len(m.Points) > 0 {
		out = append(out, m)
	}
	return out
}

// collideConvex is the generic path for any pair involving an OBB or convex
// hull: GJK decides overlap, EPA recovers penetration depth and normal, and
// the witness points come from the supports on the separating direction.
func collideConvex(a *Body, sa Shape, xfA Transform, b *Body, sb Shape, xfB Transform) *ContactManifold {
	var s simplex
	if !gjkOverlap(sa, xfA, sb, xfB, &s) {
		return nil
	}
	res, _ := epaPenetration(sa, xfA, sb, xfB, &s)

	pa := supportWorld(sa, xfA, res.normal)
	pb := supportWorld(sb, xfB, res.normal.Mul(-1))
	point := pa.Add(pb).Mul(0.5)
	return onePointManifold(a, b, point, res.normal, -res.depth, featureConvex)
}

// overlapShapes is the boolean overlap query used by triggers and CCD. It
// recurses into compounds and uses the cheap analytic tests where the
// dispatch table has them, falling back to GJK.
func overlapShapes(sa Shape, xfA Transform, sb Shape, xfB Transform) bool {
	if ca, ok := sa.(CompoundShape); ok {
		for _, child := range ca.Children {
			if overlapShapes(child.Shape, xfA.Mul(child.Offset), sb, xfB) {
				return true
			}
		}
		return false
	}
	if cb, ok := sb.(CompoundShape); ok {
		for _, child := range cb.Children {
			if overlapShapes(sa, xfA, child.Shape, xfB.Mul(child.Offset)) {
				return true
			}
		}
		return false
	}

	xfA = shapeTransform(sa, xfA)
	xfB = shapeTransform(sb, xfB)
	var s simplex
	return gjkOverlap(sa, xfA, sb, xfB, &s)
}

// overlapBodies reports whether two bodies' shapes overlap, without
// producing contact geometry.
func overlapBodies(a, b *Body) bool {
	return overlapShapes(a.shape, a.transform(), b.shape, b.transform())
}
