package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Continuous collision detection. Bodies whose per-substep displacement
// exceeds a fraction of their shape's minimum radius get a swept test
// against their broadphase candidates; on a hit the integration of that
// body is cut at the impact time and a corrective contact for the pair is
// fed into the next substep's solve.

// bodyIsFast reports whether the body needs a swept test this substep.
func bodyIsFast(b *Body, h float64) bool {
	if b.bodyType != DynamicBody || !b.awake {
		return false
	}
	disp := b.linVel.Len() * h
	return disp > ccdRadiusFraction*b.shape.MinRadius()
}

// clampVelocityForCCD bounds the per-substep displacement to a multiple of
// the shape's minimum radius, which bounds the TOI search interval.
func clampVelocityForCCD(b *Body, h float64) {
	maxDisp := maxDisplacementRadii * b.shape.MinRadius()
	disp := b.linVel.Len() * h
	if disp > maxDisp && disp > 0 {
		b.linVel = b.linVel.Mul(maxDisp / disp)
	}
}

// timeOfImpact returns the earliest fraction of the substep at which body a,
// moving by its relative displacement against b, first touches b. Spheres
// and capsules get the analytic swept tests; every other shape pair is
// bracketed by sampling the motion segment and refined by bisection,
// returning the conservative lower bound when the iteration cap is reached.
func timeOfImpact(a, b *Body, h float64) (float64, bool) {
	disp := a.linVel.Sub(b.linVel).Mul(h)
	dispLen := disp.Len()
	if dispLen < 1e-12 {
		return 1, false
	}

	switch s := a.shape.(type) {
	case SphereShape:
		if toi, handled := sweptSphereTOI(a, s, b, disp, dispLen); handled {
			return toi, toi < 1
		}
	case CapsuleShape:
		if toi, handled := sweptCapsuleTOI(a, s, b, disp, dispLen); handled {
			return toi, toi < 1
		}
	}

	return sampledTOI(a, b, disp)
}

// sweptSphereTOI handles a moving sphere against sphere, box and capsule
// targets analytically. handled reports whether the target shape has an
// analytic path; when it does not the caller falls back to the sampled
// search.
func sweptSphereTOI(a *Body, sph SphereShape, b *Body, disp mgl64.Vec3, dispLen float64) (toi float64, handled bool) {
	dir := disp.Mul(1.0 / dispLen)
	origin := a.transform().Position

	switch v := b.shape.(type) {
	case SphereShape:
		t, _, ok := raySphere(origin, dir, b.transform().Position, sph.Radius+v.Radius, dispLen)
		if !ok {
			return 1, true
		}
		return t / dispLen, true

	case BoxShape:
		xf := shapeTransform(b.shape, b.transform())
		t, _, ok := rayBox(origin, dir, xf, v.HalfExtents.Add(mgl64.Vec3{sph.Radius, sph.Radius, sph.Radius}), dispLen)
		if !ok {
			return 1, true
		}
		return t / dispLen, true

	case OBBShape:
		t, _, ok := rayBox(origin, dir, b.transform(), v.HalfExtents.Add(mgl64.Vec3{sph.Radius, sph.Radius, sph.Radius}), dispLen)
		if !ok {
			return 1, true
		}
		return t / dispLen, true

	case CapsuleShape:
		inflated := CapsuleShape{HalfHeight: v.HalfHeight, Radius: v.Radius + sph.Radius}
		t, _, ok := rayCapsule(origin, dir, b.transform(), inflated, dispLen)
		if !ok {
			return 1, true
		}
		return t / dispLen, true
	}
	return 0, false
}

// sweptCapsuleTOI handles a moving capsule against a sphere target by the
// reversed sweep: a ray from the sphere center through the relative motion,
// against the capsule inflated by the sphere radius. Capsule against box or
// capsule has no closed form here and falls back to the sampled search.
func sweptCapsuleTOI(a *Body, capsule CapsuleShape, b *Body, disp mgl64.Vec3, dispLen float64) (toi float64, handled bool) {
	sph, ok := b.shape.(SphereShape)
	if !ok {
		return 0, false
	}
	dir := disp.Mul(-1.0 / dispLen)
	inflated := CapsuleShape{HalfHeight: capsule.HalfHeight, Radius: capsule.Radius + sph.Radius}
	t, _, hit := rayCapsule(b.transform().Position, dir, a.transform(), inflated, dispLen)
	if !hit {
		return 1, true
	}
	return t / dispLen, true
}

// sampledTOI brackets the first overlap along the motion segment with a
// coarse scan, then bisects. Overlap at t=0 returns immediately; the
// discrete narrowphase already owns that case.
func sampledTOI(a, b *Body, disp mgl64.Vec3) (float64, bool) {
	xfA := a.transform()
	xfB := b.transform()

	overlapAt := func(t float64) bool {
		moved := xfA
		moved.Position = moved.Position.Add(disp.Mul(t))
		return overlapShapes(a.shape, moved, b.shape, xfB)
	}

	if overlapAt(0) {
		return 0, false
	}

	hitSample := -1.0
	prev := 0.0
	for i := 1; i <= ccdCoarseSamples; i++ {
		t := float64(i) / float64(ccdCoarseSamples)
		if overlapAt(t) {
			hitSample = t
			break
		}
		prev = t
	}
	if hitSample < 0 {
		return 1, false
	}

	lo, hi := prev, hitSample
	for i := 0; i < ccdMaxIterations && hi-lo > 1e-5; i++ {
		mid := 0.5 * (lo + hi)
		if overlapAt(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	// Conservative: the last known non-overlapping time.
	return lo, true
}

// correctiveManifolds builds the contact a CCD rollback parked the pair just
// short of. The rollback leaves a hair of clearance, so the discrete
// narrowphase can keep missing the pair while the full approach velocity
// survives; here the fast body is advanced virtually along the relative
// motion until the shapes overlap and the narrowphase runs at that
// configuration. The advance is a few slops at most, so the reported
// penetration stays inside what the position pass tolerates.
func correctiveManifolds(a, b *Body) []*ContactManifold {
	rel := a.linVel.Sub(b.linVel)
	if rel.LenSqr() < 1e-18 {
		return nil
	}
	step := rel.Normalize().Mul(linearSlop)

	xfA := a.transform()
	for i := 0; i < ccdCoarseSamples; i++ {
		xfA.Position = xfA.Position.Add(step)
		if overlapShapes(a.shape, xfA, b.shape, b.transform()) {
			return collideShapes(a, a.shape, xfA, b, b.shape, b.transform(), nil)
		}
	}
	return nil
}

// ccdCandidates collects the bodies whose padded AABB intersects the swept
// volume of a fast body.
func ccdCandidates(bp *broadPhase, fast *Body, h float64) []*Body {
	swept := fast.shape.ComputeAABB(shapeTransform(fast.shape, fast.transform())).
		ExpandByDisplacement(fast.linVel.Mul(h)).
		Expand(linearSlop)

	var out []*Body
	bp.queryAABB(swept, func(b *Body) bool {
		if b != fast && !b.trigger {
			out = append(out, b)
		}
		return true
	})
	return out
}
