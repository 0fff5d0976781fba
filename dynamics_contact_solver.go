package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// velocityConstraintPoint is the solver-side state of one contact point.
type velocityConstraintPoint struct {
	rA, rB       mgl64.Vec3 // anchors relative to each center of mass
	normalMass   float64
	tangentMass  [2]float64
	velocityBias float64
}

// contactVelocityConstraint couples a manifold to the impulse solver.
type contactVelocityConstraint struct {
	manifold *ContactManifold
	bodyA    *Body
	bodyB    *Body

	normal      mgl64.Vec3
	tangent     [2]mgl64.Vec3
	friction    float64
	restitution float64

	points []velocityConstraintPoint
}

// contactSolver prepares and iterates the velocity constraints of all
// manifolds of a step, then runs the split-impulse position pass. The
// Gauss-Seidel sweep mutates body velocities in place, one constraint at a
// time.
type contactSolver struct {
	constraints []contactVelocityConstraint
	baumgarte   float64
	slop        float64
}

func newContactSolver(manifolds []*ContactManifold, baumgarte, slop float64) *contactSolver {
	s := &contactSolver{baumgarte: baumgarte, slop: slop}
	s.constraints = make([]contactVelocityConstraint, 0, len(manifolds))

	for _, m := range manifolds {
		vc := contactVelocityConstraint{
			manifold:    m,
			bodyA:       m.BodyA,
			bodyB:       m.BodyB,
			normal:      m.Normal,
			friction:    MixFriction(m.BodyA.material.Friction, m.BodyB.material.Friction),
			restitution: MixRestitution(m.BodyA.material.Restitution, m.BodyB.material.Restitution),
		}
		vc.tangent[0], vc.tangent[1] = computeBasis(m.Normal)

		a, b := m.BodyA, m.BodyB
		mSum := a.invMass + b.invMass

		for i := range m.Points {
			cp := &m.Points[i]
			p := velocityConstraintPoint{
				rA: cp.Position.Sub(a.position),
				rB: cp.Position.Sub(b.position),
			}

			p.normalMass = effectiveMass(mSum, p.rA, p.rB, a.invWorldI, b.invWorldI, vc.normal)
			for t := 0; t < 2; t++ {
				p.tangentMass[t] = effectiveMass(mSum, p.rA, p.rB, a.invWorldI, b.invWorldI, vc.tangent[t])
			}

			// Restitution bias from the pre-solve approach speed. Slow
			// impacts are treated as inelastic to avoid jitter.
			vRel := relativeVelocity(a, b, p.rA, p.rB).Dot(vc.normal)
			if vRel < -velocityThreshold {
				p.velocityBias = -vc.restitution * vRel
			}

			vc.points = append(vc.points, p)
		}
		s.constraints = append(s.constraints, vc)
	}
	return s
}

// effectiveMass returns 1/K for a unit constraint along dir at anchors
// rA/rB: K = mA + mB + (invIA*(rA x d) x rA + invIB*(rB x d) x rB) . d.
func effectiveMass(invMassSum float64, rA, rB mgl64.Vec3, invIA, invIB mgl64.Mat3, dir mgl64.Vec3) float64 {
	rnA := rA.Cross(dir)
	rnB := rB.Cross(dir)
	k := invMassSum + invIA.Mul3x1(rnA).Dot(rnA) + invIB.Mul3x1(rnB).Dot(rnB)
	if k <= 0 {
		return 0
	}
	return 1.0 / k
}

func relativeVelocity(a, b *Body, rA, rB mgl64.Vec3) mgl64.Vec3 {
	return b.linVel.Add(b.angVel.Cross(rB)).Sub(a.linVel).Sub(a.angVel.Cross(rA))
}

// warmStart applies last frame's accumulated impulses before iterating, so
// the solver starts near the converged solution for persistent contacts.
func (s *contactSolver) warmStart() {
	for ci := range s.constraints {
		vc := &s.constraints[ci]
		for i := range vc.points {
			cp := &vc.manifold.Points[i]
			p := &vc.points[i]
			impulse := vc.normal.Mul(cp.NormalImpulse).
				Add(vc.tangent[0].Mul(cp.TangentImpulse[0])).
				Add(vc.tangent[1].Mul(cp.TangentImpulse[1]))
			applyImpulsePair(vc.bodyA, vc.bodyB, p.rA, p.rB, impulse)
		}
	}
}

// solveVelocityConstraints runs one Gauss-Seidel sweep. Friction is solved
// before the normal constraint because non-penetration matters more; the
// tangent impulses are clamped to the Coulomb cone of the accumulated
// normal impulse.
func (s *contactSolver) solveVelocityConstraints() {
	for ci := range s.constraints {
		vc := &s.constraints[ci]
		a, b := vc.bodyA, vc.bodyB

		for i := range vc.points {
			cp := &vc.manifold.Points[i]
			p := &vc.points[i]

			for t := 0; t < 2; t++ {
				dv := relativeVelocity(a, b, p.rA, p.rB)
				vt := dv.Dot(vc.tangent[t])
				lambda := p.tangentMass[t] * -vt

				maxFriction := vc.friction * cp.NormalImpulse
				newImpulse := clamp(cp.TangentImpulse[t]+lambda, -maxFriction, maxFriction)
				lambda = newImpulse - cp.TangentImpulse[t]
				cp.TangentImpulse[t] = newImpulse

				applyImpulsePair(a, b, p.rA, p.rB, vc.tangent[t].Mul(lambda))
			}

			dv := relativeVelocity(a, b, p.rA, p.rB)
			vn := dv.Dot(vc.normal)
			lambda := -p.normalMass * (vn - p.velocityBias)

			// Accumulated impulse stays non-negative: contacts push, never pull.
			newImpulse := math.Max(cp.NormalImpulse+lambda, 0)
			lambda = newImpulse - cp.NormalImpulse
			cp.NormalImpulse = newImpulse

			applyImpulsePair(a, b, p.rA, p.rB, vc.normal.Mul(lambda))
		}
	}
}

// solvePositionConstraints is the split-impulse pass: it corrects residual
// penetration by moving positions directly, leaving the solved velocities
// untouched so the Baumgarte push adds no kinetic energy. Returns true when
// every point is within slop.
func (s *contactSolver) solvePositionConstraints() bool {
	solved := true
	for ci := range s.constraints {
		vc := &s.constraints[ci]
		a, b := vc.bodyA, vc.bodyB

		for i := range vc.manifold.Points {
			cp := &vc.manifold.Points[i]

			// Re-derive the anchors under the corrected poses; the drift of
			// the two anchors along the normal tracks the change in
			// separation since the manifold was built.
			worldA := MakeTransform(a.position, a.orientation).Apply(cp.LocalA)
			worldB := MakeTransform(b.position, b.orientation).Apply(cp.LocalB)
			separation := cp.Separation + worldB.Sub(worldA).Dot(vc.normal)

			c := clamp(s.baumgarte*(separation+s.slop), -maxLinearCorrection, 0)
			if c == 0 {
				continue
			}
			if separation < -s.slop {
				solved = false
			}

			rA := worldA.Sub(a.position)
			rB := worldB.Sub(b.position)
			k := effectiveMass(a.invMass+b.invMass, rA, rB, a.invWorldI, b.invWorldI, vc.normal)
			if k == 0 {
				continue
			}
			impulse := vc.normal.Mul(-c * k)

			if a.bodyType == DynamicBody {
				a.position = a.position.Sub(impulse.Mul(a.invMass))
				dw := a.invWorldI.Mul3x1(rA.Cross(impulse)).Mul(-1)
				a.orientation = integrateOrientation(a.orientation, dw, 1.0)
			}
			if b.bodyType == DynamicBody {
				b.position = b.position.Add(impulse.Mul(b.invMass))
				dw := b.invWorldI.Mul3x1(rB.Cross(impulse))
				b.orientation = integrateOrientation(b.orientation, dw, 1.0)
			}
		}
	}
	return solved
}

// validateImpulses zeroes the accumulated impulses of any manifold that went
// non-finite during iteration, so NaN never reaches a body velocity through
// the warm-start path. Returns the offending manifolds for logging.
func (s *contactSolver) validateImpulses() []*ContactManifold {
	var bad []*ContactManifold
	for ci := range s.constraints {
		vc := &s.constraints[ci]
		ok := true
		for i := range vc.manifold.Points {
			cp := &vc.manifold.Points[i]
			if !isFinite(cp.NormalImpulse) || !isFinite(cp.TangentImpulse[0]) || !isFinite(cp.TangentImpulse[1]) {
				ok = false
			}
		}
		if !ok {
			for i := range vc.manifold.Points {
				cp := &vc.manifold.Points[i]
				cp.NormalImpulse = 0
				cp.TangentImpulse = [2]float64{}
			}
			bad = append(bad, vc.manifold)
		}
	}
	return bad
}

// totalNormalImpulse sums the accumulated normal impulses of a manifold,
// reported through the collision callback.
func totalNormalImpulse(m *ContactManifold) float64 {
	sum := 0.0
	for i := range m.Points {
		sum += m.Points[i].NormalImpulse
	}
	return sum
}

// applyImpulsePair applies an impulse at the contact anchors: negatively to
// A, positively to B. Static and kinematic bodies have zero inverse mass so
// they are unaffected.
func applyImpulsePair(a, b *Body, rA, rB mgl64.Vec3, impulse mgl64.Vec3) {
	if a.bodyType == DynamicBody {
		a.linVel = a.linVel.Sub(impulse.Mul(a.invMass))
		a.angVel = a.angVel.Sub(a.invWorldI.Mul3x1(rA.Cross(impulse)))
	}
	if b.bodyType == DynamicBody {
		b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
		b.angVel = b.angVel.Add(b.invWorldI.Mul3x1(rB.Cross(impulse)))
	}
}
