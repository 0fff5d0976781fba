package physics

import "math"

// Global tuning constants based on meters-kilograms-seconds (MKS) units.

const maxFloat = math.MaxFloat64

// Collision

// The maximum number of contact points kept per manifold. A 4-point patch is
// the smallest that resists rotation on every axis of the contact plane.
const maxManifoldPoints = 4

// A small length used as a collision and constraint tolerance. Usually it is
// chosen to be numerically significant, but visually insignificant.
const linearSlop = 0.005

// Distance threshold used to match a new contact point against a cached one
// when feature IDs disagree. Matched points inherit accumulated impulses.
const contactMatchTolerance = 0.05

// Fattening applied to broadphase AABBs, plus a dimensionless multiplier on
// the per-substep displacement so moving bodies find pairs one step early.
const aabbExtension = 0.05
const aabbVelocityMultiplier = 2.0

// Dynamics

// A velocity threshold for elastic collisions. Any collision with a relative
// normal velocity below this threshold is treated as inelastic.
const velocityThreshold = 1.0

// This scale factor controls how fast penetration is resolved by the split
// position pass. Values close to 1 remove overlap in one step but overshoot.
const defaultBaumgarte = 0.2

// Number of split-impulse position passes per substep. The pass exits early
// once every correction falls under the slop.
const positionIterations = 4

// The maximum positional correction applied per solver pass. Prevents
// overshoot when penetration is deep.
const maxLinearCorrection = 0.2

// Continuous collision

// A body is flagged for CCD when its per-substep displacement exceeds this
// fraction of its collision shape's minimum radius.
const ccdRadiusFraction = 0.5

// Number of coarse samples along the motion segment used to bracket the
// first overlapping time before bisection refines it.
const ccdCoarseSamples = 8

// Bisection iteration cap for the time-of-impact search. On hitting the cap
// the earliest candidate time is used.
const ccdMaxIterations = 16

// The maximum displacement of a body during one substep, as a multiple of
// its minimum radius. Bounds the CCD search and keeps the solver sane.
const maxDisplacementRadii = 8.0

// Sleep

// The time in seconds that a body must be still before it may go to sleep.
const defaultTimeToSleep = 0.5

// A body cannot sleep if its linear velocity is above this tolerance.
const defaultLinearSleepTolerance = 0.01

// A body cannot sleep if its angular velocity is above this tolerance.
const defaultAngularSleepTolerance = 2.0 / 180.0 * math.Pi

// Inertia of a degenerate (zero volume) shape is clamped to this value
// instead of dividing by zero.
const inertiaEpsilon = 1e-8

// MixFriction combines two friction coefficients. The geometric mean gives
// low-friction materials a strong influence on the pair.
func MixFriction(frictionA, frictionB float64) float64 {
	return math.Sqrt(frictionA * frictionB)
}

// MixRestitution combines two restitution values. Using the maximum lets a
// bouncy ball bounce on anything.
func MixRestitution(restitutionA, restitutionB float64) float64 {
	return math.Max(restitutionA, restitutionB)
}
