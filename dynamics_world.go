package physics

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNilShape is returned by CreateBody when the definition has no shape.
	ErrNilShape = errors.New("physics: body definition has no shape")

	// ErrInvalidMass is returned by CreateBody for a dynamic body whose mass
	// is not a positive finite number.
	ErrInvalidMass = errors.New("physics: dynamic body needs positive finite mass")

	// ErrStaleHandle is returned when a handle no longer refers to a live
	// body, either because it was destroyed or because the slot was reused.
	ErrStaleHandle = errors.New("physics: stale body handle")
)

// PhysicsWorldConfig tunes a World. Zero values in a loaded file fall back
// to the defaults; see DefaultConfig.
type PhysicsWorldConfig struct {
	Gravity mgl64.Vec3 `yaml:"gravity"`

	FixedTimestep    float64 `yaml:"fixed_timestep"`
	MaxSubsteps      int     `yaml:"max_substeps"`
	SolverIterations int     `yaml:"solver_iterations"`

	Baumgarte       float64 `yaml:"baumgarte"`
	PenetrationSlop float64 `yaml:"penetration_slop"`

	// CellSize is the broadphase grid cell edge length. It should be on the
	// order of the typical shape diameter.
	CellSize float64 `yaml:"cell_size"`

	SleepLinearThreshold  float64 `yaml:"sleep_linear_threshold"`
	SleepAngularThreshold float64 `yaml:"sleep_angular_threshold"`
	SleepDuration         float64 `yaml:"sleep_duration"`

	// UpAxis and GroundedNormalCos decide the grounded flag: a body is
	// grounded when some contact pushes it along UpAxis with a normal whose
	// cosine against UpAxis is at least GroundedNormalCos.
	UpAxis            mgl64.Vec3 `yaml:"up_axis"`
	GroundedNormalCos float64    `yaml:"grounded_normal_cos"`

	DisableSleep bool `yaml:"disable_sleep"`
	DisableCCD   bool `yaml:"disable_ccd"`
}

// DefaultConfig returns the tuning an unconfigured World runs with.
func DefaultConfig() PhysicsWorldConfig {
	return PhysicsWorldConfig{
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		FixedTimestep:         1.0 / 120.0,
		MaxSubsteps:           8,
		SolverIterations:      10,
		Baumgarte:             defaultBaumgarte,
		PenetrationSlop:       linearSlop,
		CellSize:              2.0,
		SleepLinearThreshold:  defaultLinearSleepTolerance,
		SleepAngularThreshold: defaultAngularSleepTolerance,
		SleepDuration:         defaultTimeToSleep,
		UpAxis:                mgl64.Vec3{0, 1, 0},
		GroundedNormalCos:     0.7,
	}
}

// LoadConfig reads a YAML config file. Keys absent from the file keep their
// default values.
func LoadConfig(path string) (PhysicsWorldConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("physics config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("physics config %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fillDefaults replaces zero-valued tunables with their defaults. Boolean
// switches and the gravity vector are taken as given: a zero gravity config
// is a legitimate space scene.
func (c *PhysicsWorldConfig) fillDefaults() {
	d := DefaultConfig()
	if c.FixedTimestep == 0 {
		c.FixedTimestep = d.FixedTimestep
	}
	if c.MaxSubsteps == 0 {
		c.MaxSubsteps = d.MaxSubsteps
	}
	if c.SolverIterations == 0 {
		c.SolverIterations = d.SolverIterations
	}
	if c.Baumgarte == 0 {
		c.Baumgarte = d.Baumgarte
	}
	if c.PenetrationSlop == 0 {
		c.PenetrationSlop = d.PenetrationSlop
	}
	if c.CellSize == 0 {
		c.CellSize = d.CellSize
	}
	if c.SleepLinearThreshold == 0 {
		c.SleepLinearThreshold = d.SleepLinearThreshold
	}
	if c.SleepAngularThreshold == 0 {
		c.SleepAngularThreshold = d.SleepAngularThreshold
	}
	if c.SleepDuration == 0 {
		c.SleepDuration = d.SleepDuration
	}
	if c.UpAxis.Len() == 0 {
		c.UpAxis = d.UpAxis
	} else {
		c.UpAxis = c.UpAxis.Normalize()
	}
	if c.GroundedNormalCos == 0 {
		c.GroundedNormalCos = d.GroundedNormalCos
	}
}

func (c *PhysicsWorldConfig) validate() error {
	if c.FixedTimestep <= 0 || !isFinite(c.FixedTimestep) {
		return fmt.Errorf("physics config: fixed_timestep %v out of range", c.FixedTimestep)
	}
	if c.MaxSubsteps < 1 {
		return fmt.Errorf("physics config: max_substeps %d out of range", c.MaxSubsteps)
	}
	if c.SolverIterations < 1 {
		return fmt.Errorf("physics config: solver_iterations %d out of range", c.SolverIterations)
	}
	if !vec3IsFinite(c.Gravity) {
		return fmt.Errorf("physics config: gravity %v is not finite", c.Gravity)
	}
	return nil
}

// CollisionEvent summarizes a newly touching contact pair for the collision
// callback: the pair, the primary normal (from A toward B) and the total
// normal impulse applied this substep.
type CollisionEvent struct {
	EntityA Entity
	EntityB Entity
	BodyA   Handle
	BodyB   Handle
	Normal  mgl64.Vec3
	Impulse float64
}

// BodyState is the pose/velocity snapshot exchanged with a ComponentStore.
type BodyState struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	LinVel      mgl64.Vec3
	AngVel      mgl64.Vec3
	Grounded    bool
}

// ComponentStore binds the World to an entity/component store. Before each
// frame the World re-reads pose and velocity for every body whose entity the
// store knows; after all substeps it writes the result back for awake
// dynamic and kinematic bodies.
type ComponentStore interface {
	ReadState(e Entity) (BodyState, bool)
	WriteState(e Entity, st BodyState)
}

// World owns all physics state and steps it at a fixed rate. A World is not
// safe for concurrent use; exactly one caller steps it.
type World struct {
	cfg    PhysicsWorldConfig
	bodies bodyArena
	broad  *broadPhase
	cache  *contactCache
	joints []Joint

	triggers triggerTable

	accumulator float64
	stepCount   uint64

	// pendingContacts are pairs the CCD pass stopped last substep: the
	// rollback parks them just short of touching, so the next substep
	// synthesizes their contact if the discrete narrowphase misses it.
	pendingContacts [][2]Handle

	// manifolds of the most recent substep, kept for the grounded pass and
	// for inspection in tests.
	manifolds []*ContactManifold

	store  ComponentStore
	logger *slog.Logger

	// OnCollision fires once per pair that began touching, after the solve.
	OnCollision func(CollisionEvent)

	OnTriggerEnter func(a, b Entity)
	OnTriggerStay  func(a, b Entity)
	OnTriggerExit  func(a, b Entity)
}

// NewWorld creates a world with the given config. Zero-valued tunables are
// filled from defaults.
func NewWorld(cfg PhysicsWorldConfig) *World {
	cfg.fillDefaults()
	return &World{
		cfg:      cfg,
		broad:    newBroadPhase(cfg.CellSize),
		cache:    newContactCache(),
		triggers: make(triggerTable),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the anomaly logger. Nil restores slog.Default().
func (w *World) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	w.logger = l
}

// BindStore attaches the entity/component store the World syncs with each
// frame. Nil detaches.
func (w *World) BindStore(s ComponentStore) { w.store = s }

// Config returns the effective configuration.
func (w *World) Config() PhysicsWorldConfig { return w.cfg }

// CreateBody adds a body and returns its handle.
func (w *World) CreateBody(def BodyDef) (Handle, error) {
	if def.Shape == nil {
		return Handle{}, ErrNilShape
	}
	if def.Type == DynamicBody && (def.Mass <= 0 || !isFinite(def.Mass)) {
		return Handle{}, ErrInvalidMass
	}

	orientation := def.Orientation
	if orientation.W == 0 && orientation.V.Len() == 0 {
		orientation = mgl64.QuatIdent()
	}
	orientation = orientation.Normalize()

	b := &Body{
		entity:         def.Entity,
		bodyType:       def.Type,
		shape:          def.Shape,
		offset:         def.LocalOffset,
		position:       def.Position,
		orientation:    orientation,
		linVel:         def.LinVel,
		angVel:         def.AngVel,
		material:       def.Material,
		linearDamping:  def.LinearDamping,
		angularDamping: def.AngularDamping,
		layer:          def.Layer,
		mask:           def.Mask,
		trigger:        def.Trigger,
		awake:          true,
	}
	if def.Type == DynamicBody {
		b.mass = def.Mass
		b.invMass = 1.0 / def.Mass
		b.localInertia = computeInertia(def.Shape, def.Mass)
		b.invLocalI = invertInertia(b.localInertia)
	}
	b.updateWorldInertia()

	h := w.bodies.insert(b)
	if shapeIsDegenerate(def.Shape) {
		w.logger.Warn("degenerate shape clamped",
			"entity", uint64(def.Entity), "body", h.Index)
	}
	return h, nil
}

// DestroyBody removes a body together with its cached contacts, joints and
// trigger pairs. Stale handles are rejected.
func (w *World) DestroyBody(h Handle) error {
	b := w.bodies.get(h)
	if b == nil {
		return ErrStaleHandle
	}

	kept := w.joints[:0]
	for _, j := range w.joints {
		if j.BodyA() == b || j.BodyB() == b {
			other := j.BodyA()
			if other == b {
				other = j.BodyB()
			}
			other.SetAwake(true)
			continue
		}
		kept = append(kept, j)
	}
	w.joints = kept

	w.cache.removeBody(h)
	w.triggers.removeBody(w, h)
	w.bodies.remove(h)
	return nil
}

// GetBody resolves a handle, or nil if it is stale.
func (w *World) GetBody(h Handle) *Body { return w.bodies.get(h) }

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return len(w.bodies.list) }

// AddJoint registers a joint and wakes its bodies.
func (w *World) AddJoint(j Joint) {
	w.joints = append(w.joints, j)
	j.BodyA().SetAwake(true)
	j.BodyB().SetAwake(true)
}

// RemoveJoint unregisters a joint and wakes its bodies.
func (w *World) RemoveJoint(j Joint) {
	for i, x := range w.joints {
		if x == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			j.BodyA().SetAwake(true)
			j.BodyB().SetAwake(true)
			return
		}
	}
}

// Step advances the simulation by frameDt seconds of wall time, consuming
// whole fixed substeps from the accumulator. Up to MaxSubsteps substeps run
// per call; remaining time carries over to the next call.
func (w *World) Step(frameDt float64) {
	if frameDt < 0 || !isFinite(frameDt) {
		w.logger.Warn("ignoring invalid frame delta", "dt", frameDt)
		return
	}
	w.syncFromStore()

	w.accumulator += frameDt
	h := w.cfg.FixedTimestep
	for i := 0; i < w.cfg.MaxSubsteps && w.accumulator >= h; i++ {
		w.substep(h)
		w.accumulator -= h
	}

	w.writeBackToStore()
}

func (w *World) substep(h float64) {
	w.stepCount++
	bodies := w.bodies.list

	// Stage 1-2: world inertia, then gravity and damping on awake dynamics.
	for _, b := range bodies {
		b.updateWorldInertia()
		if b.bodyType != DynamicBody || !b.awake {
			continue
		}
		b.linVel = b.linVel.Add(w.cfg.Gravity.Mul(h)).Add(b.force.Mul(b.invMass * h))
		b.angVel = b.angVel.Add(b.invWorldI.Mul3x1(b.torque).Mul(h))
		if b.linearDamping > 0 {
			b.linVel = b.linVel.Mul(math.Exp(-b.linearDamping * h))
		}
		if b.angularDamping > 0 {
			b.angVel = b.angVel.Mul(math.Exp(-b.angularDamping * h))
		}
		b.force = mgl64.Vec3{}
		b.torque = mgl64.Vec3{}
	}

	// Stage 3-4: broadphase, then narrowphase on solid pairs. Trigger pairs
	// go to the non-resolving overlap pass instead.
	pairs := w.broad.computePairs(bodies, h)
	var manifolds []*ContactManifold
	var triggerPairs [][2]*Body
	for _, p := range pairs {
		if p[0].trigger || p[1].trigger {
			triggerPairs = append(triggerPairs, p)
			continue
		}
		manifolds = append(manifolds, collidePair(p[0], p[1])...)
	}
	manifolds = w.resolvePendingContacts(manifolds)

	// Touching contacts wake both sides before the solve, so a body dropped
	// onto a sleeping pile wakes it this substep, not next.
	for _, m := range manifolds {
		if m.BodyA.awake != m.BodyB.awake {
			m.BodyA.SetAwake(true)
			m.BodyB.SetAwake(true)
		}
	}

	// Stage 5: contact cache update and warm-start matching.
	began := w.cache.update(manifolds)

	// Stage 6-7: solver. Joints and contacts share the Gauss-Seidel sweeps,
	// then the split-impulse position pass runs on its own.
	solver := newContactSolver(manifolds, w.cfg.Baumgarte, w.cfg.PenetrationSlop)
	active := w.activeJoints()
	for _, j := range active {
		j.initVelocityConstraints(h, w.cfg.Baumgarte)
	}
	solver.warmStart()
	for i := 0; i < w.cfg.SolverIterations; i++ {
		for _, j := range active {
			j.solveVelocityConstraints()
		}
		solver.solveVelocityConstraints()
	}
	for i := 0; i < positionIterations; i++ {
		if solver.solvePositionConstraints() {
			break
		}
	}
	for _, m := range solver.validateImpulses() {
		w.logger.Warn("contact impulse diverged, resetting manifold",
			"entityA", uint64(m.BodyA.entity), "entityB", uint64(m.BodyB.entity),
			"step", w.stepCount)
	}
	w.cache.storeImpulses(manifolds)

	// Stage 8: CCD. Fast bodies get their integration cut at the earliest
	// time of impact; the pair is remembered so next substep's solver
	// resolves the new contact.
	fraction := w.ccdPass(h)

	// Stage 9: integrate poses.
	for _, b := range bodies {
		if b.bodyType == StaticBody || !b.awake {
			continue
		}
		f := 1.0
		if fraction != nil {
			if t, ok := fraction[b]; ok {
				f = t
			}
		}
		b.position = b.position.Add(b.linVel.Mul(h * f))
		b.orientation = integrateOrientation(b.orientation, b.angVel, h*f)
	}

	// Stage 10: grounded flags from contact normals.
	w.refreshGrounded(manifolds)

	// Collision callbacks for pairs that began touching, with the impulse
	// the solve actually applied.
	w.emitCollisions(manifolds, began)

	// Stage 11: trigger enter/stay/exit.
	w.triggers.update(w, triggerPairs)

	// Stage 12: islands and sleep.
	w.manifolds = manifolds
	if !w.cfg.DisableSleep {
		updateIslands(bodies, manifolds, w.joints, h, &w.cfg)
	}
}

// resolvePendingContacts synthesizes manifolds for the pairs the CCD pass
// stopped last substep, unless the discrete narrowphase already produced
// one. Without this the parked body keeps its full approach velocity: it
// never overlaps, so the solver never sees the impact.
func (w *World) resolvePendingContacts(manifolds []*ContactManifold) []*ContactManifold {
	if len(w.pendingContacts) == 0 {
		return manifolds
	}
	have := make(map[pairKey]bool, len(manifolds))
	for _, m := range manifolds {
		have[makePairKey(m.BodyA.handle, m.BodyB.handle)] = true
	}
	for _, p := range w.pendingContacts {
		a, b := w.bodies.get(p[0]), w.bodies.get(p[1])
		if a == nil || b == nil {
			continue
		}
		key := makePairKey(p[0], p[1])
		if have[key] {
			continue
		}
		have[key] = true
		manifolds = append(manifolds, correctiveManifolds(a, b)...)
	}
	w.pendingContacts = w.pendingContacts[:0]
	return manifolds
}

// activeJoints returns the joints with at least one awake dynamic endpoint.
func (w *World) activeJoints() []Joint {
	var out []Joint
	for _, j := range w.joints {
		a, b := j.BodyA(), j.BodyB()
		if (a.bodyType == DynamicBody && a.awake) || (b.bodyType == DynamicBody && b.awake) {
			out = append(out, j)
		}
	}
	return out
}

// ccdPass clamps runaway velocities, finds the earliest time of impact for
// each fast body and returns per-body integration fractions. Nil means no
// body needed one.
func (w *World) ccdPass(h float64) map[*Body]float64 {
	if w.cfg.DisableCCD {
		return nil
	}
	var fraction map[*Body]float64
	for _, b := range w.bodies.list {
		if b.bodyType != DynamicBody || !b.awake {
			continue
		}
		clampVelocityForCCD(b, h)
		if !bodyIsFast(b, h) {
			continue
		}
		for _, other := range ccdCandidates(w.broad, b, h) {
			t, hit := timeOfImpact(b, other, h)
			if !hit {
				continue
			}
			if fraction == nil {
				fraction = make(map[*Body]float64)
			}
			if cur, ok := fraction[b]; !ok || t < cur {
				fraction[b] = t
			}
			w.pendingContacts = append(w.pendingContacts, [2]Handle{b.handle, other.handle})
			other.SetAwake(true)
		}
	}
	return fraction
}

// refreshGrounded recomputes the grounded flag of every dynamic body from
// this substep's contact normals. The manifold normal points from A toward
// B, so A is grounded when the normal opposes the up axis.
func (w *World) refreshGrounded(manifolds []*ContactManifold) {
	// Sleeping bodies produce no manifolds; their last grounded state stands
	// until they wake.
	for _, b := range w.bodies.list {
		if b.awake {
			b.grounded = false
		}
	}
	up := w.cfg.UpAxis
	for _, m := range manifolds {
		if len(m.Points) == 0 {
			continue
		}
		d := m.Normal.Dot(up)
		if d <= -w.cfg.GroundedNormalCos && m.BodyA.bodyType == DynamicBody {
			m.BodyA.grounded = true
		}
		if d >= w.cfg.GroundedNormalCos && m.BodyB.bodyType == DynamicBody {
			m.BodyB.grounded = true
		}
	}
}

func (w *World) emitCollisions(manifolds []*ContactManifold, began []pairKey) {
	if w.OnCollision == nil || len(began) == 0 {
		return
	}
	newPairs := make(map[pairKey]bool, len(began))
	for _, key := range began {
		newPairs[key] = true
	}

	// Compound pairs produce several manifolds for one key; the event
	// carries the summed impulse and the first manifold's normal.
	events := make(map[pairKey]*CollisionEvent)
	var order []pairKey
	for _, m := range manifolds {
		key := makePairKey(m.BodyA.handle, m.BodyB.handle)
		if !newPairs[key] {
			continue
		}
		ev := events[key]
		if ev == nil {
			ev = &CollisionEvent{
				EntityA: m.BodyA.entity,
				EntityB: m.BodyB.entity,
				BodyA:   m.BodyA.handle,
				BodyB:   m.BodyB.handle,
				Normal:  m.Normal,
			}
			events[key] = ev
			order = append(order, key)
		}
		ev.Impulse += totalNormalImpulse(m)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].a != order[j].a {
			return order[i].a < order[j].a
		}
		return order[i].b < order[j].b
	})
	for _, key := range order {
		w.OnCollision(*events[key])
	}
}

// syncFromStore pulls pose and velocity from the bound store. A changed
// state wakes the body; an unchanged one leaves sleep timers alone.
func (w *World) syncFromStore() {
	if w.store == nil {
		return
	}
	for _, b := range w.bodies.list {
		st, ok := w.store.ReadState(b.entity)
		if !ok {
			continue
		}
		changed := st.Position != b.position ||
			st.Orientation != b.orientation ||
			st.LinVel != b.linVel ||
			st.AngVel != b.angVel
		if !changed {
			continue
		}
		b.position = st.Position
		b.orientation = st.Orientation.Normalize()
		b.linVel = st.LinVel
		b.angVel = st.AngVel
		b.SetAwake(true)
	}
}

// writeBackToStore pushes the frame result for awake dynamic and kinematic
// bodies.
func (w *World) writeBackToStore() {
	if w.store == nil {
		return
	}
	for _, b := range w.bodies.list {
		if b.bodyType == StaticBody || !b.awake {
			continue
		}
		w.store.WriteState(b.entity, BodyState{
			Position:    b.position,
			Orientation: b.orientation,
			LinVel:      b.linVel,
			AngVel:      b.angVel,
			Grounded:    b.grounded,
		})
	}
}

// Raycast returns the nearest solid-body hit along the ray, if any. Trigger
// bodies are transparent to rays. Equidistant hits resolve to the smaller
// entity handle.
func (w *World) Raycast(origin, dir mgl64.Vec3, maxDist float64) (RaycastHit, bool) {
	if dir.Len() == 0 || maxDist <= 0 {
		return RaycastHit{}, false
	}
	dir = dir.Normalize()

	var best RaycastHit
	found := false
	for _, b := range w.bodies.list {
		if b.trigger {
			continue
		}
		dist, normal, ok := shapeRaycast(b.shape, b.transform(), origin, dir, maxDist)
		if !ok {
			continue
		}
		better := !found || dist < best.Distance ||
			(dist == best.Distance && b.entity < best.Entity)
		if better {
			best = RaycastHit{
				Entity:   b.entity,
				Body:     b.handle,
				Point:    origin.Add(dir.Mul(dist)),
				Normal:   normal,
				Distance: dist,
			}
			found = true
		}
	}
	return best, found
}

// QueryAABB calls fn for every body whose shape AABB overlaps the query
// volume. Return false from fn to stop early.
func (w *World) QueryAABB(aabb AABB, fn func(*Body) bool) {
	for _, b := range w.bodies.list {
		bb := b.shape.ComputeAABB(shapeTransform(b.shape, b.transform()))
		if aabb.Overlaps(bb) {
			if !fn(b) {
				return
			}
		}
	}
}
