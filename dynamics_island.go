package physics

// Islands are the connected components of the contact/joint graph over
// non-static bodies. They are rebuilt every substep with union-find, then
// sleep is decided per island: an island sleeps only when every member has
// been slow for the configured duration, and waking any member wakes all.

// unionFind is a plain union-find with path halving and union by size,
// sized to the dense body list of the current substep.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// updateIslands links bodies through manifolds and joints, then runs the
// sleep/wake evaluation. Static bodies never join an island: they would
// otherwise glue unrelated piles into one island through the ground.
func updateIslands(bodies []*Body, manifolds []*ContactManifold, joints []Joint, h float64, cfg *PhysicsWorldConfig) {
	for i, b := range bodies {
		b.islandIndex = i
	}

	uf := newUnionFind(len(bodies))
	link := func(a, b *Body) {
		if a.bodyType == StaticBody || b.bodyType == StaticBody {
			return
		}
		uf.union(a.islandIndex, b.islandIndex)
	}
	for _, m := range manifolds {
		link(m.BodyA, m.BodyB)
	}
	for _, j := range joints {
		link(j.BodyA(), j.BodyB())
	}

	// Per-root aggregates: whether any member must stay awake, and the
	// smallest accumulated still-time in the island.
	type islandState struct {
		anyAwakeForced bool
		minSleepTime   float64
		seen           bool
	}
	states := make(map[int]*islandState)

	linTolSqr := cfg.SleepLinearThreshold * cfg.SleepLinearThreshold
	angTolSqr := cfg.SleepAngularThreshold * cfg.SleepAngularThreshold

	for _, b := range bodies {
		if b.bodyType == StaticBody {
			continue
		}
		root := uf.find(b.islandIndex)
		st := states[root]
		if st == nil {
			st = &islandState{minSleepTime: maxFloat}
			states[root] = st
		}
		st.seen = true

		// Kinematic bodies with velocity keep their island awake; a moving
		// platform must not let its passengers sleep.
		moving := b.linVel.LenSqr() > linTolSqr || b.angVel.LenSqr() > angTolSqr
		if b.bodyType == KinematicBody && moving {
			st.anyAwakeForced = true
			continue
		}

		if !b.awake {
			continue
		}
		if moving {
			b.sleepTime = 0
		} else {
			b.sleepTime += h
		}
		if st.minSleepTime > b.sleepTime {
			st.minSleepTime = b.sleepTime
		}
		if b.sleepTime == 0 {
			st.anyAwakeForced = true
		}
	}

	for _, b := range bodies {
		if b.bodyType == StaticBody {
			continue
		}
		root := uf.find(b.islandIndex)
		st := states[root]
		if st == nil || !st.seen {
			continue
		}

		switch {
		case st.anyAwakeForced:
			// A moving member keeps the whole island awake; members that
			// were asleep are woken here, which is how a new contact with
			// an awake body propagates through the pile.
			if !b.awake {
				b.SetAwake(true)
			}
		case st.minSleepTime >= cfg.SleepDuration && b.bodyType == DynamicBody:
			b.SetAwake(false)
		}
	}
}
