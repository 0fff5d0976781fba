package physics

import "sort"

// Trigger volumes detect overlap without resolving it. Persistent pair
// bookkeeping turns per-substep overlap snapshots into enter/stay/exit
// transitions. When exactly one body of a pair is the trigger, callbacks
// receive the trigger's entity first.

type triggerPair struct {
	first  Entity
	second Entity
	a, b   Handle
	seen   bool
}

type triggerTable map[pairKey]*triggerPair

// update processes this substep's trigger-involved broadphase pairs and
// fires the transition callbacks in deterministic pair order.
func (t triggerTable) update(w *World, pairs [][2]*Body) {
	for _, p := range t {
		p.seen = false
	}

	type event struct {
		key    pairKey
		first  Entity
		second Entity
	}
	var enters, stays, exits []event

	for _, pr := range pairs {
		a, b := pr[0], pr[1]
		if !overlapBodies(a, b) {
			continue
		}
		// Trigger first; on a trigger-trigger pair the broadphase order
		// (smaller slot index) stands.
		if !a.trigger && b.trigger {
			a, b = b, a
		}
		key := makePairKey(a.handle, b.handle)
		if p, ok := t[key]; ok {
			p.seen = true
			stays = append(stays, event{key, p.first, p.second})
			continue
		}
		p := &triggerPair{first: a.entity, second: b.entity, a: a.handle, b: b.handle, seen: true}
		t[key] = p
		enters = append(enters, event{key, p.first, p.second})
	}

	// Pairs the broadphase stopped reporting: a sleeping body resting inside
	// a trigger is filtered from candidate pairs but has not exited, so the
	// overlap is rechecked directly before firing exit.
	for key, p := range t {
		if p.seen {
			continue
		}
		ba, bb := w.bodies.get(p.a), w.bodies.get(p.b)
		if ba != nil && bb != nil && overlapBodies(ba, bb) {
			p.seen = true
			stays = append(stays, event{key, p.first, p.second})
			continue
		}
		delete(t, key)
		exits = append(exits, event{key, p.first, p.second})
	}

	byKey := func(evs []event) {
		sort.Slice(evs, func(i, j int) bool {
			if evs[i].key.a != evs[j].key.a {
				return evs[i].key.a < evs[j].key.a
			}
			return evs[i].key.b < evs[j].key.b
		})
	}
	byKey(enters)
	byKey(stays)
	byKey(exits)

	if w.OnTriggerEnter != nil {
		for _, e := range enters {
			w.OnTriggerEnter(e.first, e.second)
		}
	}
	if w.OnTriggerStay != nil {
		for _, e := range stays {
			w.OnTriggerStay(e.first, e.second)
		}
	}
	if w.OnTriggerExit != nil {
		for _, e := range exits {
			w.OnTriggerExit(e.first, e.second)
		}
	}
}

// removeBody fires exit for and drops every pair involving the destroyed
// body's slot.
func (t triggerTable) removeBody(w *World, h Handle) {
	for key, p := range t {
		if key.a != h.Index && key.b != h.Index {
			continue
		}
		delete(t, key)
		if w.OnTriggerExit != nil {
			w.OnTriggerExit(p.first, p.second)
		}
	}
}
