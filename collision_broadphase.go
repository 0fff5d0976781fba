package physics

import (
	"math"
	"sort"
)

// gridKey addresses one cell of the uniform spatial hash grid.
type gridKey struct {
	x, y, z int32
}

// broadPhase finds candidate colliding pairs with a uniform spatial hash
// grid. The grid is rebuilt every substep from the padded world AABBs of the
// bodies; hash collisions are handled structurally by the bucket slices.
type broadPhase struct {
	cellSize    float64
	invCellSize float64
	cells       map[gridKey][]*Body
	seen        map[pairKey]struct{}
}

func newBroadPhase(cellSize float64) *broadPhase {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	return &broadPhase{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[gridKey][]*Body),
		seen:        make(map[pairKey]struct{}),
	}
}

// paddedAABB is the body's world AABB fattened by a constant margin and by a
// multiple of its per-substep displacement, so fast bodies find their pairs
// before they arrive.
func paddedAABB(b *Body, dt float64) AABB {
	aabb := b.shape.ComputeAABB(shapeTransform(b.shape, b.transform())).Expand(aabbExtension)
	return aabb.ExpandByDisplacement(b.linVel.Mul(dt * aabbVelocityMultiplier))
}

func (bp *broadPhase) cellRange(aabb AABB) (lo, hi gridKey) {
	lo = gridKey{
		x: int32(math.Floor(aabb.Min[0] * bp.invCellSize)),
		y: int32(math.Floor(aabb.Min[1] * bp.invCellSize)),
		z: int32(math.Floor(aabb.Min[2] * bp.invCellSize)),
	}
	hi = gridKey{
		x: int32(math.Floor(aabb.Max[0] * bp.invCellSize)),
		y: int32(math.Floor(aabb.Max[1] * bp.invCellSize)),
		z: int32(math.Floor(aabb.Max[2] * bp.invCellSize)),
	}
	return lo, hi
}

// pairFilter decides whether two bodies can ever produce a pair.
func pairFilter(a, b *Body) bool {
	if a == b {
		return false
	}
	// At least one side must be a body that can move.
	if a.bodyType == StaticBody && b.bodyType == StaticBody {
		return false
	}
	// Sleeping bodies participate only against an awake one, so contact can
	// wake them.
	awakeA := a.awake && a.bodyType != StaticBody
	awakeB := b.awake && b.bodyType != StaticBody
	if !awakeA && !awakeB {
		return false
	}
	// Layer masks; zero means "everything".
	layerA, maskA := a.layer, a.mask
	layerB, maskB := b.layer, b.mask
	if layerA != 0 && maskB != 0 && layerA&maskB == 0 {
		return false
	}
	if layerB != 0 && maskA != 0 && layerB&maskA == 0 {
		return false
	}
	return true
}

// computePairs rebuilds the grid from the given bodies and returns the
// de-duplicated candidate pairs whose padded AABBs share a cell and overlap.
// Pairs are sorted by slot index so the downstream order, and therefore the
// Gauss-Seidel result, is reproducible.
func (bp *broadPhase) computePairs(bodies []*Body, dt float64) [][2]*Body {
	for k := range bp.cells {
		delete(bp.cells, k)
	}
	for k := range bp.seen {
		delete(bp.seen, k)
	}

	entries := make(map[*Body]AABB, len(bodies))

	for _, b := range bodies {
		aabb := paddedAABB(b, dt)
		entries[b] = aabb
		lo, hi := bp.cellRange(aabb)
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for z := lo.z; z <= hi.z; z++ {
					k := gridKey{x, y, z}
					bp.cells[k] = append(bp.cells[k], b)
				}
			}
		}
	}

	var pairs [][2]*Body
	for _, bucket := range bp.cells {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a, b := bucket[i], bucket[j]
				if !pairFilter(a, b) {
					continue
				}
				key := makePairKey(a.handle, b.handle)
				if _, dup := bp.seen[key]; dup {
					continue
				}
				bp.seen[key] = struct{}{}
				if !entries[a].Overlaps(entries[b]) {
					continue
				}
				if a.handle.Index > b.handle.Index {
					a, b = b, a
				}
				pairs = append(pairs, [2]*Body{a, b})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0].handle.Index != pairs[j][0].handle.Index {
			return pairs[i][0].handle.Index < pairs[j][0].handle.Index
		}
		return pairs[i][1].handle.Index < pairs[j][1].handle.Index
	})
	return pairs
}

// queryAABB calls fn for every body whose padded AABB was inserted into a
// cell overlapping the query box during the last computePairs call.
func (bp *broadPhase) queryAABB(aabb AABB, fn func(*Body) bool) {
	lo, hi := bp.cellRange(aabb)
	visited := make(map[*Body]struct{})
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for z := lo.z; z <= hi.z; z++ {
				for _, b := range bp.cells[gridKey{x, y, z}] {
					if _, ok := visited[b]; ok {
						continue
					}
					visited[b] = struct{}{}
					if !fn(b) {
						return
					}
				}
			}
		}
	}
}
