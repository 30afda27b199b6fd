package store

import (
	"math"
	"sync"
	"sync/atomic"
)

// maxRefCount is the saturation ceiling for node_ref_count: a 16-bit
// unsigned count that sticks at its maximum rather than wrapping.
const maxRefCount = math.MaxUint16

// Store is the in-memory entity store: typed maps of Nodes, Ways and
// Relations, a saturating node reference count, and a dual R-tree
// spatial index over nodes and ways. The three entity maps and the
// ref-count map share a single RWMutex (mu); atomicity is
// per-operation rather than per-key, which is simpler to get right
// than lock-free maps and cheap enough at the scale a single loaded
// PBF extract implies. The two R-trees carry their own RWMutex
// (spatialIndex), so a map read never blocks on a spatial query or
// vice versa.
type Store struct {
	mu        sync.RWMutex
	nodes     map[NodeID]*Node
	ways      map[WayID]*Way
	relations map[RelationID]*Relation
	refCount  map[NodeID]uint16

	nodeIndex spatialIndex
	wayIndex  spatialIndex

	dirty atomic.Bool

	nextLocalID atomic.Int64
}

// New returns an empty store, ready for bulk ingest.
func New() *Store {
	return &Store{
		nodes:     make(map[NodeID]*Node),
		ways:      make(map[WayID]*Way),
		relations: make(map[RelationID]*Relation),
		refCount:  make(map[NodeID]uint16),
	}
}

// --- Bulk ingest ---------------------------------------------------

// InsertNode adds or replaces a node in the map only. It does not
// touch the spatial index; call RebuildIndices once ingest is
// complete.
func (s *Store) InsertNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.dirty.Store(true)
}

// InsertWay adds or replaces a way in the map and bumps the ref-count
// of every node it references. Does not touch the spatial index.
func (s *Store) InsertWay(w *Way) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ways[w.ID] = w
	for _, ref := range w.NodeRefs {
		s.bumpRefCountLocked(ref, 1)
	}
	s.dirty.Store(true)
}

// InsertRelation adds or replaces a relation in the map.
func (s *Store) InsertRelation(r *Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[r.ID] = r
	s.dirty.Store(true)
}

// RebuildIndices snapshots the current nodes and ways, computes each
// way's bbox by walking its node refs (skipping any that are absent),
// and bulk-loads both R-trees from scratch. Clears the dirty flag.
func (s *Store) RebuildIndices() {
	s.mu.RLock()
	nodeEntries := make([]SpatialEntry, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodeEntries = append(nodeEntries, SpatialEntry{
			ID:     int64(n.ID),
			MinLon: n.Lon, MinLat: n.Lat, MaxLon: n.Lon, MaxLat: n.Lat,
		})
	}

	wayEntries := make([]SpatialEntry, 0, len(s.ways))
	for _, w := range s.ways {
		if bbox, ok := s.wayBBoxLocked(w); ok {
			wayEntries = append(wayEntries, SpatialEntry{ID: int64(w.ID), MinLon: bbox.MinLon, MinLat: bbox.MinLat, MaxLon: bbox.MaxLon, MaxLat: bbox.MaxLat})
		}
	}
	s.mu.RUnlock()

	s.nodeIndex.reset(nodeEntries)
	s.wayIndex.reset(wayEntries)
	s.dirty.Store(false)
}

// Dirty reports whether the spatial index needs a RebuildIndices call
// to reflect the latest bulk-ingested entities.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

// wayBBoxLocked computes the tight bbox of a way's currently-present
// referenced nodes. The caller must hold at least s.mu.RLock().
func (s *Store) wayBBoxLocked(w *Way) (Bounds, bool) {
	var b Bounds
	found := false
	for _, ref := range w.NodeRefs {
		n, ok := s.nodes[ref]
		if !ok {
			continue
		}
		if !found {
			b.MinLon, b.MaxLon = n.Lon, n.Lon
			b.MinLat, b.MaxLat = n.Lat, n.Lat
			found = true
			continue
		}
		if n.Lon < b.MinLon {
			b.MinLon = n.Lon
		}
		if n.Lon > b.MaxLon {
			b.MaxLon = n.Lon
		}
		if n.Lat < b.MinLat {
			b.MinLat = n.Lat
		}
		if n.Lat > b.MaxLat {
			b.MaxLat = n.Lat
		}
	}
	return b, found
}

// --- Read ------------------------------------------------------------

// QueryNodesInViewport returns every node whose point lies inside the
// query envelope.
func (s *Store) QueryNodesInViewport(minLon, minLat, maxLon, maxLat float64) []*Node {
	var ids []int64
	s.nodeIndex.search(minLon, minLat, maxLon, maxLat, func(id int64) bool {
		ids = append(ids, id)
		return true
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[NodeID(id)]; ok {
			out = append(out, n)
		}
	}
	return out
}

// QueryWayIDsInViewport returns the IDs of every way whose bbox
// intersects the query envelope.
func (s *Store) QueryWayIDsInViewport(minLon, minLat, maxLon, maxLat float64) []int64 {
	var ids []int64
	s.wayIndex.search(minLon, minLat, maxLon, maxLat, func(id int64) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// GetBounds scans every node (not the R-tree) to compute the
// dataset's envelope. Returns ok=false for an empty store.
func (s *Store) GetBounds() (Bounds, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b Bounds
	found := false
	for _, n := range s.nodes {
		if !found {
			b.MinLon, b.MaxLon = n.Lon, n.Lon
			b.MinLat, b.MaxLat = n.Lat, n.Lat
			found = true
			continue
		}
		if n.Lon < b.MinLon {
			b.MinLon = n.Lon
		}
		if n.Lon > b.MaxLon {
			b.MaxLon = n.Lon
		}
		if n.Lat < b.MinLat {
			b.MinLat = n.Lat
		}
		if n.Lat > b.MaxLat {
			b.MaxLat = n.Lat
		}
	}
	if !found {
		return Bounds{}, false
	}
	b.CenterLon = (b.MinLon + b.MaxLon) / 2
	b.CenterLat = (b.MinLat + b.MaxLat) / 2
	return b, true
}

// Stats reports current entity counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		NodeCount:     len(s.nodes),
		WayCount:      len(s.ways),
		RelationCount: len(s.relations),
	}
}

// FindWaysReferencingNode linearly scans all ways for ones that
// reference nodeID, returning their IDs.
func (s *Store) FindWaysReferencingNode(id NodeID) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for _, w := range s.ways {
		for _, ref := range w.NodeRefs {
			if ref == id {
				out = append(out, int64(w.ID))
				break
			}
		}
	}
	return out
}

// GetNode returns the node with the given ID, if present.
func (s *Store) GetNode(id NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// GetWay returns the way with the given ID, if present.
func (s *Store) GetWay(id WayID) (*Way, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.ways[id]
	return w, ok
}

// GetRelation returns the relation with the given ID, if present.
func (s *Store) GetRelation(id RelationID) (*Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relations[id]
	return r, ok
}

// AllRelations returns every relation in the store. Used by
// parent-relation lookups, which linear-scan relations the same way
// find_ways_referencing_node linear-scans ways.
func (s *Store) AllRelations() []*Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Relation, 0, len(s.relations))
	for _, r := range s.relations {
		out = append(out, r)
	}
	return out
}

// RefCount returns the saturating reference count for a node.
func (s *Store) RefCount(id NodeID) uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refCount[id]
}

func (s *Store) bumpRefCountLocked(id NodeID, delta int) {
	cur := s.refCount[id]
	switch {
	case delta > 0:
		if int(cur)+delta > maxRefCount {
			s.refCount[id] = maxRefCount
		} else {
			s.refCount[id] = cur + uint16(delta)
		}
	case delta < 0:
		if -delta >= int(cur) {
			s.refCount[id] = 0
		} else {
			s.refCount[id] = cur - uint16(-delta)
		}
	}
}
