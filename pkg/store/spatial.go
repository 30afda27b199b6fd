package store

import (
	"sync"

	"github.com/tidwall/rtree"
)

// spatialIndex wraps a tidwall/rtree.RTree behind a reader/writer
// lock: many concurrent range queries, one writer at a time. Entries
// are keyed by an int64 ID carried as the tree's value; there is no
// way to look an entry up by ID other than Scan, which is exactly
// the primitive the "scan-and-match by ID" deletion strategy needs.
type spatialIndex struct {
	mu sync.RWMutex
	tr rtree.RTree
}

func (s *spatialIndex) insert(id int64, minLon, minLat, maxLon, maxLat float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, id)
}

// removeByID scans every entry in the tree looking for one whose
// value equals id, and deletes it using the bbox recorded alongside
// it. Returns false if no matching entry was found (already absent,
// or never indexed because none of the way's nodes were present).
func (s *spatialIndex) removeByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var min, max [2]float64
	found := false
	s.tr.Scan(func(emin, emax [2]float64, value interface{}) bool {
		if value.(int64) == id {
			min, max = emin, emax
			found = true
			return false
		}
		return true
	})
	if !found {
		return false
	}
	s.tr.Delete(min, max, id)
	return true
}

// search range-queries the tree for entries intersecting
// [minLon,minLat]-[maxLon,maxLat], invoking fn with each matching ID.
// Stop early by returning false from fn.
func (s *spatialIndex) search(minLon, minLat, maxLon, maxLat float64, fn func(id int64) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.tr.Search([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, func(_, _ [2]float64, value interface{}) bool {
		return fn(value.(int64))
	})
}

// reset discards all entries and bulk-loads fresh ones. Used by
// rebuild_indices, which recomputes every bbox from scratch.
func (s *spatialIndex) reset(entries []SpatialEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tr = rtree.RTree{}
	for _, e := range entries {
		s.tr.Insert([2]float64{e.MinLon, e.MinLat}, [2]float64{e.MaxLon, e.MaxLat}, e.ID)
	}
}

func (s *spatialIndex) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tr.Len()
}
