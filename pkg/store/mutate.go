package store

// AddNodeWithIndex inserts a node into the map and its R-tree entry.
func (s *Store) AddNodeWithIndex(n *Node) {
	s.mu.Lock()
	s.nodes[n.ID] = n
	s.mu.Unlock()

	s.nodeIndex.insert(int64(n.ID), n.Lon, n.Lat, n.Lon, n.Lat)
}

// RemoveNodeWithIndex deletes a node from the map and its R-tree
// entry. It does not touch ways referencing the node or their
// ref-counts — callers that also remove the node from every
// referencing way should use RemoveNodeFromWay for each first.
func (s *Store) RemoveNodeWithIndex(id NodeID) {
	s.mu.Lock()
	delete(s.nodes, id)
	s.mu.Unlock()

	s.nodeIndex.removeByID(int64(id))
}

// AddWayWithIndex inserts a way into the map, mirrors it into the way
// R-tree (skipped if none of its referenced nodes are present), and
// bumps the ref-count of every referenced node.
func (s *Store) AddWayWithIndex(w *Way) {
	s.mu.Lock()
	s.ways[w.ID] = w
	for _, ref := range w.NodeRefs {
		s.bumpRefCountLocked(ref, 1)
	}
	bbox, ok := s.wayBBoxLocked(w)
	s.mu.Unlock()

	if ok {
		s.wayIndex.insert(int64(w.ID), bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat)
	}
}

// RemoveWayWithIndex deletes a way from the map and its R-tree entry,
// and decrements the ref-count of every node it referenced.
func (s *Store) RemoveWayWithIndex(id WayID) {
	s.mu.Lock()
	w, ok := s.ways[id]
	if ok {
		delete(s.ways, id)
		for _, ref := range w.NodeRefs {
			s.bumpRefCountLocked(ref, -1)
		}
	}
	s.mu.Unlock()

	s.wayIndex.removeByID(int64(id))
}

// UpdateNodePosition writes a node's new position, then removes the
// old point entry and inserts the new one in the node R-tree; for
// every way referencing the node, its R-tree entry is removed
// (matched by ID, per the scan-and-match strategy) and re-inserted at
// the recomputed bbox.
func (s *Store) UpdateNodePosition(id NodeID, newLon, newLat float64) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	n.Lon, n.Lat = newLon, newLat

	type wayBox struct {
		id          WayID
		bbox        Bounds
		hasEntities bool
	}
	var affected []wayBox
	for _, w := range s.ways {
		referencesNode := false
		for _, ref := range w.NodeRefs {
			if ref == id {
				referencesNode = true
				break
			}
		}
		if !referencesNode {
			continue
		}
		bbox, has := s.wayBBoxLocked(w)
		affected = append(affected, wayBox{id: w.ID, bbox: bbox, hasEntities: has})
	}
	s.mu.Unlock()

	s.nodeIndex.removeByID(int64(id))
	s.nodeIndex.insert(int64(id), newLon, newLat, newLon, newLat)

	for _, a := range affected {
		s.wayIndex.removeByID(int64(a.id))
		if a.hasEntities {
			s.wayIndex.insert(int64(a.id), a.bbox.MinLon, a.bbox.MinLat, a.bbox.MaxLon, a.bbox.MaxLat)
		}
	}
}

// RemoveNodeFromWay removes every occurrence of nodeID from the way's
// NodeRefs (back-to-front, to keep earlier indices valid while later
// ones are spliced out), decrements the ref-count by the number of
// occurrences removed, and recomputes the way's R-tree bbox. Returns
// the indices the occurrences were removed from, ascending, so the
// caller's undo command can replay them with InsertNodeToWay.
func (s *Store) RemoveNodeFromWay(wayID WayID, nodeID NodeID) []int {
	s.mu.Lock()
	w, ok := s.ways[wayID]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	var removedIndices []int
	for i := len(w.NodeRefs) - 1; i >= 0; i-- {
		if w.NodeRefs[i] == nodeID {
			removedIndices = append(removedIndices, i)
			w.NodeRefs = append(w.NodeRefs[:i], w.NodeRefs[i+1:]...)
		}
	}
	if len(removedIndices) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.bumpRefCountLocked(nodeID, -len(removedIndices))
	bbox, has := s.wayBBoxLocked(w)
	s.mu.Unlock()

	s.wayIndex.removeByID(int64(wayID))
	if has {
		s.wayIndex.insert(int64(wayID), bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat)
	}

	// removedIndices was built back-to-front; reverse it to ascending
	// order, matching insert_node_to_way's expected input.
	for i, j := 0, len(removedIndices)-1; i < j; i, j = i+1, j-1 {
		removedIndices[i], removedIndices[j] = removedIndices[j], removedIndices[i]
	}
	return removedIndices
}

// InsertNodeToWay inserts nodeID into the way's NodeRefs at the given
// positions (ascending), bumps the ref-count accordingly, and
// recomputes the R-tree bbox. The indices are positions in the way as
// it was before RemoveNodeFromWay, so inserting them in ascending
// order puts each occurrence back where it was with no offset
// correction. This is used solely to undo a RemoveNodeFromWay.
func (s *Store) InsertNodeToWay(wayID WayID, nodeID NodeID, indices []int) {
	s.mu.Lock()
	w, ok := s.ways[wayID]
	if !ok {
		s.mu.Unlock()
		return
	}

	for offset, idx := range indices {
		pos := idx
		if pos > len(w.NodeRefs) {
			pos = len(w.NodeRefs)
		}
		w.NodeRefs = append(w.NodeRefs, 0)
		copy(w.NodeRefs[pos+1:], w.NodeRefs[pos:])
		w.NodeRefs[pos] = nodeID
		_ = offset
	}
	s.bumpRefCountLocked(nodeID, len(indices))
	bbox, has := s.wayBBoxLocked(w)
	s.mu.Unlock()

	s.wayIndex.removeByID(int64(wayID))
	if has {
		s.wayIndex.insert(int64(wayID), bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat)
	}
}

// UpdateNodeTags overwrites a node's tag list in place. Tags never
// affect node geometry or the spatial index, so no R-tree maintenance
// is needed.
func (s *Store) UpdateNodeTags(id NodeID, tags []Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Tags = tags
	}
}

// UpdateWayFields overwrites a way's tags and its three tag-derived
// fields (render_feature, layer, is_area) in place. Node geometry is
// untouched, so no R-tree maintenance is needed.
func (s *Store) UpdateWayFields(id WayID, tags []Tag, renderFeature uint16, layer int8, isArea bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.ways[id]; ok {
		w.Tags = tags
		w.RenderFeature = renderFeature
		w.Layer = layer
		w.IsArea = isArea
	}
}

// GenerateLocalID returns a strictly decreasing negative ID for a
// newly created node, atomically.
func (s *Store) GenerateLocalID() int64 {
	return s.nextLocalID.Add(-1)
}
