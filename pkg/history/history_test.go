package history

import (
	"testing"

	"osmeditor/pkg/store"
)

// TestMoveNodeUndoRoundTrip is the "Move-undo-round-trip" scenario:
// node {id:7, lon:1.0, lat:2.0} with way W=[7,8], moving node 7 to
// lon/lat (3.0, 4.0) then undo yields node 7 back at (1.0, 2.0) and
// W's R-tree bbox back at its original value.
func TestMoveNodeUndoRoundTrip(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 7, Lon: 1.0, Lat: 2.0})
	s.InsertNode(&store.Node{ID: 8, Lon: 1.5, Lat: 2.5})
	s.InsertWay(&store.Way{ID: 100, NodeRefs: []store.NodeID{7, 8}})
	s.RebuildIndices()

	boundsBefore, _ := s.GetBounds()

	mgr := New()
	newLon, newLat := 3.0, 4.0
	cmd := &MoveNode{NodeID: 7, OldLon: 1.0, OldLat: 2.0, NewLon: newLon, NewLat: newLat}

	res := mgr.Execute(s, cmd)
	if !res.Success {
		t.Fatalf("Execute(MoveNode) failed: %+v", res)
	}
	moved, _ := s.GetNode(7)
	if moved.Lon != newLon || moved.Lat != newLat {
		t.Fatalf("node not moved: %+v", moved)
	}

	undoRes := mgr.Undo(s)
	if !undoRes.Success {
		t.Fatalf("Undo failed: %+v", undoRes)
	}

	restored, _ := s.GetNode(7)
	if restored.Lon != 1.0 || restored.Lat != 2.0 {
		t.Fatalf("node not restored: %+v", restored)
	}

	boundsAfter, _ := s.GetBounds()
	if boundsAfter != boundsBefore {
		t.Fatalf("bounds after undo = %+v, want %+v", boundsAfter, boundsBefore)
	}

	// This envelope touches W's original bbox (1,2)-(1.5,2.5) near node 7
	// but not the moved bbox (1.5,2.5)-(3,4).
	if ids := s.QueryWayIDsInViewport(0.9, 1.9, 1.2, 2.2); len(ids) != 1 || ids[0] != 100 {
		t.Fatalf("way R-tree bbox not restored after undo: ids = %v", ids)
	}

	if mgr.UndoCount() != 0 || mgr.RedoCount() != 1 {
		t.Fatalf("undo_count=%d redo_count=%d, want 0,1", mgr.UndoCount(), mgr.RedoCount())
	}
}

// TestDeleteNodeCascade is the "Delete-node cascade" scenario: way
// W=[5,6] with nodes 5,6 present; delete_node(6) removes node 6,
// removes W from the store and way-index (cascade), and subsequent
// undo restores node 6, then W, then node 6's position in W; store
// returns to the pre-delete state.
func TestDeleteNodeCascade(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 5, Lon: 0, Lat: 0})
	s.InsertNode(&store.Node{ID: 6, Lon: 1, Lat: 1})
	s.InsertWay(&store.Way{ID: 200, NodeRefs: []store.NodeID{5, 6}})
	s.RebuildIndices()

	node6, _ := s.GetNode(6)
	mgr := New()
	cmd := PlanDeleteNode(s, node6)

	if len(cmd.CascadedWays) != 1 || cmd.CascadedWays[0].ID != 200 {
		t.Fatalf("expected way 200 to cascade, got %+v", cmd.CascadedWays)
	}
	if len(cmd.WayReferences) != 0 {
		t.Fatalf("expected no surviving way references, got %+v", cmd.WayReferences)
	}

	res := mgr.Execute(s, cmd)
	if !res.Success {
		t.Fatalf("Execute(DeleteNode) failed: %+v", res)
	}
	if _, ok := s.GetNode(6); ok {
		t.Fatal("node 6 should be gone after delete")
	}
	if _, ok := s.GetWay(200); ok {
		t.Fatal("way 200 should be cascade-deleted")
	}

	undoRes := mgr.Undo(s)
	if !undoRes.Success {
		t.Fatalf("Undo(DeleteNode) failed: %+v", undoRes)
	}

	restoredNode, ok := s.GetNode(6)
	if !ok || restoredNode.Lon != 1 || restoredNode.Lat != 1 {
		t.Fatalf("node 6 not restored: %+v ok=%v", restoredNode, ok)
	}
	restoredWay, ok := s.GetWay(200)
	if !ok || len(restoredWay.NodeRefs) != 2 || restoredWay.NodeRefs[1] != 6 {
		t.Fatalf("way 200 not restored with node 6 in place: %+v ok=%v", restoredWay, ok)
	}
}

func TestExecuteClearsRedoStack(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 1, Lon: 0, Lat: 0})
	s.RebuildIndices()

	mgr := New()
	move := &MoveNode{NodeID: 1, OldLon: 0, OldLat: 0, NewLon: 1, NewLat: 1}
	mgr.Execute(s, move)
	mgr.Undo(s)
	if mgr.RedoCount() != 1 {
		t.Fatalf("redo_count = %d, want 1", mgr.RedoCount())
	}

	move2 := &MoveNode{NodeID: 1, OldLon: 0, OldLat: 0, NewLon: 2, NewLat: 2}
	mgr.Execute(s, move2)
	if mgr.RedoCount() != 0 {
		t.Fatalf("redo_count after new Execute = %d, want 0", mgr.RedoCount())
	}
}

func TestFailedCommandNotPushed(t *testing.T) {
	s := store.New()
	s.RebuildIndices()

	mgr := New()
	cmd := &MoveNode{NodeID: 999, OldLon: 0, OldLat: 0, NewLon: 1, NewLat: 1}
	res := mgr.Execute(s, cmd)
	if res.Success {
		t.Fatal("expected failure moving a nonexistent node")
	}
	if mgr.UndoCount() != 0 {
		t.Fatalf("undo_count = %d, want 0 after a failed command", mgr.UndoCount())
	}
}

func TestAddNodeUndo(t *testing.T) {
	s := store.New()
	s.RebuildIndices()

	mgr := New()
	n := &store.Node{ID: -1, Lon: 10, Lat: 20}
	cmd := &AddNode{Node: n}

	mgr.Execute(s, cmd)
	if _, ok := s.GetNode(-1); !ok {
		t.Fatal("node not added")
	}

	mgr.Undo(s)
	if _, ok := s.GetNode(-1); ok {
		t.Fatal("node should be removed after undo")
	}
}

func TestKUndosRestoreInitialState(t *testing.T) {
	// Property 4: after c1...ck followed by k undos, the store equals
	// its initial state.
	s := store.New()
	s.InsertNode(&store.Node{ID: 1, Lon: 0, Lat: 0})
	s.RebuildIndices()

	mgr := New()
	initialStats := s.Stats()

	mgr.Execute(s, &UpdateNodeTags{NodeID: 1, OldTags: nil, NewTags: []store.Tag{{Key: "amenity", Value: "cafe"}}})
	mgr.Execute(s, &MoveNode{NodeID: 1, OldLon: 0, OldLat: 0, NewLon: 5, NewLat: 5})

	mgr.Undo(s)
	mgr.Undo(s)

	n, _ := s.GetNode(1)
	if len(n.Tags) != 0 {
		t.Fatalf("tags not restored: %+v", n.Tags)
	}
	if n.Lon != 0 || n.Lat != 0 {
		t.Fatalf("position not restored: %+v", n)
	}
	if s.Stats() != initialStats {
		t.Fatalf("stats = %+v, want %+v", s.Stats(), initialStats)
	}
}
