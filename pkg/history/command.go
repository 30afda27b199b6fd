// Package history implements undoable editing via the command
// pattern: every mutation to the store is captured as a Command with
// an explicit inverse, and a Manager drives undo/redo stacks
// over it.
package history

import "osmeditor/pkg/store"

// Result is what apply/undo report back to the caller.
type Result struct {
	Success     bool
	NeedsRedraw bool
	Message     string
}

// Command is one undoable edit. Apply and Undo each run against the
// store directly, holding only the locks the store's own mutation
// primitives take — the history manager's stack locks are never held
// while a command runs.
type Command interface {
	Apply(s *store.Store) Result
	Undo(s *store.Store) Result
	Description() string
}

// --- UpdateWayTags ---------------------------------------------------

// UpdateWayTags replaces a way's tags (and its three tag-derived
// fields) and restores the previous values on undo.
type UpdateWayTags struct {
	WayID store.WayID

	OldTags          []store.Tag
	OldRenderFeature uint16
	OldLayer         int8
	OldIsArea        bool

	NewTags          []store.Tag
	NewRenderFeature uint16
	NewLayer         int8
	NewIsArea        bool
}

func (c *UpdateWayTags) Apply(s *store.Store) Result {
	if _, ok := s.GetWay(c.WayID); !ok {
		return Result{Message: "way not found"}
	}
	s.UpdateWayFields(c.WayID, c.NewTags, c.NewRenderFeature, c.NewLayer, c.NewIsArea)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *UpdateWayTags) Undo(s *store.Store) Result {
	if _, ok := s.GetWay(c.WayID); !ok {
		return Result{Message: "way not found"}
	}
	s.UpdateWayFields(c.WayID, c.OldTags, c.OldRenderFeature, c.OldLayer, c.OldIsArea)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *UpdateWayTags) Description() string { return "update way tags" }

// --- UpdateNodeTags --------------------------------------------------

// UpdateNodeTags replaces a node's tags and restores the previous
// tags on undo. Tags never drive a node's geometry, so no derived
// fields are involved.
type UpdateNodeTags struct {
	NodeID  store.NodeID
	OldTags []store.Tag
	NewTags []store.Tag
}

func (c *UpdateNodeTags) Apply(s *store.Store) Result {
	if _, ok := s.GetNode(c.NodeID); !ok {
		return Result{Message: "node not found"}
	}
	s.UpdateNodeTags(c.NodeID, c.NewTags)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *UpdateNodeTags) Undo(s *store.Store) Result {
	if _, ok := s.GetNode(c.NodeID); !ok {
		return Result{Message: "node not found"}
	}
	s.UpdateNodeTags(c.NodeID, c.OldTags)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *UpdateNodeTags) Description() string { return "update node tags" }

// --- MoveNode ----------------------------------------------------------

// MoveNode repositions a node and moves it back to OldLon/OldLat on
// undo, via update_node_position both ways so every referencing way's
// R-tree bbox is recomputed each time.
type MoveNode struct {
	NodeID             store.NodeID
	OldLon, OldLat     float64
	NewLon, NewLat     float64
}

func (c *MoveNode) Apply(s *store.Store) Result {
	if _, ok := s.GetNode(c.NodeID); !ok {
		return Result{Message: "node not found"}
	}
	s.UpdateNodePosition(c.NodeID, c.NewLon, c.NewLat)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *MoveNode) Undo(s *store.Store) Result {
	if _, ok := s.GetNode(c.NodeID); !ok {
		return Result{Message: "node not found"}
	}
	s.UpdateNodePosition(c.NodeID, c.OldLon, c.OldLat)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *MoveNode) Description() string { return "move node" }

// --- AddNode -----------------------------------------------------------

// AddNode inserts a new node; undo removes it again.
type AddNode struct {
	Node *store.Node
}

func (c *AddNode) Apply(s *store.Store) Result {
	s.AddNodeWithIndex(c.Node)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *AddNode) Undo(s *store.Store) Result {
	s.RemoveNodeWithIndex(c.Node.ID)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *AddNode) Description() string { return "add node" }

// --- DeleteWay -----------------------------------------------------------

// DeleteWay removes a way; undo re-inserts the captured way value
// verbatim (including its node_refs, tags and derived fields).
type DeleteWay struct {
	Way *store.Way
}

func (c *DeleteWay) Apply(s *store.Store) Result {
	if _, ok := s.GetWay(c.Way.ID); !ok {
		return Result{Message: "way not found"}
	}
	s.RemoveWayWithIndex(c.Way.ID)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *DeleteWay) Undo(s *store.Store) Result {
	s.AddWayWithIndex(c.Way)
	return Result{Success: true, NeedsRedraw: true}
}

func (c *DeleteWay) Description() string { return "delete way" }

// --- DeleteNode (cascading) ----------------------------------------------

// WayReference is one way's recorded occurrences of the node being
// deleted, captured before the delete so undo can replay them via
// insert_node_to_way.
type WayReference struct {
	WayID   store.WayID
	Indices []int
}

// DeleteNode removes a node and, for every way that would drop below
// 2 nodes as a result, cascades into removing that way too. The
// dispatcher constructing this command is responsible for
// pre-computing WayReferences and CascadedWays (store.FindWaysReferencingNode
// plus a length check) — the command itself only replays the
// dispatcher's plan, forward and in reverse.
type DeleteNode struct {
	Node          *store.Node
	WayReferences []WayReference
	CascadedWays  []*store.Way
}

func (c *DeleteNode) Apply(s *store.Store) Result {
	if _, ok := s.GetNode(c.Node.ID); !ok {
		return Result{Message: "node not found"}
	}
	for _, ref := range c.WayReferences {
		s.RemoveNodeFromWay(ref.WayID, c.Node.ID)
	}
	for _, w := range c.CascadedWays {
		s.RemoveWayWithIndex(w.ID)
	}
	s.RemoveNodeWithIndex(c.Node.ID)
	return Result{Success: true, NeedsRedraw: true}
}

// Undo reverses strictly in the order spec.md names: re-insert the
// node, re-insert each cascaded way, then reinsert the node into every
// remaining referencing way at its recorded indices.
func (c *DeleteNode) Undo(s *store.Store) Result {
	s.AddNodeWithIndex(c.Node)
	for _, w := range c.CascadedWays {
		s.AddWayWithIndex(w)
	}
	for _, ref := range c.WayReferences {
		s.InsertNodeToWay(ref.WayID, c.Node.ID, ref.Indices)
	}
	return Result{Success: true, NeedsRedraw: true}
}

func (c *DeleteNode) Description() string { return "delete node" }

// PlanDeleteNode is the dispatcher-side helper spec.md describes:
// given the node to delete, it finds every way referencing it,
// records each way's occurrence indices, and partitions those ways
// into the ones that survive (node removed) and the ones that would
// drop below 2 nodes and must cascade-delete.
func PlanDeleteNode(s *store.Store, node *store.Node) *DeleteNode {
	referencingWayIDs := s.FindWaysReferencingNode(node.ID)

	var refs []WayReference
	var cascaded []*store.Way

	for _, id := range referencingWayIDs {
		w, ok := s.GetWay(store.WayID(id))
		if !ok {
			continue
		}

		var indices []int
		for i, ref := range w.NodeRefs {
			if ref == node.ID {
				indices = append(indices, i)
			}
		}

		remaining := len(w.NodeRefs) - len(indices)
		if remaining < 2 {
			wayCopy := *w
			wayCopy.NodeRefs = append([]store.NodeID(nil), w.NodeRefs...)
			cascaded = append(cascaded, &wayCopy)
			continue
		}

		refs = append(refs, WayReference{WayID: w.ID, Indices: indices})
	}

	return &DeleteNode{Node: node, WayReferences: refs, CascadedWays: cascaded}
}
