package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"osmeditor/pkg/render"
	"osmeditor/pkg/store"
	"osmeditor/pkg/viewport"
)

// TestEmptyStoreQuery is the "Empty store query" scenario: querying a
// freshly created store yields header {0,0,0,0}, total_ways=0,
// total_polygons=0 — 16 + 4 + 4 = 24 bytes, since no nodes contribute
// any bytes and this format writes each count exactly once (unlike an
// intermediate representation that might prefix each section with its
// own redundant count on top of the header's).
func TestEmptyStoreQuery(t *testing.T) {
	s := store.New()
	s.RebuildIndices()

	var buf bytes.Buffer
	if err := EncodeViewport(&buf, s, viewport.Result{}); err != nil {
		t.Fatalf("EncodeViewport: %v", err)
	}
	if got := buf.Len(); got != 24 {
		t.Fatalf("empty viewport response = %d bytes, want 24", got)
	}

	b := buf.Bytes()
	for i := 0; i < 16; i++ {
		if b[i] != 0 {
			t.Fatalf("header byte %d = %d, want 0", i, b[i])
		}
	}
}

// TestTwoNodeRawEncode is the "Two-node encode" scenario: two nodes
// encoded as raw {id, lon, lat} records (24 bytes each, no header)
// yield exactly 48 bytes.
func TestTwoNodeRawEncode(t *testing.T) {
	nodes := []*store.Node{
		{ID: 1, Lon: -0.1278, Lat: 51.5074},
		{ID: 2, Lon: 2.3522, Lat: 48.8566},
	}
	var buf bytes.Buffer
	if err := EncodeNodesRaw(&buf, nodes); err != nil {
		t.Fatalf("EncodeNodesRaw: %v", err)
	}
	if got := buf.Len(); got != 48 {
		t.Fatalf("two-node raw encode = %d bytes, want 48", got)
	}
}

func TestNodeRecordSize(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 1, Lon: 0, Lat: 0})
	s.RebuildIndices()

	res := viewport.Result{Nodes: []viewport.NodeResult{{Node: &store.Node{ID: 1, Lon: 0, Lat: 0}, RefCount: 3}}}
	var buf bytes.Buffer
	if err := EncodeViewport(&buf, s, res); err != nil {
		t.Fatalf("EncodeViewport: %v", err)
	}
	// header(16) + 1 node(32) + total_ways(4) + total_polygons(4) = 56
	if got := buf.Len(); got != 56 {
		t.Fatalf("one-node viewport response = %d bytes, want 56", got)
	}
}

func TestWaysOmittedBelowTwoPoints(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 1, Lon: 0, Lat: 0})
	s.InsertWay(&store.Way{ID: 10, NodeRefs: []store.NodeID{1}}) // only 1 node
	s.RebuildIndices()

	res := viewport.Result{LineWayIDs: []store.WayID{10}}
	var buf bytes.Buffer
	if err := EncodeViewport(&buf, s, res); err != nil {
		t.Fatalf("EncodeViewport: %v", err)
	}
	// header(16) + total_ways(4, value 0 since way omitted) + total_polygons(4) = 24
	if got := buf.Len(); got != 24 {
		t.Fatalf("response with an omitted way = %d bytes, want 24", got)
	}
}

func TestWaysEmittedInAscendingZOrder(t *testing.T) {
	s := store.New()
	s.InsertNode(&store.Node{ID: 1, Lon: 0, Lat: 0})
	s.InsertNode(&store.Node{ID: 2, Lon: 1, Lat: 1})
	// Way 10: building (type_bias -10). Way 11: boundary (type_bias +50).
	s.InsertWay(&store.Way{ID: 10, NodeRefs: []store.NodeID{1, 2}, RenderFeature: uint16(render.BaseBuilding)})
	s.InsertWay(&store.Way{ID: 11, NodeRefs: []store.NodeID{1, 2}, RenderFeature: uint16(render.BaseBoundaryAdministrative)})
	s.RebuildIndices()

	// Deliberately pass in descending Z-order; the encoder must re-sort ascending.
	res := viewport.Result{LineWayIDs: []store.WayID{11, 10}}
	lines := buildLines(res.LineWayIDs, s)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var buf bytes.Buffer
	if err := EncodeViewport(&buf, s, res); err != nil {
		t.Fatalf("EncodeViewport: %v", err)
	}
	// header(16) + total_ways(4), then each way record is
	// way_id(8) + render_feature(2) + point_count(4) + 2 points(32) = 46.
	b := buf.Bytes()
	first := int64(binary.LittleEndian.Uint64(b[20:28]))
	second := int64(binary.LittleEndian.Uint64(b[66:74]))
	if first != 10 || second != 11 {
		t.Fatalf("ways emitted as [%d %d], want [10 11] (ascending Z-order)", first, second)
	}
}
