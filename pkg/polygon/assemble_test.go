package polygon

import (
	"testing"

	"osmeditor/pkg/store"
)

type fakeNodes map[store.NodeID]*store.Node

func (f fakeNodes) GetNode(id store.NodeID) (*store.Node, bool) {
	n, ok := f[id]
	return n, ok
}

type fakeWays map[store.WayID]*store.Way

func (f fakeWays) GetWay(id store.WayID) (*store.Way, bool) {
	w, ok := f[id]
	return w, ok
}

func tag(k, v string) store.Tag { return store.Tag{Key: k, Value: v} }

func TestIsAreaWayRequiresClosedRing(t *testing.T) {
	open := []store.NodeID{1, 2, 3}
	if IsAreaWay([]store.Tag{tag("building", "yes")}, open) {
		t.Error("open way should never be an area")
	}

	tooShort := []store.NodeID{1, 2, 1}
	if IsAreaWay([]store.Tag{tag("building", "yes")}, tooShort) {
		t.Error("closed ring under 4 refs should not be an area")
	}
}

func TestIsAreaWayRules(t *testing.T) {
	closed := []store.NodeID{1, 2, 3, 1}
	cases := []struct {
		name string
		tags []store.Tag
		want bool
	}{
		{"explicit area=yes", []store.Tag{tag("area", "yes")}, true},
		{"building", []store.Tag{tag("building", "yes")}, true},
		{"building=no excluded", []store.Tag{tag("building", "no")}, false},
		{"natural=water", []store.Tag{tag("natural", "water")}, true},
		{"natural=coastline excluded", []store.Tag{tag("natural", "coastline")}, false},
		{"natural=tree_row excluded", []store.Tag{tag("natural", "tree_row")}, false},
		{"waterway=riverbank", []store.Tag{tag("waterway", "riverbank")}, true},
		{"waterway=stream not area", []store.Tag{tag("waterway", "stream")}, false},
		{"plain highway not area", []store.Tag{tag("highway", "residential")}, false},
		{"highway with area=yes", []store.Tag{tag("highway", "pedestrian"), tag("area", "yes")}, true},
		{"no tags", nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsAreaWay(c.tags, closed); got != c.want {
				t.Errorf("IsAreaWay(%v) = %v, want %v", c.tags, got, c.want)
			}
		})
	}
}

func TestAssembleFromClosedWay(t *testing.T) {
	nodes := fakeNodes{
		1: {ID: 1, Lon: 0, Lat: 0},
		2: {ID: 2, Lon: 1, Lat: 0},
		3: {ID: 3, Lon: 1, Lat: 1},
	}
	w := &store.Way{ID: 10, NodeRefs: []store.NodeID{1, 2, 3, 1}, RenderFeature: 7, Layer: 2}

	poly, ok := AssembleFromClosedWay(w, nodes)
	if !ok {
		t.Fatal("expected assembly to succeed")
	}
	if len(poly.Outer) != 1 || len(poly.Outer[0]) != 4 {
		t.Fatalf("outer ring = %v, want 4 points", poly.Outer)
	}
	if poly.RenderFeature != 7 || poly.Layer != 2 {
		t.Errorf("feature/layer not carried through: %+v", poly)
	}
}

func TestAssembleFromClosedWaySkipsMissingNodes(t *testing.T) {
	nodes := fakeNodes{
		1: {ID: 1, Lon: 0, Lat: 0},
		2: {ID: 2, Lon: 1, Lat: 0},
		// node 3 missing
	}
	w := &store.Way{ID: 10, NodeRefs: []store.NodeID{1, 2, 3, 1}}
	_, ok := AssembleFromClosedWay(w, nodes)
	if ok {
		t.Fatal("3 remaining points should be rejected (< 4)")
	}
}

// TestMultipolygonStitch is the "Multipolygon stitch" scenario: two
// outer ways A=[1,2,3], B=[3,4,1] sharing endpoints 1 and 3 stitch
// into one closed ring [1,2,3,4,1].
func TestMultipolygonStitch(t *testing.T) {
	nodes := fakeNodes{
		1: {ID: 1, Lon: 0, Lat: 0},
		2: {ID: 2, Lon: 1, Lat: 0},
		3: {ID: 3, Lon: 1, Lat: 1},
		4: {ID: 4, Lon: 0, Lat: 1},
	}
	ways := fakeWays{
		100: {ID: 100, NodeRefs: []store.NodeID{1, 2, 3}},
		101: {ID: 101, NodeRefs: []store.NodeID{3, 4, 1}},
	}
	rel := &store.Relation{
		ID:   1,
		Tags: []store.Tag{tag("type", "multipolygon"), tag("natural", "water")},
		Members: []store.RelationMember{
			{Kind: store.MemberWay, Ref: 100, Role: "outer"},
			{Kind: store.MemberWay, Ref: 101, Role: "outer"},
		},
	}

	poly, ok := AssembleFromRelation(rel, ways, nodes)
	if !ok {
		t.Fatal("expected assembly to succeed")
	}
	if len(poly.Outer) != 1 {
		t.Fatalf("expected one stitched outer ring, got %d", len(poly.Outer))
	}
	if got := len(poly.Outer[0]); got != 5 {
		t.Fatalf("stitched ring has %d points, want 5 (4 unique + closing)", got)
	}
}

func TestMultipolygonInnerRingsPartitioned(t *testing.T) {
	nodes := fakeNodes{
		1: {ID: 1, Lon: 0, Lat: 0}, 2: {ID: 2, Lon: 10, Lat: 0},
		3: {ID: 3, Lon: 10, Lat: 10}, 4: {ID: 4, Lon: 0, Lat: 10},
		5: {ID: 5, Lon: 4, Lat: 4}, 6: {ID: 6, Lon: 6, Lat: 4},
		7: {ID: 7, Lon: 6, Lat: 6}, 8: {ID: 8, Lon: 4, Lat: 6},
	}
	ways := fakeWays{
		1: {ID: 1, NodeRefs: []store.NodeID{1, 2, 3, 4, 1}},
		2: {ID: 2, NodeRefs: []store.NodeID{5, 6, 7, 8, 5}},
	}
	rel := &store.Relation{
		ID:   1,
		Tags: []store.Tag{tag("type", "multipolygon"), tag("landuse", "residential")},
		Members: []store.RelationMember{
			{Kind: store.MemberWay, Ref: 1, Role: "outer"},
			{Kind: store.MemberWay, Ref: 2, Role: "inner"},
		},
	}
	poly, ok := AssembleFromRelation(rel, ways, nodes)
	if !ok {
		t.Fatal("expected assembly to succeed")
	}
	if len(poly.Outer) != 1 || len(poly.Inner) != 1 {
		t.Fatalf("outer=%d inner=%d, want 1 and 1", len(poly.Outer), len(poly.Inner))
	}
}

func TestMultipolygonNoOuterProducesNoPolygon(t *testing.T) {
	rel := &store.Relation{
		ID:   1,
		Tags: []store.Tag{tag("type", "multipolygon")},
	}
	_, ok := AssembleFromRelation(rel, fakeWays{}, fakeNodes{})
	if ok {
		t.Error("relation with no resolvable outer members should produce no polygon")
	}
}

func TestMultipolygonIgnoresNonWayMembers(t *testing.T) {
	nodes := fakeNodes{
		1: {ID: 1, Lon: 0, Lat: 0}, 2: {ID: 2, Lon: 1, Lat: 0},
		3: {ID: 3, Lon: 1, Lat: 1}, 4: {ID: 4, Lon: 0, Lat: 1},
	}
	ways := fakeWays{
		1: {ID: 1, NodeRefs: []store.NodeID{1, 2, 3, 4, 1}},
	}
	rel := &store.Relation{
		ID:   1,
		Tags: []store.Tag{tag("type", "multipolygon")},
		Members: []store.RelationMember{
			{Kind: store.MemberWay, Ref: 1, Role: "outer"},
			{Kind: store.MemberNode, Ref: 99, Role: "label"},
		},
	}
	poly, ok := AssembleFromRelation(rel, ways, nodes)
	if !ok || len(poly.Outer) != 1 {
		t.Fatalf("expected exactly one outer ring ignoring the node member, got ok=%v outer=%v", ok, poly)
	}
}
