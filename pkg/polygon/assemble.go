// Package polygon assembles renderable area geometry: simple polygons
// from closed ways, and stitched multipolygons from relations whose
// member ways share endpoints but were never joined into one way by
// the source data.
package polygon

import (
	"github.com/paulmach/orb"

	"osmeditor/pkg/projection"
	"osmeditor/pkg/render"
	"osmeditor/pkg/store"
)

// AssembledPolygon is a renderable area: the classified feature plus
// its rings, already projected to Mercator meters. Outer and inner
// are kept separate because a multipolygon relation may legitimately
// produce more than one outer ring (e.g. a lake with two disjoint
// islands given as separate outer members); "first = outer" from the
// spec's own rings list is represented here as two explicit slices
// rather than folded into one orb.Polygon.
type AssembledPolygon struct {
	RenderFeature uint16
	Layer         int8
	Outer         []orb.Ring
	Inner         []orb.Ring
}

// NodeLookup is the subset of *store.Store that assembly needs to
// resolve node positions. *store.Store satisfies this automatically.
type NodeLookup interface {
	GetNode(store.NodeID) (*store.Node, bool)
}

// WayLookup is the subset of *store.Store that relation assembly
// needs to resolve member ways. *store.Store satisfies this
// automatically.
type WayLookup interface {
	GetWay(store.WayID) (*store.Way, bool)
}

var areaKeysRequireNonNo = []string{"building", "landuse", "leisure", "amenity", "shop", "tourism", "man_made"}

// IsAreaWay reports whether a way should be treated as an area
// (polygon) rather than a line, per the is-area predicate: it must be
// closed with at least 4 node refs, and its tags must imply closed
// geometry under the rule set below. Roads are never areas unless
// explicitly tagged area=yes.
func IsAreaWay(tags []store.Tag, nodeRefs []store.NodeID) bool {
	if len(nodeRefs) < 4 || nodeRefs[0] != nodeRefs[len(nodeRefs)-1] {
		return false
	}

	if store.Find(tags, "area") == "yes" {
		return true
	}

	for _, key := range areaKeysRequireNonNo {
		if v := store.Find(tags, key); v != "" && v != "no" {
			return true
		}
	}

	if v := store.Find(tags, "natural"); v != "" {
		switch v {
		case "no", "coastline", "tree_row":
			return false
		default:
			return true
		}
	}

	switch store.Find(tags, "waterway") {
	case "riverbank", "dock", "boatyard":
		return true
	}

	return false
}

// AssembleFromClosedWay produces one outer ring from a closed way's
// node coordinates, projected to Mercator. Missing nodes are skipped.
// Returns ok=false if fewer than 4 projected points remain.
func AssembleFromClosedWay(w *store.Way, nodes NodeLookup) (*AssembledPolygon, bool) {
	ring := projectRing(w.NodeRefs, nodes)
	if len(ring) < 4 {
		return nil, false
	}
	return &AssembledPolygon{
		RenderFeature: w.RenderFeature,
		Layer:         w.Layer,
		Outer:         []orb.Ring{ring},
	}, true
}

func projectRing(refs []store.NodeID, nodes NodeLookup) orb.Ring {
	var ring orb.Ring
	for _, ref := range refs {
		n, ok := nodes.GetNode(ref)
		if !ok {
			continue
		}
		x, y := projection.ToMercator(n.Lon, n.Lat)
		ring = append(ring, orb.Point{x, y})
	}
	return ring
}

// AssembleFromRelation assembles a multipolygon relation's outer and
// inner way-members into stitched rings, per the endpoint-walk
// algorithm: non-way members are ignored, members are partitioned by
// role (outer/empty vs inner), and each partition is stitched
// independently. Returns ok=false if no outer ring could be closed.
func AssembleFromRelation(rel *store.Relation, ways WayLookup, nodes NodeLookup) (*AssembledPolygon, bool) {
	var outerWays, innerWays []*store.Way
	for _, m := range rel.Members {
		if m.Kind != store.MemberWay {
			continue
		}
		w, ok := ways.GetWay(store.WayID(m.Ref))
		if !ok {
			continue
		}
		if m.Role == "inner" {
			innerWays = append(innerWays, w)
		} else {
			outerWays = append(outerWays, w)
		}
	}

	outerRefRings := stitch(outerWays)
	innerRefRings := stitch(innerWays)

	outer := projectRings(outerRefRings, nodes)
	inner := projectRings(innerRefRings, nodes)

	if len(outer) == 0 {
		return nil, false
	}

	feature := render.ParseTags(rel.Tags)
	return &AssembledPolygon{
		RenderFeature: feature.Feature,
		Layer:         feature.Layer,
		Outer:         outer,
		Inner:         inner,
	}, true
}

func projectRings(refRings [][]store.NodeID, nodes NodeLookup) []orb.Ring {
	var out []orb.Ring
	for _, refs := range refRings {
		ring := projectRing(refs, nodes)
		if len(ring) >= 4 {
			out = append(out, ring)
		}
	}
	return out
}

type endpointRef struct {
	segment int
	atStart bool
}

// stitch runs the ring-walk algorithm over one partition (all-outer
// or all-inner) of a multipolygon's member ways, returning closed
// node-ref rings. Partial rings that never close are discarded.
func stitch(ways []*store.Way) [][]store.NodeID {
	var segments [][]store.NodeID
	for _, w := range ways {
		if len(w.NodeRefs) >= 2 {
			segments = append(segments, w.NodeRefs)
		}
	}
	if len(segments) == 0 {
		return nil
	}

	endpoints := make(map[store.NodeID][]endpointRef)
	for i, seg := range segments {
		endpoints[seg[0]] = append(endpoints[seg[0]], endpointRef{segment: i, atStart: true})
		endpoints[seg[len(seg)-1]] = append(endpoints[seg[len(seg)-1]], endpointRef{segment: i, atStart: false})
	}

	used := make([]bool, len(segments))
	var rings [][]store.NodeID

	for seed := 0; seed < len(segments); seed++ {
		if used[seed] {
			continue
		}
		used[seed] = true
		ring := append([]store.NodeID(nil), segments[seed]...)

		for {
			if len(ring) >= 4 && ring[0] == ring[len(ring)-1] {
				rings = append(rings, ring)
				break
			}

			tail := ring[len(ring)-1]
			next, found := findContinuation(endpoints[tail], used)
			if !found {
				break
			}
			used[next.segment] = true
			seg := segments[next.segment]

			if next.atStart {
				ring = append(ring, seg[1:]...)
			} else {
				reversed := reverseNodeIDs(seg)
				ring = append(ring, reversed[1:]...)
			}
		}
	}

	return rings
}

func findContinuation(candidates []endpointRef, used []bool) (endpointRef, bool) {
	for _, c := range candidates {
		if !used[c.segment] {
			return c, true
		}
	}
	return endpointRef{}, false
}

func reverseNodeIDs(in []store.NodeID) []store.NodeID {
	out := make([]store.NodeID, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
