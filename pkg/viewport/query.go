// Package viewport answers "what's visible" queries against the
// entity store: level-of-detail node/way selection for a given bbox
// and zoom, partitioned into line ways and assembled area polygons.
package viewport

import (
	"sort"

	"osmeditor/pkg/polygon"
	"osmeditor/pkg/store"
)

// Request is a viewport query: a geographic envelope plus the zoom
// level driving the LOD policy.
type Request struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	Zoom                           float32
}

// NodeResult is a node with its ref-count attached, as the protocol
// layer needs both.
type NodeResult struct {
	Node      *store.Node
	RefCount  uint16
}

// Polygon is an assembled area way, tagged with the way ID it came
// from (0 would mean relation-sourced, but viewport queries only
// enumerate polygons from closed ways — see the Non-goal on
// relation-derived polygons in spatial queries).
type Polygon struct {
	WayID   store.WayID
	Feature polygon.AssembledPolygon
}

// Result is the selected, LOD-filtered contents of a viewport.
type Result struct {
	Nodes       []NodeResult
	LineWayIDs  []store.WayID
	Polygons    []Polygon
	Truncated   bool
}

type lodBand struct {
	minZoom, maxZoom float32
	showNodes        bool
	minRefCount       uint16
	maxNodes, maxWays int
}

// lodTable implements the LOD policy table exactly: zoom bands map to
// whether nodes are shown at all, the minimum ref-count a shown node
// must clear, and the node/way result caps.
var lodTable = []lodBand{
	{0, 8, false, 0, 0, 5_000},
	{9, 11, false, 0, 0, 15_000},
	{12, 14, false, 0, 0, 40_000},
	{15, 17, false, 0, 0, 80_000},
	{18, 19, true, 2, 50_000, 150_000},
	{20, 21, true, 0, 100_000, 150_000},
	{22, 24, true, 0, 300_000, 250_000},
	{25, 1 << 20, true, 0, 300_000, 400_000},
}

// truncateNodes discards from the tail past max, reporting whether it
// had to.
func truncateNodes(nodes []NodeResult, max int) ([]NodeResult, bool) {
	if len(nodes) > max {
		return nodes[:max], true
	}
	return nodes, false
}

// truncateWayIDs discards from the tail past max, reporting whether
// it had to.
func truncateWayIDs(ids []int64, max int) ([]int64, bool) {
	if len(ids) > max {
		return ids[:max], true
	}
	return ids, false
}

// lookupLOD returns the band with the highest minZoom not above zoom,
// so a fractional zoom such as 19.5 uses the 18–19 band.
func lookupLOD(zoom float32) lodBand {
	band := lodTable[0]
	for _, b := range lodTable {
		if zoom >= b.minZoom {
			band = b
		}
	}
	return band
}

// Query runs a viewport query against s: range-queries both spatial
// indices, applies the LOD policy's node filter/truncation and way
// truncation, partitions ways into line/area, and assembles polygons
// for the surviving area ways.
func Query(s *store.Store, req Request) Result {
	band := lookupLOD(req.Zoom)

	var result Result

	if band.showNodes {
		candidates := s.QueryNodesInViewport(req.MinLon, req.MinLat, req.MaxLon, req.MaxLat)
		nodes := make([]NodeResult, 0, len(candidates))
		for _, n := range candidates {
			rc := s.RefCount(n.ID)
			if rc < band.minRefCount {
				continue
			}
			nodes = append(nodes, NodeResult{Node: n, RefCount: rc})
		}
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].RefCount > nodes[j].RefCount
		})
		var nodesTruncated bool
		nodes, nodesTruncated = truncateNodes(nodes, band.maxNodes)
		result.Nodes = nodes
		result.Truncated = result.Truncated || nodesTruncated
	}

	wayIDs := s.QueryWayIDsInViewport(req.MinLon, req.MinLat, req.MaxLon, req.MaxLat)
	var waysTruncated bool
	wayIDs, waysTruncated = truncateWayIDs(wayIDs, band.maxWays)
	result.Truncated = result.Truncated || waysTruncated

	for _, id := range wayIDs {
		w, ok := s.GetWay(store.WayID(id))
		if !ok {
			continue
		}
		if !w.IsArea {
			result.LineWayIDs = append(result.LineWayIDs, w.ID)
			continue
		}
		assembled, ok := polygon.AssembleFromClosedWay(w, s)
		if !ok {
			continue
		}
		result.Polygons = append(result.Polygons, Polygon{WayID: w.ID, Feature: *assembled})
	}

	return result
}
