// Package hittest implements interactive feature picking: given a
// click point in projected (Mercator) meters, find the nearest node or
// way within tolerance.
package hittest

import (
	"math"

	"osmeditor/pkg/projection"
	"osmeditor/pkg/store"
)

// Kind distinguishes what pick_feature resolved to.
type Kind int

const (
	KindNone Kind = iota
	KindNode
	KindWay
)

// Result is the outcome of a pick: Kind plus the matched entity's ID
// when Kind is not KindNone.
type Result struct {
	Kind Kind
	ID   int64
}

// Request is a pick_feature call: a click point in Mercator meters, a
// tolerance radius in meters, and the current zoom (which gates node
// candidacy the same way a viewport query's LOD policy does).
type Request struct {
	MercX, MercY float64
	ToleranceM   float64
	Zoom         float32
}

// Pick resolves a click to the nearest node (if any qualifies at this
// zoom and is within tolerance), else the nearest way whose bbox
// contains the click point and whose nearest segment is within
// tolerance, else KindNone.
//
// Node candidacy: below zoom 18, no nodes are candidates at all.
// Between 18 and 20 (exclusive), only junction nodes (ref_count >= 2)
// are candidates. At zoom 20 and above, every node is a candidate.
func Pick(s *store.Store, req Request) Result {
	if n, ok := pickNode(s, req); ok {
		return Result{Kind: KindNode, ID: int64(n)}
	}
	if w, ok := pickWay(s, req); ok {
		return Result{Kind: KindWay, ID: int64(w)}
	}
	return Result{Kind: KindNone}
}

func pickNode(s *store.Store, req Request) (store.NodeID, bool) {
	if req.Zoom < 18 {
		return 0, false
	}
	junctionOnly := req.Zoom < 20

	lon, lat := projection.ToLonLat(req.MercX, req.MercY)
	dLon, dLat := metersToDegrees(req.ToleranceM, lat)
	candidates := s.QueryNodesInViewport(lon-dLon, lat-dLat, lon+dLon, lat+dLat)

	var best store.NodeID
	bestDist := math.Inf(1)
	found := false

	for _, n := range candidates {
		if junctionOnly && s.RefCount(n.ID) < 2 {
			continue
		}
		x, y := projection.ToMercator(n.Lon, n.Lat)
		d := euclidean(req.MercX, req.MercY, x, y)
		if d > req.ToleranceM {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = n.ID
			found = true
		}
	}
	return best, found
}

func pickWay(s *store.Store, req Request) (store.WayID, bool) {
	lon, lat := projection.ToLonLat(req.MercX, req.MercY)
	ids := s.QueryWayIDsInViewport(lon, lat, lon, lat)

	var best store.WayID
	bestDist := math.Inf(1)
	found := false

	for _, id := range ids {
		w, ok := s.GetWay(store.WayID(id))
		if !ok {
			continue
		}
		d, ok := minSegmentDist(s, w, req.MercX, req.MercY)
		if !ok || d > req.ToleranceM {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = w.ID
			found = true
		}
	}
	return best, found
}

// minSegmentDist returns the shortest distance in meters from (x, y)
// to any segment of w, projecting each node_ref in turn.
func minSegmentDist(s *store.Store, w *store.Way, x, y float64) (float64, bool) {
	if len(w.NodeRefs) < 2 {
		return 0, false
	}

	var prevX, prevY float64
	havePrev := false
	best := math.Inf(1)
	found := false

	for _, ref := range w.NodeRefs {
		n, ok := s.GetNode(ref)
		if !ok {
			continue
		}
		nx, ny := projection.ToMercator(n.Lon, n.Lat)
		if havePrev {
			d := pointToSegmentDist(x, y, prevX, prevY, nx, ny)
			if d < best {
				best = d
				found = true
			}
		}
		prevX, prevY = nx, ny
		havePrev = true
	}
	return best, found
}

// pointToSegmentDist is the planar analogue of the teacher's
// lat/lon PointToSegmentDist: project P onto segment AB, clamp to
// [0,1], return the Euclidean distance to the closest point.
func pointToSegmentDist(px, py, ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return euclidean(px, py, ax, ay)
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closeX := ax + t*dx
	closeY := ay + t*dy
	return euclidean(px, py, closeX, closeY)
}

func euclidean(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// metersToDegrees converts a meter radius to an approximate lon/lat
// degree radius at the given latitude, wide enough to bound the R-tree
// candidate search — the exact filtering happens in Mercator meters
// afterward.
func metersToDegrees(meters, lat float64) (dLon, dLat float64) {
	const metersPerDegreeLat = 111_320.0
	dLat = meters / metersPerDegreeLat
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon = meters / (metersPerDegreeLat * cos)
	return dLon, dLat
}
