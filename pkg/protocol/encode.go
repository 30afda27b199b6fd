// Package protocol encodes a viewport query result into the fixed
// little-endian binary wire format consumers (the editor front end)
// decode without a general-purpose serialization library.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/paulmach/orb"

	"osmeditor/pkg/projection"
	"osmeditor/pkg/render"
	"osmeditor/pkg/store"
	"osmeditor/pkg/viewport"
)

// header is the 16-byte frame header.
type header struct {
	NodeCount    uint32
	WayCount     uint32
	PolygonCount uint32
	Truncated    uint32
}

// nodeRecord is the fixed 32-byte per-node record; the two padding
// fields are always written zero and exist purely so the record is
// naturally aligned for a consumer that maps it directly onto a
// typed array.
type nodeRecord struct {
	NodeID   int64
	X        float64
	Y        float64
	RefCount uint16
	Pad1     uint16
	Pad2     uint32
}

type lineWay struct {
	id      store.WayID
	feature uint16
	layer   int8
	points  []orb.Point
}

// EncodeViewport writes res as the wire-format framed response:
// header, node records, the line-ways section, then the polygons
// section. s resolves each surviving line way's node_refs to
// projected points; node positions in res are projected here, while
// polygon rings in res are already projected.
func EncodeViewport(w io.Writer, s *store.Store, res viewport.Result) error {
	lines := buildLines(res.LineWayIDs, s)
	sort.SliceStable(lines, func(i, j int) bool {
		return render.ZOrder(lines[i].feature, lines[i].layer) < render.ZOrder(lines[j].feature, lines[j].layer)
	})

	polys := append([]viewport.Polygon(nil), res.Polygons...)
	sort.SliceStable(polys, func(i, j int) bool {
		zi := render.ZOrder(polys[i].Feature.RenderFeature, polys[i].Feature.Layer)
		zj := render.ZOrder(polys[j].Feature.RenderFeature, polys[j].Feature.Layer)
		return zi < zj
	})

	var truncated uint32
	if res.Truncated {
		truncated = 1
	}

	hdr := header{
		NodeCount:    uint32(len(res.Nodes)),
		WayCount:     uint32(len(lines)),
		PolygonCount: uint32(len(polys)),
		Truncated:    truncated,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, nr := range res.Nodes {
		x, y := projection.ToMercator(nr.Node.Lon, nr.Node.Lat)
		rec := nodeRecord{NodeID: int64(nr.Node.ID), X: x, Y: y, RefCount: nr.RefCount}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("write node %d: %w", nr.Node.ID, err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(lines))); err != nil {
		return fmt.Errorf("write total_ways: %w", err)
	}
	for _, lw := range lines {
		if err := writeWay(w, lw); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(polys))); err != nil {
		return fmt.Errorf("write total_polygons: %w", err)
	}
	for _, p := range polys {
		if err := writePolygon(w, p); err != nil {
			return err
		}
	}

	return nil
}

// buildLines resolves each surviving line way's geometry, dropping
// ways whose projected point count falls below 2 — such ways are
// omitted and do not count toward total_ways.
func buildLines(ids []store.WayID, s *store.Store) []lineWay {
	lines := make([]lineWay, 0, len(ids))
	for _, id := range ids {
		w, ok := s.GetWay(id)
		if !ok {
			continue
		}
		points := projectWayPoints(w.NodeRefs, s)
		if len(points) < 2 {
			continue
		}
		lines = append(lines, lineWay{id: w.ID, feature: w.RenderFeature, layer: w.Layer, points: points})
	}
	return lines
}

func projectWayPoints(refs []store.NodeID, s *store.Store) []orb.Point {
	var pts []orb.Point
	for _, ref := range refs {
		n, ok := s.GetNode(ref)
		if !ok {
			continue
		}
		x, y := projection.ToMercator(n.Lon, n.Lat)
		pts = append(pts, orb.Point{x, y})
	}
	return pts
}

func writeWay(w io.Writer, lw lineWay) error {
	if err := binary.Write(w, binary.LittleEndian, int64(lw.id)); err != nil {
		return fmt.Errorf("write way_id: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, lw.feature); err != nil {
		return fmt.Errorf("write render_feature: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(lw.points))); err != nil {
		return fmt.Errorf("write point_count: %w", err)
	}
	return writePoints(w, lw.points)
}

func writePoints(w io.Writer, pts []orb.Point) error {
	for _, p := range pts {
		if err := binary.Write(w, binary.LittleEndian, p); err != nil {
			return fmt.Errorf("write point: %w", err)
		}
	}
	return nil
}

func writePolygon(w io.Writer, p viewport.Polygon) error {
	if err := binary.Write(w, binary.LittleEndian, int64(p.WayID)); err != nil {
		return fmt.Errorf("write way_id: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, p.Feature.RenderFeature); err != nil {
		return fmt.Errorf("write render_feature: %w", err)
	}
	ringCount := uint16(len(p.Feature.Outer) + len(p.Feature.Inner))
	if err := binary.Write(w, binary.LittleEndian, ringCount); err != nil {
		return fmt.Errorf("write ring_count: %w", err)
	}
	for _, ring := range p.Feature.Outer {
		if err := writeRing(w, ring); err != nil {
			return err
		}
	}
	for _, ring := range p.Feature.Inner {
		if err := writeRing(w, ring); err != nil {
			return err
		}
	}
	return nil
}

// rawNodeRecord is the compact 24-byte node encoding used when a
// caller wants raw WGS84 coordinates rather than projected,
// priority-ranked viewport records — e.g. for exporting a node
// selection without going through a viewport query at all.
type rawNodeRecord struct {
	ID  int64
	Lon float64
	Lat float64
}

// EncodeNodesRaw writes each node as a flat 24-byte {id, lon, lat}
// record, in input order, with no header.
func EncodeNodesRaw(w io.Writer, nodes []*store.Node) error {
	for _, n := range nodes {
		rec := rawNodeRecord{ID: int64(n.ID), Lon: n.Lon, Lat: n.Lat}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("write raw node %d: %w", n.ID, err)
		}
	}
	return nil
}

func writeRing(w io.Writer, ring orb.Ring) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ring))); err != nil {
		return fmt.Errorf("write ring point_count: %w", err)
	}
	return writePoints(w, ring)
}
