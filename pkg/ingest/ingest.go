// Package ingest loads an OSM PBF extract into an entity store: every
// node, way and relation is decoded, ways get their derived render
// feature/layer/area classification computed up front, and the
// store's spatial index is rebuilt once ingest completes.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"osmeditor/pkg/polygon"
	"osmeditor/pkg/render"
	"osmeditor/pkg/store"
)

// Result summarizes a completed ingest.
type Result struct {
	NodesParsed     int
	WaysParsed      int
	RelationsParsed int
}

// IngestFile opens path and ingests it into s. A decode error part-way
// through (e.g. a truncated file) stops the scan and is returned,
// wrapped with the path; entities inserted before it remain in the
// store, and the spatial index is not rebuilt.
func IngestFile(ctx context.Context, s *store.Store, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := Ingest(ctx, s, f)
	if err != nil {
		return result, fmt.Errorf("ingest %s: %w", path, err)
	}
	return result, nil
}

// Ingest decodes every node, way and relation from r into s using a
// worker-parallel osmpbf scanner, computing each way's derived fields
// as it goes, and rebuilds the spatial index exactly once at the end.
func Ingest(ctx context.Context, s *store.Store, r io.Reader) (Result, error) {
	scanner := osmpbf.New(ctx, r, runtime.NumCPU())
	defer scanner.Close()

	var result Result
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			s.InsertNode(&store.Node{
				ID:   store.NodeID(o.ID),
				Lon:  o.Lon,
				Lat:  o.Lat,
				Tags: convertTags(o.Tags),
			})
			result.NodesParsed++

		case *osm.Way:
			tags := convertTags(o.Tags)
			refs := make([]store.NodeID, len(o.Nodes))
			for i, wn := range o.Nodes {
				refs[i] = store.NodeID(wn.ID)
			}
			parsed := render.ParseTags(tags)
			s.InsertWay(&store.Way{
				ID:            store.WayID(o.ID),
				NodeRefs:      refs,
				Tags:          tags,
				RenderFeature: parsed.Feature,
				Layer:         parsed.Layer,
				IsArea:        polygon.IsAreaWay(tags, refs),
			})
			result.WaysParsed++

		case *osm.Relation:
			s.InsertRelation(&store.Relation{
				ID:      store.RelationID(o.ID),
				Tags:    convertTags(o.Tags),
				Members: convertMembers(o.Members),
			})
			result.RelationsParsed++
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("scan: %w", err)
	}

	log.Printf("ingest: %d nodes, %d ways, %d relations parsed", result.NodesParsed, result.WaysParsed, result.RelationsParsed)

	s.RebuildIndices()
	return result, nil
}

func convertTags(tags osm.Tags) []store.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]store.Tag, len(tags))
	for i, t := range tags {
		out[i] = store.Tag{Key: t.Key, Value: t.Value}
	}
	return out
}

func convertMembers(members osm.Members) []store.RelationMember {
	out := make([]store.RelationMember, 0, len(members))
	for _, m := range members {
		var kind store.MemberKind
		switch m.Type {
		case osm.TypeNode:
			kind = store.MemberNode
		case osm.TypeWay:
			kind = store.MemberWay
		case osm.TypeRelation:
			kind = store.MemberRelation
		default:
			continue
		}
		out = append(out, store.RelationMember{Kind: kind, Ref: m.Ref, Role: m.Role})
	}
	return out
}
