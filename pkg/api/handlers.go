package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"osmeditor/pkg/hittest"
	"osmeditor/pkg/history"
	"osmeditor/pkg/ingest"
	"osmeditor/pkg/polygon"
	"osmeditor/pkg/protocol"
	"osmeditor/pkg/render"
	"osmeditor/pkg/store"
	"osmeditor/pkg/viewport"
)

// Handlers holds the HTTP handlers and the single in-memory document
// they operate on: the entity store and its history manager. The
// engine holds one document at a time (per spec.md's Non-goal on
// multi-document workspaces).
type Handlers struct {
	store   *store.Store
	history *history.Manager
}

// NewHandlers creates handlers over an already-constructed store and
// history manager.
func NewHandlers(s *store.Store, h *history.Manager) *Handlers {
	return &Handlers{store: s, history: h}
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		NodeCount:     stats.NodeCount,
		WayCount:      stats.WayCount,
		RelationCount: stats.RelationCount,
	})
}

// HandleBounds handles GET /api/v1/bounds.
func (h *Handlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store.GetBounds()
	if !ok {
		writeError(w, http.StatusNotFound, "empty_store")
		return
	}
	writeJSON(w, http.StatusOK, BoundsResponse{
		MinLon: b.MinLon, MinLat: b.MinLat, MaxLon: b.MaxLon, MaxLat: b.MaxLat,
		CenterLon: b.CenterLon, CenterLat: b.CenterLat,
	})
}

// HandleLoad handles POST /api/v1/load. Ingest runs on a worker pool
// inside pkg/ingest and is invoked here in a blocking-task context —
// the handler itself blocks until ingest completes, per spec.md's
// "Suspension points" note.
func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if !decodeJSON(w, r, &req, 1<<20) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "missing_path")
		return
	}

	result, err := ingest.IngestFile(r.Context(), h.store, req.Path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "ingest_failed: "+err.Error())
		return
	}
	h.store.RebuildIndices()

	writeJSON(w, http.StatusOK, LoadResponse{
		NodesParsed:     result.NodesParsed,
		WaysParsed:      result.WaysParsed,
		RelationsParsed: result.RelationsParsed,
	})
}

// HandleViewport handles POST /api/v1/viewport, returning the binary
// wire-format buffer directly as the response body.
func (h *Handlers) HandleViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !decodeJSON(w, r, &req, 4096) {
		return
	}

	res := viewport.Query(h.store, viewport.Request{
		MinLon: req.MinLon, MinLat: req.MinLat, MaxLon: req.MaxLon, MaxLat: req.MaxLat, Zoom: req.Zoom,
	})

	w.Header().Set("Content-Type", "application/octet-stream")
	if err := protocol.EncodeViewport(w, h.store, res); err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed")
	}
}

// HandlePick handles POST /api/v1/pick.
func (h *Handlers) HandlePick(w http.ResponseWriter, r *http.Request) {
	var req PickRequest
	if !decodeJSON(w, r, &req, 4096) {
		return
	}

	res := hittest.Pick(h.store, hittest.Request{
		MercX: req.MercX, MercY: req.MercY, ToleranceM: req.ToleranceM, Zoom: req.Zoom,
	})

	resp := PickResponse{Kind: "none"}
	switch res.Kind {
	case hittest.KindNode:
		resp.Kind = "node"
		id := res.ID
		resp.ID = &id
	case hittest.KindWay:
		resp.Kind = "way"
		id := res.ID
		resp.ID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetNode handles GET /api/v1/nodes/{id}.
func (h *Handlers) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, found := h.store.GetNode(store.NodeID(id))
	if !found {
		writeError(w, http.StatusNotFound, "node_not_found")
		return
	}
	writeJSON(w, http.StatusOK, NodeDetailsResponse{
		ID: int64(n.ID), Lon: n.Lon, Lat: n.Lat,
		RefCount:        h.store.RefCount(n.ID),
		Tags:            tagsToJSON(n.Tags),
		ParentRelations: findParentRelations(h.store.AllRelations(), store.MemberNode, int64(n.ID)),
	})
}

// HandleGetWay handles GET /api/v1/ways/{id}.
func (h *Handlers) HandleGetWay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wy, found := h.store.GetWay(store.WayID(id))
	if !found {
		writeError(w, http.StatusNotFound, "way_not_found")
		return
	}
	refs := make([]int64, len(wy.NodeRefs))
	for i, ref := range wy.NodeRefs {
		refs[i] = int64(ref)
	}
	writeJSON(w, http.StatusOK, WayDetailsResponse{
		ID: int64(wy.ID), NodeRefs: refs, Tags: tagsToJSON(wy.Tags),
		RenderFeature:   wy.RenderFeature,
		Layer:           wy.Layer,
		IsArea:          wy.IsArea,
		ParentRelations: findParentRelations(h.store.AllRelations(), store.MemberWay, int64(wy.ID)),
	})
}

// HandleUpdateWayTags handles PATCH /api/v1/ways/{id}/tags.
func (h *Handlers) HandleUpdateWayTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wy, found := h.store.GetWay(store.WayID(id))
	if !found {
		writeError(w, http.StatusNotFound, "way_not_found")
		return
	}

	var req UpdateTagsRequest
	if !decodeJSON(w, r, &req, 1<<16) {
		return
	}
	newTags := tagsFromJSON(req.Tags)
	parsed := render.ParseTags(newTags)
	isArea := polygon.IsAreaWay(newTags, wy.NodeRefs)

	cmd := &history.UpdateWayTags{
		WayID:            wy.ID,
		OldTags:          wy.Tags,
		OldRenderFeature: wy.RenderFeature,
		OldLayer:         wy.Layer,
		OldIsArea:        wy.IsArea,
		NewTags:          newTags,
		NewRenderFeature: parsed.Feature,
		NewLayer:         parsed.Layer,
		NewIsArea:        isArea,
	}
	writeCommandResult(w, h.history.Execute(h.store, cmd), h)
}

// HandleUpdateNodeTags handles PATCH /api/v1/nodes/{id}/tags.
func (h *Handlers) HandleUpdateNodeTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, found := h.store.GetNode(store.NodeID(id))
	if !found {
		writeError(w, http.StatusNotFound, "node_not_found")
		return
	}

	var req UpdateTagsRequest
	if !decodeJSON(w, r, &req, 1<<16) {
		return
	}
	cmd := &history.UpdateNodeTags{NodeID: n.ID, OldTags: n.Tags, NewTags: tagsFromJSON(req.Tags)}
	writeCommandResult(w, h.history.Execute(h.store, cmd), h)
}

// HandleMoveNode handles POST /api/v1/nodes/{id}/move.
func (h *Handlers) HandleMoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, found := h.store.GetNode(store.NodeID(id))
	if !found {
		writeError(w, http.StatusNotFound, "node_not_found")
		return
	}

	var req MoveNodeRequest
	if !decodeJSON(w, r, &req, 4096) {
		return
	}
	cmd := &history.MoveNode{NodeID: n.ID, OldLon: n.Lon, OldLat: n.Lat, NewLon: req.Lon, NewLat: req.Lat}
	writeCommandResult(w, h.history.Execute(h.store, cmd), h)
}

// HandleAddNode handles POST /api/v1/nodes.
func (h *Handlers) HandleAddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !decodeJSON(w, r, &req, 1<<16) {
		return
	}
	n := &store.Node{
		ID:   store.NodeID(h.store.GenerateLocalID()),
		Lon:  req.Lon,
		Lat:  req.Lat,
		Tags: tagsFromJSON(req.Tags),
	}
	cmd := &history.AddNode{Node: n}
	res := h.history.Execute(h.store, cmd)
	if !res.Success {
		writeCommandResult(w, res, h)
		return
	}
	writeJSON(w, http.StatusCreated, AddNodeResponse{ID: int64(n.ID)})
}

// HandleDeleteWay handles DELETE /api/v1/ways/{id}.
func (h *Handlers) HandleDeleteWay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wy, found := h.store.GetWay(store.WayID(id))
	if !found {
		writeError(w, http.StatusNotFound, "way_not_found")
		return
	}
	cmd := &history.DeleteWay{Way: wy}
	writeCommandResult(w, h.history.Execute(h.store, cmd), h)
}

// HandleDeleteNode handles DELETE /api/v1/nodes/{id}.
func (h *Handlers) HandleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, found := h.store.GetNode(store.NodeID(id))
	if !found {
		writeError(w, http.StatusNotFound, "node_not_found")
		return
	}
	cmd := history.PlanDeleteNode(h.store, n)
	res := h.history.Execute(h.store, cmd)

	resp := CommandResponse{
		Success: res.Success, NeedsRedraw: res.NeedsRedraw, Message: res.Message,
		UndoCount: h.history.UndoCount(), RedoCount: h.history.RedoCount(),
	}
	for _, cw := range cmd.CascadedWays {
		resp.CascadedWays = append(resp.CascadedWays, int64(cw.ID))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUndo handles POST /api/v1/undo.
func (h *Handlers) HandleUndo(w http.ResponseWriter, r *http.Request) {
	writeCommandResult(w, h.history.Undo(h.store), h)
}

// HandleRedo handles POST /api/v1/redo.
func (h *Handlers) HandleRedo(w http.ResponseWriter, r *http.Request) {
	writeCommandResult(w, h.history.Redo(h.store), h)
}

// HandleHistoryState handles GET /api/v1/history.
func (h *Handlers) HandleHistoryState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryStateResponse{
		UndoCount: h.history.UndoCount(), RedoCount: h.history.RedoCount(),
	})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func writeCommandResult(w http.ResponseWriter, res history.Result, h *Handlers) {
	writeJSON(w, http.StatusOK, CommandResponse{
		Success: res.Success, NeedsRedraw: res.NeedsRedraw, Message: res.Message,
		UndoCount: h.history.UndoCount(), RedoCount: h.history.RedoCount(),
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_content_type")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

// findParentRelations linear-scans every relation's member list for
// one referencing (kind, id), the same way store.FindWaysReferencingNode
// linear-scans ways. A relation contributes at most one ParentRelation
// even if it references the member under more than one role.
func findParentRelations(relations []*store.Relation, kind store.MemberKind, id int64) []ParentRelation {
	var out []ParentRelation
	for _, rel := range relations {
		for _, m := range rel.Members {
			if m.Kind != kind || m.Ref != id {
				continue
			}
			pr := ParentRelation{ID: int64(rel.ID), Role: m.Role}
			if t := store.Find(rel.Tags, "type"); t != "" {
				pr.RelationType = &t
			}
			if n := store.Find(rel.Tags, "name"); n != "" {
				pr.Name = &n
			}
			out = append(out, pr)
			break
		}
	}
	return out
}

func tagsToJSON(tags []store.Tag) []TagJSON {
	out := make([]TagJSON, len(tags))
	for i, t := range tags {
		out[i] = TagJSON{Key: t.Key, Value: t.Value}
	}
	return out
}

func tagsFromJSON(tags []TagJSON) []store.Tag {
	out := make([]store.Tag, len(tags))
	for i, t := range tags {
		out[i] = store.Tag{Key: t.Key, Value: t.Value}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code})
}
