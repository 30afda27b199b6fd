package api

// ErrorResponse is the JSON body returned for any handler error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the JSON body for GET /api/v1/stats.
type StatsResponse struct {
	NodeCount     int `json:"node_count"`
	WayCount      int `json:"way_count"`
	RelationCount int `json:"relation_count"`
}

// BoundsResponse is the JSON body for GET /api/v1/bounds.
type BoundsResponse struct {
	MinLon    float64 `json:"min_lon"`
	MinLat    float64 `json:"min_lat"`
	MaxLon    float64 `json:"max_lon"`
	MaxLat    float64 `json:"max_lat"`
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
}

// LoadRequest is the JSON body for POST /api/v1/load.
type LoadRequest struct {
	Path string `json:"path"`
}

// LoadResponse is the JSON body returned after a completed ingest.
type LoadResponse struct {
	NodesParsed     int `json:"nodes_parsed"`
	WaysParsed      int `json:"ways_parsed"`
	RelationsParsed int `json:"relations_parsed"`
}

// ViewportRequest is the JSON body for POST /api/v1/viewport.
type ViewportRequest struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
	Zoom   float32 `json:"zoom"`
}

// PickRequest is the JSON body for POST /api/v1/pick.
type PickRequest struct {
	MercX      float64 `json:"merc_x"`
	MercY      float64 `json:"merc_y"`
	ToleranceM float64 `json:"tolerance_m"`
	Zoom       float32 `json:"zoom"`
}

// PickResponse is the JSON body returned by pick_feature.
type PickResponse struct {
	Kind string `json:"kind"` // "node", "way", or "none"
	ID   *int64 `json:"id,omitempty"`
}

// TagJSON is one OSM tag in JSON form.
type TagJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParentRelation is one relation referencing a node or way, found by
// linear-scanning every relation's member list.
type ParentRelation struct {
	ID           int64   `json:"id"`
	Role         string  `json:"role"`
	RelationType *string `json:"relation_type,omitempty"`
	Name         *string `json:"name,omitempty"`
}

// NodeDetailsResponse is the JSON body for GET /api/v1/nodes/{id}.
type NodeDetailsResponse struct {
	ID              int64            `json:"id"`
	Lon             float64          `json:"lon"`
	Lat             float64          `json:"lat"`
	RefCount        uint16           `json:"ref_count"`
	Tags            []TagJSON        `json:"tags"`
	ParentRelations []ParentRelation `json:"parent_relations"`
}

// WayDetailsResponse is the JSON body for GET /api/v1/ways/{id}.
type WayDetailsResponse struct {
	ID              int64            `json:"id"`
	NodeRefs        []int64          `json:"node_refs"`
	Tags            []TagJSON        `json:"tags"`
	RenderFeature   uint16           `json:"render_feature"`
	Layer           int8             `json:"layer"`
	IsArea          bool             `json:"is_area"`
	ParentRelations []ParentRelation `json:"parent_relations"`
}

// UpdateTagsRequest is the JSON body for PATCH .../tags.
type UpdateTagsRequest struct {
	Tags []TagJSON `json:"tags"`
}

// MoveNodeRequest is the JSON body for POST /api/v1/nodes/{id}/move.
type MoveNodeRequest struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// AddNodeRequest is the JSON body for POST /api/v1/nodes.
type AddNodeRequest struct {
	Lon  float64   `json:"lon"`
	Lat  float64   `json:"lat"`
	Tags []TagJSON `json:"tags"`
}

// AddNodeResponse reports the newly assigned local ID.
type AddNodeResponse struct {
	ID int64 `json:"id"`
}

// CommandResponse is the JSON body for delete/undo/redo operations.
type CommandResponse struct {
	Success      bool    `json:"success"`
	NeedsRedraw  bool    `json:"needs_redraw"`
	Message      string  `json:"message,omitempty"`
	CascadedWays []int64 `json:"cascaded_way_ids,omitempty"`
	UndoCount    int     `json:"undo_count"`
	RedoCount    int     `json:"redo_count"`
}

// HistoryStateResponse is the JSON body for GET /api/v1/history.
type HistoryStateResponse struct {
	UndoCount int `json:"undo_count"`
	RedoCount int `json:"redo_count"`
}
