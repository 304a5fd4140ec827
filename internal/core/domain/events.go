package domain

import (
	"encoding/json"
	"time"
)

// AOIEventKind names a workspace lifecycle event.
type AOIEventKind string

const (
	AOICreated AOIEventKind = "aoi.created"
	AOIRemoved AOIEventKind = "aoi.removed"
	AOICleared AOIEventKind = "aoi.cleared"
	AOIFocal   AOIEventKind = "aoi.focal"

	// AOIImportFailed reports a file that could not become an AOI.
	AOIImportFailed AOIEventKind = "aoi.import_failed"
)

// AOIEvent is published after a workspace mutation. AOI holds the encoded
// AOI for created events; Message, Filename and Error describe a failed
// import.
type AOIEvent struct {
	Kind        AOIEventKind    `json:"kind"`
	WorkspaceID string          `json:"workspace_id"`
	AOIID       string          `json:"aoi_id,omitempty"`
	AOI         json.RawMessage `json:"aoi,omitempty"`
	Message     string          `json:"message,omitempty"`
	Filename    string          `json:"filename,omitempty"`
	Error       string          `json:"error,omitempty"`
	TotalArea   float64         `json:"total_area_km2"`
	At          time.Time       `json:"at"`
}

// ImportRequest asks for an uploaded file to be parsed into an AOI.
type ImportRequest struct {
	WorkspaceID string `json:"workspace_id"`
	FileRef     string `json:"file_ref"`
	Filename    string `json:"filename"`
	CRS         string `json:"crs,omitempty"`
}

// ImportResult is the outcome of a file import. Error is set instead of
// Geometry when parsing failed.
type ImportResult struct {
	ImportRequest
	Geometry   Geometry  `json:"geometry"`
	UploadedAt time.Time `json:"uploaded_at"`
	Error      string    `json:"error,omitempty"`
}
