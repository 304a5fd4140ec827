package telemetry

// Span and attribute names used for instrumentation.
const (
	SpanCompleteGesture = "workspace.complete_gesture"
	SpanApplyCoords     = "workspace.apply_coordinates"
	SpanImportFile      = "workspace.import_file"
	SpanBoundaryQuery   = "boundaries.query"
	SpanParseUpload     = "import.parse_upload"

	AttrWorkspaceID = "geoportal.workspace_id"
	AttrAOIType     = "geoportal.aoi_type"
	AttrCRS         = "geoportal.crs"
)
