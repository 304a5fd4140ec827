package natsadapter

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// EncodeImportResult wraps r in a protobuf Struct. Geometry travels as a
// GeoJSON object and the upload time as {seconds, nanos}.
func EncodeImportResult(r domain.ImportResult) ([]byte, error) {
	fields := map[string]any{
		"workspace_id": r.WorkspaceID,
		"file_ref":     r.FileRef,
		"filename":     r.Filename,
		"crs":          r.CRS,
	}
	if r.Error != "" {
		fields["error"] = r.Error
	}
	if !r.UploadedAt.IsZero() {
		ts := timestamppb.New(r.UploadedAt)
		fields["uploaded_at"] = map[string]any{
			"seconds": float64(ts.GetSeconds()),
			"nanos":   float64(ts.GetNanos()),
		}
	}
	if r.Geometry.Shape != nil {
		raw, err := json.Marshal(geojson.NewGeometry(r.Geometry.Shape))
		if err != nil {
			return nil, fmt.Errorf("encode geometry: %w", err)
		}
		var gj map[string]any
		if err := json.Unmarshal(raw, &gj); err != nil {
			return nil, fmt.Errorf("encode geometry: %w", err)
		}
		fields["geometry"] = gj
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build envelope: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeImportResult reverses EncodeImportResult.
func DecodeImportResult(data []byte) (domain.ImportResult, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return domain.ImportResult{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	f := st.GetFields()

	r := domain.ImportResult{
		ImportRequest: domain.ImportRequest{
			WorkspaceID: f["workspace_id"].GetStringValue(),
			FileRef:     f["file_ref"].GetStringValue(),
			Filename:    f["filename"].GetStringValue(),
			CRS:         f["crs"].GetStringValue(),
		},
		Error: f["error"].GetStringValue(),
	}
	if r.WorkspaceID == "" {
		return domain.ImportResult{}, fmt.Errorf("envelope has no workspace_id")
	}

	if ts := f["uploaded_at"].GetStructValue(); ts != nil {
		pb := &timestamppb.Timestamp{
			Seconds: int64(ts.GetFields()["seconds"].GetNumberValue()),
			Nanos:   int32(ts.GetFields()["nanos"].GetNumberValue()),
		}
		if err := pb.CheckValid(); err != nil {
			return domain.ImportResult{}, fmt.Errorf("uploaded_at: %w", err)
		}
		r.UploadedAt = pb.AsTime()
	}

	if gv := f["geometry"].GetStructValue(); gv != nil {
		raw, err := json.Marshal(gv.AsMap())
		if err != nil {
			return domain.ImportResult{}, fmt.Errorf("geometry: %w", err)
		}
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return domain.ImportResult{}, fmt.Errorf("geometry: %w", err)
		}
		r.Geometry = domain.Geometry{CRS: r.CRS, Shape: g.Geometry()}
	}
	return r, nil
}
