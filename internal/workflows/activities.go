package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
	"github.com/samirrijal/geoportal/internal/pkg/telemetry"
)

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Parser    ports.GeometryParser
	Publisher ports.EventPublisher
	Now       func() time.Time
}

func (a *ImportActivities) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ParseUpload sends the uploaded file to the remote parser. Files that parse
// but hold no usable geometry are not retried.
func (a *ImportActivities) ParseUpload(ctx context.Context, req domain.ImportRequest) (domain.ImportResult, error) {
	ctx, span := telemetry.Tracer("geoportal/importer").Start(ctx, telemetry.SpanParseUpload)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrWorkspaceID, req.WorkspaceID))

	start := time.Now()
	g, err := a.Parser.Parse(ctx, req.FileRef, req.Filename)
	if err != nil {
		span.RecordError(err)
		metrics.ImportDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if domain.IsGeometryError(err) {
			return domain.ImportResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "GeometryError", err)
		}
		return domain.ImportResult{}, fmt.Errorf("parse %s: %w", req.Filename, err)
	}
	metrics.ImportDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if req.CRS != "" {
		g.CRS = req.CRS
	}
	activity.GetLogger(ctx).Info("upload parsed", "filename", req.Filename, "kind", g.Kind())
	return domain.ImportResult{ImportRequest: req, Geometry: g, UploadedAt: a.now()}, nil
}

// PublishImportResult hands the result to the API for the workspace.
func (a *ImportActivities) PublishImportResult(ctx context.Context, result domain.ImportResult) error {
	if a.Publisher == nil {
		return errors.New("no import publisher configured")
	}
	if err := a.Publisher.PublishImportResult(ctx, result); err != nil {
		return fmt.Errorf("publish import %s: %w", result.Filename, err)
	}
	return nil
}
