package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Activity names.
const (
	ActivityParseUpload         = "ParseUpload"
	ActivityPublishImportResult = "PublishImportResult"
)

// FileImportWorkflow parses an uploaded file and publishes the geometry to
// the owning workspace. A parse failure is still published, with Error set;
// the workspace turns it into an aoi.import_failed event.
func FileImportWorkflow(ctx workflow.Context, req domain.ImportRequest) (domain.ImportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting file import", "workspace", req.WorkspaceID, "filename", req.Filename)

	parseCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 3,
		},
	})
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	})

	var result domain.ImportResult
	err := workflow.ExecuteActivity(parseCtx, ActivityParseUpload, req).Get(ctx, &result)
	if err != nil {
		logger.Warn("parse failed, reporting to workspace", "error", err)
		result = domain.ImportResult{
			ImportRequest: req,
			UploadedAt:    workflow.Now(ctx),
			Error:         err.Error(),
		}
	}

	if perr := workflow.ExecuteActivity(publishCtx, ActivityPublishImportResult, result).Get(ctx, nil); perr != nil {
		return result, perr
	}
	if err != nil {
		return result, err
	}
	logger.Info("File import published", "filename", req.Filename)
	return result, nil
}
