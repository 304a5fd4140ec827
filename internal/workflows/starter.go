package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Starter implements ports.ImportStarter with a Temporal client.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter enqueueing on taskQueue.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartImport launches FileImportWorkflow and returns its run id.
func (s *Starter) StartImport(ctx context.Context, req domain.ImportRequest) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("import-%s-%s", req.WorkspaceID, uuid.NewString()),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, FileImportWorkflow, req)
	if err != nil {
		return "", fmt.Errorf("start import workflow: %w", err)
	}
	return run.GetRunID(), nil
}
