package workflows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

type fakeParser struct {
	parseFn func(ctx context.Context, fileRef, filename string) (domain.Geometry, error)
	calls   int
}

func (f *fakeParser) Parse(ctx context.Context, fileRef, filename string) (domain.Geometry, error) {
	f.calls++
	return f.parseFn(ctx, fileRef, filename)
}

type fakePublisher struct {
	results []domain.ImportResult
}

func (f *fakePublisher) PublishAOIEvent(ctx context.Context, ev domain.AOIEvent) error { return nil }

func (f *fakePublisher) PublishImportResult(ctx context.Context, r domain.ImportResult) error {
	f.results = append(f.results, r)
	return nil
}

var farm = domain.NewPolygon("wgs84", orb.Ring{{30, -18}, {31, -18}, {31, -17}, {30, -17}, {30, -18}})

func runImport(t *testing.T, parser *fakeParser, pub *fakePublisher) (domain.ImportResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&ImportActivities{
		Parser:    parser,
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	})

	req := domain.ImportRequest{WorkspaceID: "ws1", FileRef: "uploads/farm.zip", Filename: "farm.zip"}
	env.ExecuteWorkflow(FileImportWorkflow, req)
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	var res domain.ImportResult
	if err := env.GetWorkflowError(); err != nil {
		return res, err
	}
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("result: %v", err)
	}
	return res, nil
}

func TestFileImportWorkflow_Success(t *testing.T) {
	parser := &fakeParser{parseFn: func(ctx context.Context, fileRef, filename string) (domain.Geometry, error) {
		return farm, nil
	}}
	pub := &fakePublisher{}

	res, err := runImport(t, parser, pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Filename != "farm.zip" || res.Geometry.Kind() != domain.KindPolygon {
		t.Errorf("unexpected result %+v", res)
	}
	if len(pub.results) != 1 || pub.results[0].Error != "" {
		t.Fatalf("expected one published result, got %+v", pub.results)
	}
	if !pub.results[0].UploadedAt.Equal(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected upload time %v", pub.results[0].UploadedAt)
	}
}

func TestFileImportWorkflow_GeometryErrorNotRetried(t *testing.T) {
	parser := &fakeParser{parseFn: func(ctx context.Context, fileRef, filename string) (domain.Geometry, error) {
		return domain.Geometry{}, fmt.Errorf("%w: file contains no polygons", domain.ErrEmptyGeometry)
	}}
	pub := &fakePublisher{}

	if _, err := runImport(t, parser, pub); err == nil {
		t.Fatal("expected workflow error")
	}
	if parser.calls != 1 {
		t.Errorf("expected 1 parse attempt, got %d", parser.calls)
	}
	if len(pub.results) != 1 || pub.results[0].Error == "" {
		t.Errorf("expected the failure to be published, got %+v", pub.results)
	}
}

func TestFileImportWorkflow_TransientErrorRetried(t *testing.T) {
	parser := &fakeParser{}
	parser.parseFn = func(ctx context.Context, fileRef, filename string) (domain.Geometry, error) {
		if parser.calls < 3 {
			return domain.Geometry{}, errors.New("connection reset")
		}
		return farm, nil
	}
	pub := &fakePublisher{}

	if _, err := runImport(t, parser, pub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parser.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", parser.calls)
	}
}
