package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// Subject roots.
const (
	SubjectAOI    = "geoportal.aoi"
	SubjectImport = "geoportal.import"
	SubjectMap    = "geoportal.map"
)

// AOISubject returns geoportal.aoi.<workspace>.<event>.
func AOISubject(workspaceID string, kind domain.AOIEventKind) string {
	return fmt.Sprintf("%s.%s.%s", SubjectAOI, workspaceID, strings.TrimPrefix(string(kind), "aoi."))
}

// ImportSubject returns geoportal.import.<workspace>.
func ImportSubject(workspaceID string) string {
	return SubjectImport + "." + workspaceID
}

// MapSubject returns geoportal.map.<workspace>.
func MapSubject(workspaceID string) string {
	return SubjectMap + "." + workspaceID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "GEOPORTAL_AOI",
			Subjects:  []string{SubjectAOI + ".>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GEOPORTAL_IMPORTS",
			Subjects:  []string{SubjectImport + ".>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAOIEvent publishes a workspace lifecycle event as JSON.
func (p *Publisher) PublishAOIEvent(ctx context.Context, event domain.AOIEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AOISubject(event.WorkspaceID, event.Kind), data, nats.Context(ctx))
	return err
}

// PublishImportResult publishes a finished import as a protobuf envelope.
func (p *Publisher) PublishImportResult(ctx context.Context, result domain.ImportResult) error {
	data, err := EncodeImportResult(result)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ImportSubject(result.WorkspaceID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for core NATS publishing.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection (e.g. for the WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("geoportal"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
