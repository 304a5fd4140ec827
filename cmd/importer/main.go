package main

import (
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/geoportal/internal/adapters/nats"
	"github.com/samirrijal/geoportal/internal/adapters/parser"
	"github.com/samirrijal/geoportal/internal/pkg/config"
	"github.com/samirrijal/geoportal/internal/pkg/logging"
	"github.com/samirrijal/geoportal/internal/workflows"
)

func main() {
	cfg, err := config.Load("geoportal-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("geoportal-importer", cfg.Log.Level, cfg.Log.Format)

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.FileImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Parser:    parser.New(cfg.Parser.URL, cfg.Map.DisplayCRS, time.Duration(cfg.Parser.Timeout)*time.Second),
		Publisher: pub,
	})

	slog.Info("importer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
