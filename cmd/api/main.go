package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geoportal/internal/adapters/http"
	natsadapter "github.com/samirrijal/geoportal/internal/adapters/nats"
	"github.com/samirrijal/geoportal/internal/adapters/postgres"
	"github.com/samirrijal/geoportal/internal/adapters/valkey"
	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/overlay"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/core/usecases"
	"github.com/samirrijal/geoportal/internal/pkg/config"
	"github.com/samirrijal/geoportal/internal/pkg/logging"
	"github.com/samirrijal/geoportal/internal/pkg/telemetry"
	"github.com/samirrijal/geoportal/internal/workflows"
)

func main() {
	cfg, err := config.Load("geoportal-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("geoportal-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (boundary catalogue)
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportStats(ctx, 15*time.Second)

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr, "geoportal:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS: JetStream for AOI events, core NATS for the map relay
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	// Core domain
	systems := crs.Default()
	if _, err := systems.Get(cfg.Map.DisplayCRS); err != nil {
		log.Fatalf("map.display_crs: %v", err)
	}
	palette, err := overlay.NewPalette(cfg.Map.LevelColors)
	if err != nil {
		log.Fatalf("map.level_colors: %v", err)
	}
	overlayCfg := overlay.DefaultConfig(cfg.Map.DisplayCRS)
	overlayCfg.Padding = [2]int{cfg.Map.FitPadding, cfg.Map.FitPadding}
	overlayCfg.MaxZoom = cfg.Map.MaxZoom
	overlayCfg.MinSpanMeters = cfg.Map.MinSpanMeters

	workspaces := usecases.NewWorkspaceRegistry(systems,
		usecases.WorkspaceConfig{Segments: cfg.Map.CircleSegments, Overlay: overlayCfg, Palette: &palette},
		func(id string) ports.MapSurface { return natsadapter.NewMapSurface(pub.Conn(), id) },
		usecases.WithEventPublisher(pub),
	)

	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	boundaries := usecases.NewBoundaryService(postgres.NewBoundaryRepo(db), cacheSvc)

	deps := &http.Dependencies{
		Systems:    systems,
		Workspaces: workspaces,
		Boundaries: boundaries,
		NATS:       pub.Conn(),
		DB:         db,
		Cache:      cache,
	}

	// File imports: start workflows on Temporal, take results from NATS
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		slog.Warn("temporal unavailable, file imports disabled", "error", err)
	} else {
		defer tc.Close()
		deps.Imports = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	}

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()
	if err := listenForImports(ctx, sub, workspaces); err != nil {
		log.Fatalf("subscribe imports: %v", err)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // parsed GeoJSON files can be large
		AppName:      "Geoportal API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "display_crs", cfg.Map.DisplayCRS)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped", "open_workspaces", workspaces.Len())
}

func listenForImports(ctx context.Context, sub ports.ImportSubscriber, workspaces *usecases.WorkspaceRegistry) error {
	return sub.SubscribeImports(ctx, importHandler(workspaces))
}

// importHandler feeds finished imports into their workspace. Failed and
// rejected files are reported to the user as aoi.import_failed events and
// acknowledged; results for closed workspaces are dropped. Only unexpected
// errors are redelivered.
func importHandler(workspaces *usecases.WorkspaceRegistry) func(context.Context, domain.ImportResult) error {
	return func(ctx context.Context, r domain.ImportResult) error {
		log := slog.With("workspace_id", r.WorkspaceID, "filename", r.Filename)
		err := workspaces.Do(r.WorkspaceID, func(ws *usecases.Workspace) error {
			if r.Error != "" {
				ws.ReportImportFailure(ctx, r.Filename, r.Error)
				return nil
			}
			_, err := ws.ImportFile(ctx, r.Filename, r.Geometry, r.UploadedAt)
			if errors.Is(err, domain.ErrUnknownCoordinateSystem) {
				// The CRS came with the upload request; redelivery cannot fix it.
				return nil
			}
			return err
		})
		if errors.Is(err, domain.ErrWorkspaceNotFound) {
			log.Info("import finished after workspace closed")
			return nil
		}
		return err
	}
}
