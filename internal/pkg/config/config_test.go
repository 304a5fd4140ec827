package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEOPORTAL_MAP_MAX_ZOOM", "12")

	cfg, err := Load("geoportal-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Map.MaxZoom != 12 {
		t.Errorf("expected env override 12, got %d", cfg.Map.MaxZoom)
	}
	if cfg.Map.CircleSegments != 64 || cfg.Map.DisplayCRS != "wgs84" {
		t.Errorf("unexpected map defaults %+v", cfg.Map)
	}
	if cfg.Telemetry.ServiceName != "geoportal-test" {
		t.Errorf("expected service name default, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Port: 0, ReadTimeout: 10, WriteTimeout: 10},
		Map:    MapConfig{MaxZoom: 40, CircleSegments: 2},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "map.max_zoom", "map.circle_segments", "parser.timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
