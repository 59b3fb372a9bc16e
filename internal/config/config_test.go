package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[map]
width = 512
height = 768

[simulation]
tick_rate = "100ms"

[spectator]
enabled = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Map.Width != 512 || cfg.Map.Height != 768 {
		t.Errorf("map = %dx%d, want 512x768", cfg.Map.Width, cfg.Map.Height)
	}
	if cfg.Map.CellSize != DefaultCellSize {
		t.Errorf("cell_size = %d, want default %d", cfg.Map.CellSize, DefaultCellSize)
	}
	if cfg.Simulation.TickRate != 100*time.Millisecond {
		t.Errorf("tick_rate = %s, want 100ms", cfg.Simulation.TickRate)
	}
	if !cfg.Spectator.Enabled || cfg.Spectator.BindAddress == "" {
		t.Errorf("spectator not enabled with default address: %+v", cfg.Spectator)
	}
	if cfg.Server.StartTime == 0 {
		t.Errorf("StartTime not set")
	}
}

func TestLoadRejectsInvalidMap(t *testing.T) {
	path := writeConfig(t, `
[map]
width = 0
cell_size = 0
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "width and height") || !strings.Contains(msg, "cell_size") {
		t.Errorf("error %q does not name both problems", msg)
	}
}

func TestValidateCapsGridCells(t *testing.T) {
	cfg := Default()
	cfg.Map = MapConfig{Width: 1 << 20, Height: 1 << 20, CellSize: 256}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "cells exceeds") {
		t.Fatalf("Validate = %v, want cell limit error", err)
	}
	cfg.Map.CellSize = 1024
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate at the limit: %v", err)
	}
}

func TestJournalNeedsDSN(t *testing.T) {
	cfg := Default()
	cfg.Journal.Enabled = true
	cfg.Journal.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for enabled journal without dsn")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "server.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Map.CellSize != DefaultCellSize || cfg.Simulation.TickRate != 50*time.Millisecond {
		t.Errorf("unexpected shipped values: %+v %+v", cfg.Map, cfg.Simulation)
	}
}
