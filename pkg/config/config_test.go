package config

import (
	"os"
	"runtime"
	"testing"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.LocalPath != "./data/darnio" {
		t.Errorf("Storage.LocalPath = %s, want ./data/darnio", cfg.Storage.LocalPath)
	}
	if cfg.Restructure.Workers != runtime.NumCPU() {
		t.Errorf("Restructure.Workers = %d, want %d", cfg.Restructure.Workers, runtime.NumCPU())
	}
	if cfg.Dmap.Compression != "none" {
		t.Errorf("Dmap.Compression = %s, want none", cfg.Dmap.Compression)
	}
	if len(cfg.Dmap.EmptyAllowed) != 1 || cfg.Dmap.EmptyAllowed[0] != "slist" {
		t.Errorf("Dmap.EmptyAllowed = %v, want [slist]", cfg.Dmap.EmptyAllowed)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DARNIO_STORAGE_LOCAL_PATH", "/var/lib/darnio")
	t.Setenv("DARNIO_RESTRUCTURE_WORKERS", "3")
	t.Setenv("DARNIO_DMAP_COMPRESSION", "zstd")
	t.Setenv("DARNIO_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.LocalPath != "/var/lib/darnio" {
		t.Errorf("Storage.LocalPath = %s, want /var/lib/darnio", cfg.Storage.LocalPath)
	}
	if cfg.Restructure.Workers != 3 {
		t.Errorf("Restructure.Workers = %d, want 3", cfg.Restructure.Workers)
	}
	if cfg.Dmap.Compression != "zstd" {
		t.Errorf("Dmap.Compression = %s, want zstd", cfg.Dmap.Compression)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DARNIO_DMAP_COMPRESSION", "lz77")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted invalid dmap.compression")
	}

	t.Setenv("DARNIO_DMAP_COMPRESSION", "gzip")
	t.Setenv("DARNIO_RESTRUCTURE_WORKERS", "0")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted zero restructure.workers")
	}
}
