package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.Location != "upload-dir" {
		t.Fatalf("expected default location upload-dir, got %q", cfg.Storage.Location)
	}
	if cfg.Storage.MaxFileSize != 5120000 {
		t.Fatalf("expected default max size 5120000, got %d", cfg.Storage.MaxFileSize)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Instrumentation.Enabled {
		t.Fatal("instrumentation should be disabled by default")
	}
	if cfg.Mirror.Enabled {
		t.Fatal("mirror should be disabled by default")
	}
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	yaml := `
server:
  port: 9090
storage:
  location: /srv/uploads
mirror:
  enabled: true
  bucket: backups
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORAGE_MAX_FILE_SIZE", "1024")
	t.Setenv("MIRROR_ACCESS_KEY", "minio")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Location != "/srv/uploads" {
		t.Fatalf("expected location from yaml, got %q", cfg.Storage.Location)
	}
	if cfg.Storage.MaxFileSize != 1024 {
		t.Fatalf("expected env override 1024, got %d", cfg.Storage.MaxFileSize)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Bucket != "backups" {
		t.Fatalf("unexpected mirror config: %+v", cfg.Mirror)
	}
	if cfg.Mirror.AccessKey != "minio" {
		t.Fatalf("expected access key from env, got %q", cfg.Mirror.AccessKey)
	}
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "data", Name: "events"}
	if got := sqlite.DSN(); got != filepath.Join("data", "events.db") {
		t.Fatalf("unexpected sqlite DSN %q", got)
	}

	pg := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 5432, Name: "events"}
	want := "postgres://u:p@db:5432/events?sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
