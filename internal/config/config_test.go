package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"romshelf/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ROMSHELF_JWT_SECRET", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	wantResources := filepath.Join(tempHome, ".local", "share", "romshelf", "resources")
	if cfg.Paths.ResourcesDir != wantResources {
		t.Fatalf("unexpected resources dir: got %q want %q", cfg.Paths.ResourcesDir, wantResources)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Archive.Compression != "deflate" {
		t.Fatalf("expected deflate compression by default, got %q", cfg.Archive.Compression)
	}
	if cfg.ArchiveChunkSize() != 64*1024 {
		t.Fatalf("unexpected chunk size: %d", cfg.ArchiveChunkSize())
	}
	if cfg.Auth.DefaultUserID != 1 {
		t.Fatalf("expected default user 1, got %d", cfg.Auth.DefaultUserID)
	}
	if !cfg.Scan.Purge {
		t.Fatal("expected purge enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.LibraryDir, cfg.Paths.LogDir, cfg.Paths.ResourcesDir, filepath.Dir(cfg.Paths.DatabasePath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "romshelf.toml")

	type payload struct {
		Paths struct {
			LibraryDir string `toml:"library_dir"`
		} `toml:"paths"`
		Archive struct {
			Compression string `toml:"compression"`
		} `toml:"archive"`
		Auth struct {
			JWTSecret   string   `toml:"jwt_secret"`
			CORSOrigins []string `toml:"cors_origins"`
		} `toml:"auth"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "roms")
	custom.Archive.Compression = " STORE "
	custom.Auth.JWTSecret = "0123456789abcdef0123"
	custom.Auth.CORSOrigins = []string{"http://localhost:3000/", "  "}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempDir, "roms") {
		t.Fatalf("unexpected library dir %q", cfg.Paths.LibraryDir)
	}
	if cfg.Archive.Compression != "store" {
		t.Fatalf("expected normalized compression, got %q", cfg.Archive.Compression)
	}
	if len(cfg.Auth.CORSOrigins) != 1 || cfg.Auth.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins %v", cfg.Auth.CORSOrigins)
	}
}

func TestEnvVarFillsJWTSecret(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROMSHELF_JWT_SECRET", "  env-secret-0123456789  ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret-0123456789" {
		t.Fatalf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "change_me_to_a_long_random_secret") {
		t.Fatalf("sample config missing placeholder secret: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.ResourcesDir, "romshelf") {
		t.Fatalf("expected resources dir to contain romshelf, got %q", cfg.Paths.ResourcesDir)
	}
	if cfg.Archive.ChunkSizeKiB != 64 {
		t.Fatalf("unexpected sample chunk size %d", cfg.Archive.ChunkSizeKiB)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Compression = "bzip2"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown compression")
	}

	cfg = config.Default()
	cfg.Scan.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive scan concurrency")
	}

	cfg = config.Default()
	cfg.Auth.DefaultUserID = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without secret or default user")
	}

	cfg = config.Default()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short secret")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
