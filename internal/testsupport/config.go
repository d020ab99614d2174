package testsupport

import (
	"path/filepath"
	"testing"

	"romshelf/internal/config"
	"romshelf/internal/library"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.ResourcesDir = filepath.Join(base, "resources")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "catalog.db")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Auth.JWTSecret = ""
	cfgVal.Auth.DefaultUserID = 1
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithJWTSecret enables token authentication on the test config.
func WithJWTSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.JWTSecret = secret
	}
}

// WithPublicDownloads lets content routes skip authentication.
func WithPublicDownloads() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.PublicDownloads = true
	}
}

// WithCompression overrides the archive compression method.
func WithCompression(method string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Compression = method
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}

// NewResolver builds a path resolver over the config's library and resources
// directories.
func NewResolver(t testing.TB, cfg *config.Config) *library.Resolver {
	t.Helper()

	resolver, err := library.NewResolver(cfg.Paths.LibraryDir, cfg.Paths.ResourcesDir)
	if err != nil {
		t.Fatalf("library.NewResolver: %v", err)
	}
	return resolver
}
