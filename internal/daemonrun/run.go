package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"romshelf/internal/api"
	"romshelf/internal/artwork"
	"romshelf/internal/auth"
	"romshelf/internal/catalog"
	"romshelf/internal/config"
	"romshelf/internal/content"
	"romshelf/internal/daemon"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/mutation"
	"romshelf/internal/preflight"
	"romshelf/internal/scan"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// ScanOnStart runs a library scan once the API is listening.
	ScanOnStart bool
}

// Run starts the romshelf daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg, logging.Options{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "requests touching this resource will fail"),
		)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "romshelfd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}

	svc, err := Build(cfg, store, logger)
	if err != nil {
		store.Close()
		return err
	}
	logConfigSnapshot(logger, cfg, svc.Auth)

	d, err := daemon.New(cfg, store, svc.Router, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	if opts.ScanOnStart {
		group.Go(func() error {
			runStartupScan(groupCtx, svc.Scanner, cfg, logger)
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("romshelf daemon shutting down")
	return nil
}

// Services are the long-lived components the daemon dispatches to.
type Services struct {
	Resolver *library.Resolver
	Content  *content.Service
	Mutator  *mutation.Orchestrator
	Scanner  *scan.Scanner
	Auth     *auth.Authenticator
	Router   *gin.Engine
}

// Build constructs every service over an open catalog and wires the HTTP
// router.
func Build(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Services, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("config and catalog store are required")
	}
	resolver, err := library.NewResolver(cfg.Paths.LibraryDir, cfg.Paths.ResourcesDir)
	if err != nil {
		return nil, err
	}
	contentSvc, err := content.NewService(store, resolver, content.Options{
		Compression: cfg.Archive.Compression,
		ChunkSize:   cfg.ArchiveChunkSize(),
	}, logger)
	if err != nil {
		return nil, err
	}
	covers := artwork.NewStore(resolver, cfg.Artwork.SmallWidth, logger)
	mutator := mutation.New(store, resolver, covers, logger)
	authn := auth.New(cfg.Auth)

	router, err := api.NewRouter(api.Deps{
		Store:           store,
		Resolver:        resolver,
		Content:         contentSvc,
		Mutator:         mutator,
		Auth:            authn,
		PublicDownloads: cfg.Auth.PublicDownloads,
		CORSOrigins:     cfg.Auth.CORSOrigins,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return &Services{
		Resolver: resolver,
		Content:  contentSvc,
		Mutator:  mutator,
		Scanner:  scan.NewScanner(store, resolver, cfg.Scan.Concurrency, logger),
		Auth:     authn,
		Router:   router,
	}, nil
}

func runStartupScan(ctx context.Context, scanner *scan.Scanner, cfg *config.Config, logger *slog.Logger) {
	report, err := scanner.Scan(ctx, scan.Options{Purge: cfg.Scan.Purge})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(logger, "startup scan failed", "startup_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.library_dir and run romshelf scan"),
			logging.String(logging.FieldImpact, "catalog may not reflect the library on disk"),
		)
		return
	}
	logger.Info("startup scan complete",
		logging.String(logging.FieldEventType, "startup_scan_complete"),
		logging.Int("platforms", len(report.Platforms)),
		logging.Int("roms", report.Roms()),
		logging.Int64("purged", report.Purged()),
		logging.String("size", humanize.IBytes(uint64(report.Bytes()))),
		logging.Duration("elapsed", report.Duration),
	)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, authn *auth.Authenticator) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("library_dir", cfg.Paths.LibraryDir),
		logging.String("resources_dir", cfg.Paths.ResourcesDir),
		logging.String("database", cfg.Paths.DatabasePath),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("auth_enabled", authn.Enabled()),
		logging.Bool("public_downloads", cfg.Auth.PublicDownloads),
		logging.String("compression", cfg.Archive.Compression),
		logging.Int("scan_concurrency", cfg.Scan.Concurrency),
	)
}
