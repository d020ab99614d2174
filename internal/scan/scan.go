package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// Options selects what a scan covers.
type Options struct {
	// Platforms limits the scan to these fs slugs. Empty scans every platform.
	Platforms []string
	// Purge removes catalog ROMs whose files were not found.
	Purge bool
}

// PlatformReport summarizes one scanned platform.
type PlatformReport struct {
	FSSlug     string
	PlatformID int64
	Roms       int
	Multi      int
	Bytes      int64
	Purged     int64
}

// Report summarizes a scan.
type Report struct {
	Platforms []PlatformReport
	Duration  time.Duration
}

// Roms returns the number of ROMs seen across every platform.
func (r *Report) Roms() int {
	total := 0
	for _, p := range r.Platforms {
		total += p.Roms
	}
	return total
}

// Purged returns the number of catalog ROMs removed across every platform.
func (r *Report) Purged() int64 {
	var total int64
	for _, p := range r.Platforms {
		total += p.Purged
	}
	return total
}

// Bytes returns the total size of the ROMs seen.
func (r *Report) Bytes() int64 {
	var total int64
	for _, p := range r.Platforms {
		total += p.Bytes
	}
	return total
}

// Scanner synchronizes the catalog with the library directory.
type Scanner struct {
	store       *catalog.Store
	resolver    *library.Resolver
	concurrency int
	logger      *slog.Logger
}

// NewScanner builds a scanner that scans up to concurrency platforms at once.
func NewScanner(store *catalog.Store, resolver *library.Resolver, concurrency int, logger *slog.Logger) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		store:       store,
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "scan"),
	}
}

// Scan walks the selected platforms and records their ROMs.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	slugs, err := s.platformSlugs(opts.Platforms)
	if err != nil {
		return nil, err
	}

	reports := make([]PlatformReport, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, slug := range slugs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.scanPlatform(gctx, slug, opts.Purge)
			if err != nil {
				return fmt.Errorf("scan platform %s: %w", slug, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Platforms: reports, Duration: time.Since(start)}
	s.logger.Info("library scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("platforms", len(reports)),
		logging.Int("roms", report.Roms()),
		logging.Int64("purged", report.Purged()),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// platformSlugs lists the platform directories to scan. Requested slugs must
// exist; without a request every non-hidden directory holding a roms
// directory is used.
func (s *Scanner) platformSlugs(requested []string) ([]string, error) {
	root := s.resolver.LibraryDir()
	if len(requested) > 0 {
		slugs := make([]string, 0, len(requested))
		for _, slug := range requested {
			slug = strings.TrimSpace(slug)
			if slug == "" {
				continue
			}
			if !isDir(s.resolver.BuildUploadPath(slug)) {
				return nil, services.Wrap(services.ErrNotFound, "scan", "list platforms", fmt.Sprintf("no roms directory for platform %q", slug), nil)
			}
			if !slices.Contains(slugs, slug) {
				slugs = append(slugs, slug)
			}
		}
		return slugs, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if library.IsUnavailable(err) {
			return nil, services.Wrap(services.ErrTransient, "scan", "list platforms", "library unavailable", err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "scan", "list platforms", fmt.Sprintf("library dir %s does not exist", root), err)
		}
		return nil, fmt.Errorf("read library dir: %w", err)
	}
	var slugs []string
	for _, entry := range entries {
		if !entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		if isDir(s.resolver.BuildUploadPath(entry.Name())) {
			slugs = append(slugs, entry.Name())
		}
	}
	return slugs, nil
}

func (s *Scanner) scanPlatform(ctx context.Context, fsSlug string, purge bool) (PlatformReport, error) {
	report := PlatformReport{FSSlug: fsSlug}
	platform, err := s.store.AddPlatform(ctx, fsSlug, fsSlug)
	if err != nil {
		return report, err
	}
	report.PlatformID = platform.ID
	logger := s.logger.With(logging.Int64(logging.FieldPlatformID, platform.ID))

	dir := s.resolver.BuildUploadPath(fsSlug)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", dir, err)
	}

	relDir := library.RomDir(fsSlug)
	seen := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := entry.Name()
		if hidden(name) {
			continue
		}
		rom := &catalog.Rom{PlatformID: platform.ID, FileName: name, FilePath: relDir}
		switch {
		case entry.IsDir():
			members, size, err := listMembers(filepath.Join(dir, name))
			if err != nil {
				logger.Warn("skipping unreadable multi-file rom",
					logging.Error(err),
					logging.String("file", name),
					logging.String(logging.FieldEventType, "scan_entry_skipped"),
				)
				continue
			}
			if len(members) == 0 {
				continue
			}
			rom.Multi = true
			rom.Files = members
			rom.FileSizeBytes = size
			report.Multi++
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				continue
			}
			rom.FileSizeBytes = info.Size()
		default:
			continue
		}

		if _, err := s.store.Add(ctx, rom); err != nil {
			return report, err
		}
		seen = append(seen, name)
		report.Roms++
		report.Bytes += rom.FileSizeBytes
	}

	if purge {
		removed, err := s.store.Purge(ctx, platform.ID, seen)
		if err != nil {
			return report, err
		}
		report.Purged = removed
	}

	logger.Debug("platform scanned",
		logging.String("fs_slug", fsSlug),
		logging.Int("roms", report.Roms),
		logging.Int64("purged", report.Purged),
	)
	return report, nil
}

// listMembers returns the non-hidden regular files of dir sorted by name and
// their combined size.
func listMembers(dir string) ([]string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	var (
		members []string
		total   int64
	)
	for _, entry := range entries {
		if hidden(entry.Name()) || !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, 0, err
		}
		members = append(members, entry.Name())
		total += info.Size()
	}
	return members, total, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
