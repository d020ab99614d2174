package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"romshelf/internal/archive"
	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// Kind says whether a delivery is a plain file or an archive.
type Kind int

const (
	KindSingle Kind = iota
	KindArchive
)

func (k Kind) String() string {
	if k == KindArchive {
		return "archive"
	}
	return "single"
}

// Delivery describes what to send for one content request.
type Delivery struct {
	Kind Kind
	Rom  *catalog.Rom
	// Path and Size describe the file for KindSingle.
	Path string
	Size int64
	// DownloadName is the attachment file name offered to the client.
	DownloadName string
	// Members and ArchiveName describe the archive for KindArchive.
	Members     []archive.Member
	ArchiveName string
}

// ProbeInfo answers a HEAD request without reading file contents.
type ProbeInfo struct {
	Rom           *catalog.Rom
	Path          string
	ContentLength int64
	DownloadName  string
}

// Options configures archive production.
type Options struct {
	Compression string
	ChunkSize   int
}

// Service resolves and opens ROM content.
type Service struct {
	store    *catalog.Store
	resolver *library.Resolver
	method   uint16
	chunk    int
	logger   *slog.Logger
}

// NewService builds a content service. Unknown compression names are a
// configuration error.
func NewService(store *catalog.Store, resolver *library.Resolver, opts Options, logger *slog.Logger) (*Service, error) {
	method, err := archive.ParseMethod(opts.Compression)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		method:   method,
		chunk:    opts.ChunkSize,
		logger:   logging.NewComponentLogger(logger, "content"),
	}, nil
}

// Resolve picks the delivery for romID. requested selects members of a
// multi-file ROM; none selects every member. archiveName names the archive
// and its playlist and falls back to the ROM's display name.
func (s *Service) Resolve(ctx context.Context, romID int64, archiveName string, requested []string) (*Delivery, error) {
	rom, err := s.store.GetByID(ctx, romID)
	if err != nil {
		return nil, err
	}

	if !rom.Multi {
		path := s.resolver.RomPath(rom.FilePath, rom.FileName)
		size, err := statFile(path, rom.FileName)
		if err != nil {
			return nil, err
		}
		return &Delivery{Kind: KindSingle, Rom: rom, Path: path, Size: size, DownloadName: rom.FileName}, nil
	}

	names, err := selectMembers(rom, requested)
	if err != nil {
		return nil, err
	}

	if len(names) == 1 {
		path, err := s.resolver.MemberPath(rom.FilePath, rom.FileName, names[0])
		if err != nil {
			return nil, err
		}
		size, err := statFile(path, names[0])
		if err != nil {
			return nil, err
		}
		return &Delivery{Kind: KindSingle, Rom: rom, Path: path, Size: size, DownloadName: names[0]}, nil
	}

	members := make([]archive.Member, 0, len(names))
	for _, name := range names {
		path, err := s.resolver.MemberPath(rom.FilePath, rom.FileName, name)
		if err != nil {
			return nil, err
		}
		size, err := statFile(path, name)
		if err != nil {
			return nil, err
		}
		members = append(members, archive.Member{Name: name, Path: path, Size: size})
	}

	name := strings.TrimSuffix(strings.TrimSpace(archiveName), ".zip")
	if name == "" {
		name = rom.Name
	}
	if name == "" {
		name = rom.FileName
	}
	return &Delivery{
		Kind:         KindArchive,
		Rom:          rom,
		DownloadName: name + ".zip",
		Members:      members,
		ArchiveName:  name,
	}, nil
}

// Open returns a reader over the delivery's bytes. Archive streams stop
// producing when ctx is cancelled or the reader is closed.
func (s *Service) Open(ctx context.Context, d *Delivery) (io.ReadCloser, error) {
	if d == nil {
		return nil, services.Wrap(services.ErrInvalidRequest, "content", "open", "delivery is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if d.Kind == KindSingle {
		f, err := os.Open(d.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrNotFound, "content", "open", d.DownloadName, err)
			}
			return nil, services.Wrap(services.ErrTransient, "content", "open", d.DownloadName, err)
		}
		return f, nil
	}

	stream, err := archive.NewStream(ctx, d.Members, d.ArchiveName, archive.Options{
		Method:    s.method,
		ChunkSize: s.chunk,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("archive stream prepared",
		logging.Int("members", len(d.Members)),
		logging.String("archive", d.DownloadName),
	)
	return stream, nil
}

// Probe reports the size a HEAD response advertises: the ROM file, or the
// first stored member of a multi-file ROM. For multi-file ROMs this is only an
// approximation of what a GET will send.
func (s *Service) Probe(ctx context.Context, romID int64) (*ProbeInfo, error) {
	rom, err := s.store.GetByID(ctx, romID)
	if err != nil {
		return nil, err
	}
	if !rom.Multi {
		path := s.resolver.RomPath(rom.FilePath, rom.FileName)
		size, err := statFile(path, rom.FileName)
		if err != nil {
			return nil, err
		}
		return &ProbeInfo{Rom: rom, Path: path, ContentLength: size, DownloadName: rom.FileName}, nil
	}
	if len(rom.Files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "content", "probe", fmt.Sprintf("rom %d has no member files", rom.ID), nil)
	}
	path, err := s.resolver.MemberPath(rom.FilePath, rom.FileName, rom.Files[0])
	if err != nil {
		return nil, err
	}
	size, err := statFile(path, rom.Files[0])
	if err != nil {
		return nil, err
	}
	return &ProbeInfo{Rom: rom, Path: path, ContentLength: size, DownloadName: rom.Name + ".zip"}, nil
}

// selectMembers returns the requested members in request order, or every
// stored member when none were requested.
func selectMembers(rom *catalog.Rom, requested []string) ([]string, error) {
	var names []string
	for _, name := range requested {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		names = rom.Files
	}
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "content", "resolve", fmt.Sprintf("rom %d has no member files", rom.ID), nil)
	}
	for _, name := range names {
		if !slices.Contains(rom.Files, name) {
			return nil, services.Wrap(services.ErrNotFound, "content", "resolve", fmt.Sprintf("%q is not a member of rom %d", name, rom.ID), nil)
		}
	}
	return names, nil
}

func statFile(path, name string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "content", "stat", fmt.Sprintf("%q is missing on disk", name), err)
		}
		return 0, services.Wrap(services.ErrTransient, "content", "stat", name, err)
	}
	if info.IsDir() {
		return 0, services.Wrap(services.ErrNotFound, "content", "stat", fmt.Sprintf("%q is a directory", name), nil)
	}
	return info.Size(), nil
}
