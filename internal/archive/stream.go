package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// DefaultChunkSize is the copy buffer used when Options.ChunkSize is unset.
const DefaultChunkSize = 64 * 1024

// memberMode is the permission recorded for every archive member.
const memberMode os.FileMode = 0o600

// ErrStreamClosed is returned by Read after Close.
var ErrStreamClosed = errors.New("archive stream closed")

// Member is one file to include in an archive. Size is the declared
// uncompressed size; the copied byte count must match it.
type Member struct {
	Name string
	Path string
	Size int64
}

// Options tunes stream production.
type Options struct {
	// Method is zip.Deflate or zip.Store. Zero means zip.Store.
	Method    uint16
	ChunkSize int
	// ModTime is stamped on every member. Zero means the time NewStream ran.
	ModTime time.Time
	Logger  *slog.Logger
}

// SourceError reports a member that could not be opened or read, or whose byte
// count differed from its declared size. It matches services.ErrSourceFileMissing.
type SourceError struct {
	Member string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("archive member %q: %v", e.Member, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{services.ErrSourceFileMissing, e.Err}
}

// Stream is an io.ReadCloser producing a ZIP archive.
type Stream struct {
	ctx      context.Context
	members  []Member
	playlist string
	method   uint16
	chunk    int
	modTime  time.Time
	logger   *slog.Logger

	pr *io.PipeReader
	pw *io.PipeWriter

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	closed    atomic.Bool
	done      chan struct{}
	stopCtx   func() bool
}

// NewStream prepares an archive of members followed by a playlist named
// "<archiveName>.m3u". No file is touched until the first Read.
func NewStream(ctx context.Context, members []Member, archiveName string, opts Options) (*Stream, error) {
	if len(members) == 0 {
		return nil, services.Wrap(services.ErrInvalidRequest, "archive", "new stream", "at least one member is required", nil)
	}
	archiveName = strings.TrimSpace(archiveName)
	if archiveName == "" {
		return nil, services.Wrap(services.ErrInvalidRequest, "archive", "new stream", "archive name is required", nil)
	}
	for _, m := range members {
		if strings.TrimSpace(m.Name) == "" || m.Size < 0 {
			return nil, services.Wrap(services.ErrInvalidRequest, "archive", "new stream", fmt.Sprintf("invalid member %q", m.Name), nil)
		}
	}
	method := opts.Method
	if method != zip.Deflate {
		method = zip.Store
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	pr, pw := io.Pipe()
	return &Stream{
		ctx:      ctx,
		members:  append([]Member(nil), members...),
		playlist: archiveName + ".m3u",
		method:   method,
		chunk:    chunk,
		modTime:  modTime,
		logger:   logging.NewComponentLogger(opts.Logger, "archive"),
		pr:       pr,
		pw:       pw,
		done:     make(chan struct{}),
	}, nil
}

// PlaylistName returns the name of the synthesized playlist member.
func (s *Stream) PlaylistName() string { return s.playlist }

// Read pulls the next archive bytes, starting production on first use.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrStreamClosed
	}
	s.startOnce.Do(s.start)
	n, err := s.pr.Read(p)
	if err != nil && s.closed.Load() {
		return n, ErrStreamClosed
	}
	return n, err
}

// Close aborts production and waits for the producer to release its open file.
// Closing a fully consumed stream is a no-op.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.startOnce.Do(func() {})
		_ = s.pr.CloseWithError(ErrStreamClosed)
		if s.started {
			<-s.done
		}
	})
	return nil
}

func (s *Stream) start() {
	s.started = true
	s.stopCtx = context.AfterFunc(s.ctx, func() {
		_ = s.pw.CloseWithError(s.ctx.Err())
	})
	go s.produce()
}

func (s *Stream) produce() {
	defer close(s.done)
	defer s.stopCtx()

	started := time.Now()
	zw := zip.NewWriter(s.pw)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	var total int64
	for _, m := range s.members {
		if err := s.writeMember(zw, m); err != nil {
			s.fail(err, m.Name)
			return
		}
		total += m.Size
	}
	if err := s.writePlaylist(zw); err != nil {
		s.fail(err, s.playlist)
		return
	}
	if err := zw.Close(); err != nil {
		s.fail(err, "")
		return
	}
	_ = s.pw.Close()
	s.logger.Debug("archive stream complete",
		logging.Int("members", len(s.members)),
		logging.Int64("source_bytes", total),
		logging.Duration("elapsed", time.Since(started)),
	)
}

// fail aborts the pipe without writing the central directory.
func (s *Stream) fail(err error, member string) {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		logging.WarnWithContext(s.logger, "archive source unreadable", "archive_source_missing",
			logging.String("member", member),
			logging.Error(err),
			logging.String(logging.FieldImpact, "download aborted before the central directory"),
			logging.String(logging.FieldErrorHint, "rescan the library to resync the catalog"),
		)
	} else {
		s.logger.Debug("archive stream aborted", logging.String("member", member), logging.Error(err))
	}
	_ = s.pw.CloseWithError(err)
}

func (s *Stream) header(name string, size int64) *zip.FileHeader {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   s.method,
		Modified: s.modTime,
	}
	hdr.SetMode(memberMode)
	hdr.UncompressedSize64 = uint64(size)
	return hdr
}

func (s *Stream) writeMember(zw *zip.Writer, m Member) error {
	f, err := os.Open(m.Path)
	if err != nil {
		return &SourceError{Member: m.Name, Err: err}
	}
	defer f.Close()

	w, err := zw.CreateHeader(s.header(m.Name, m.Size))
	if err != nil {
		return err
	}

	buf := make([]byte, s.chunk)
	var copied int64
	for {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			copied += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return &SourceError{Member: m.Name, Err: rerr}
		}
	}
	if copied != m.Size {
		return &SourceError{Member: m.Name, Err: fmt.Errorf("read %d bytes, expected %d", copied, m.Size)}
	}
	return nil
}

func (s *Stream) writePlaylist(zw *zip.Writer) error {
	content := Playlist(memberNames(s.members))
	w, err := zw.CreateHeader(s.header(s.playlist, int64(len(content))))
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Playlist renders the m3u body: each name followed by a newline, in order.
func Playlist(names []string) []byte {
	size := 0
	for _, name := range names {
		size += len(name) + 1
	}
	out := make([]byte, 0, size)
	for _, name := range names {
		out = append(out, name...)
		out = append(out, '\n')
	}
	return out
}

func memberNames(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}

// ParseMethod maps a configured compression name to a zip method.
func ParseMethod(name string) (uint16, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "deflate":
		return zip.Deflate, nil
	case "store":
		return zip.Store, nil
	default:
		return 0, services.Wrap(services.ErrConfiguration, "archive", "parse method", fmt.Sprintf("unsupported compression %q", name), nil)
	}
}
