package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"romshelf/internal/content"
	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// streamBufferSize is the write unit for archive responses; every chunk is
// flushed to the client.
const streamBufferSize = 64 * 1024

func attachment(name string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": name}); value != "" {
		return value
	}
	return "attachment"
}

// handleHeadContent advertises the size of the ROM file, or of the first
// member of a multi-file ROM.
func (s *server) handleHeadContent(c *gin.Context) {
	id, ok := romID(c)
	if !ok {
		return
	}
	info, err := s.content.Probe(services.WithRomID(c.Request.Context(), id), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", attachment(info.Rom.Name+".zip"))
	c.Header("Content-Length", strconv.FormatInt(info.ContentLength, 10))
	c.Status(http.StatusOK)
}

func (s *server) handleGetContent(c *gin.Context) {
	id, ok := romID(c)
	if !ok {
		return
	}
	ctx := services.WithRomID(c.Request.Context(), id)
	delivery, err := s.content.Resolve(ctx, id, c.Param("file_name"), c.QueryArray("files"))
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := s.content.Open(ctx, delivery)
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()

	if delivery.Kind == content.KindSingle {
		c.Header("Content-Disposition", attachment(delivery.DownloadName))
		if seeker, ok := body.(io.ReadSeeker); ok {
			http.ServeContent(c.Writer, c.Request, delivery.DownloadName, time.Time{}, seeker)
			return
		}
		c.DataFromReader(http.StatusOK, delivery.Size, "application/octet-stream", body, nil)
		return
	}
	s.streamArchive(c, delivery, body)
}

// streamArchive copies the archive to the client chunk by chunk. A failure
// after the first byte cannot be reported in-band, so the connection is
// aborted and the client never sees a complete archive.
func (s *server) streamArchive(c *gin.Context, delivery *content.Delivery, body io.Reader) {
	ctx := c.Request.Context()
	logger := logging.WithContext(ctx, s.logger)

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", attachment(delivery.DownloadName))
	c.Status(http.StatusOK)

	buf := make([]byte, streamBufferSize)
	var sent int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				logger.Debug("archive client went away", logging.Int64("bytes", sent), logging.Error(werr))
				return
			}
			c.Writer.Flush()
			sent += int64(n)
		}
		if rerr == io.EOF {
			logger.Info("archive delivered",
				logging.String("archive", delivery.DownloadName),
				logging.Int("members", len(delivery.Members)),
				logging.Int64("bytes", sent),
			)
			return
		}
		if rerr != nil {
			if ctx.Err() != nil {
				logger.Debug("archive request cancelled", logging.Int64("bytes", sent))
				return
			}
			event := "archive_stream_failed"
			if errors.Is(rerr, services.ErrSourceFileMissing) {
				event = "archive_source_missing"
			}
			logger.Error("archive stream aborted",
				logging.String("archive", delivery.DownloadName),
				logging.Int64("bytes", sent),
				logging.Error(rerr),
				logging.String(logging.FieldEventType, event),
				logging.String(logging.FieldErrorHint, "rescan the platform to resync the catalog with the library"),
			)
			panic(http.ErrAbortHandler)
		}
	}
}
