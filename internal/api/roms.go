package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/mutation"
	"romshelf/internal/services"
	"romshelf/internal/textutil"
)

func (s *server) handleListRoms(c *gin.Context) {
	var query ListRomsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	roms, err := s.store.List(c.Request.Context(), catalog.ListOptions{
		PlatformID: query.PlatformID,
		SearchTerm: query.SearchTerm,
		OrderBy:    catalog.ParseOrderBy(query.OrderBy),
		OrderDir:   catalog.ParseOrderDir(query.OrderDir),
		Limit:      query.Limit,
		UserID:     userIDFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromRoms(roms))
}

func (s *server) handleGetRom(c *gin.Context) {
	id, ok := romID(c)
	if !ok {
		return
	}
	s.writeDetailed(c, id)
}

func (s *server) writeDetailed(c *gin.Context, id int64) {
	detailed, err := s.store.GetDetailed(c.Request.Context(), id, userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromDetailedRom(detailed))
}

func (s *server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	platformID, err := strconv.ParseInt(c.Query("platform_id"), 10, 64)
	if err != nil || platformID <= 0 {
		badRequest(c, "platform_id is required")
		return
	}
	platform, err := s.store.GetPlatform(ctx, platformID)
	if err != nil {
		writeError(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected multipart form: "+err.Error())
		return
	}
	files := form.File["roms"]
	if len(files) == 0 {
		badRequest(c, "no roms were uploaded")
		return
	}

	dir := s.resolver.BuildUploadPath(platform.FSSlug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(c, services.Wrap(services.ErrTransient, "api", "upload", "create platform directory", err))
		return
	}

	logger := logging.WithContext(ctx, s.logger)
	resp := UploadResponse{UploadedRoms: []string{}, SkippedRoms: []string{}}
	for _, fh := range files {
		name := textutil.SanitizeFileName(filepath.Base(fh.Filename))
		if name == "" || name == "." || name == ".." {
			resp.SkippedRoms = append(resp.SkippedRoms, fh.Filename)
			continue
		}
		if s.resolver.FileExists(dir, name) {
			logger.Info("upload skipped, file exists", logging.String("file_name", name))
			resp.SkippedRoms = append(resp.SkippedRoms, name)
			continue
		}
		existing, err := s.store.GetByFileName(ctx, platform.ID, name)
		if err != nil {
			writeError(c, err)
			return
		}
		if existing != nil {
			logger.Info("upload skipped, rom already catalogued",
				logging.String("file_name", name),
				logging.Int64(logging.FieldRomID, existing.ID),
			)
			resp.SkippedRoms = append(resp.SkippedRoms, name)
			continue
		}
		target := filepath.Join(dir, name)
		size, err := saveUpload(fh, target)
		if errors.Is(err, fs.ErrExist) {
			resp.SkippedRoms = append(resp.SkippedRoms, name)
			continue
		}
		if err != nil {
			writeError(c, services.Wrap(services.ErrTransient, "api", "upload", name, err))
			return
		}
		if _, err := s.store.Add(ctx, &catalog.Rom{
			PlatformID:    platform.ID,
			FileName:      name,
			FilePath:      library.RomDir(platform.FSSlug),
			FileSizeBytes: size,
		}); err != nil {
			if rmErr := os.Remove(target); rmErr != nil {
				logger.Warn("failed to remove upload after catalog error",
					logging.Error(rmErr),
					logging.String("file", target),
					logging.String(logging.FieldEventType, "upload_cleanup_failed"),
				)
			}
			writeError(c, err)
			return
		}
		logger.Info("rom uploaded",
			logging.String("file_name", name),
			logging.Int64("bytes", size),
			logging.Int64(logging.FieldPlatformID, platform.ID),
		)
		resp.UploadedRoms = append(resp.UploadedRoms, name)
	}
	c.JSON(http.StatusCreated, resp)
}

// saveUpload copies an uploaded part to path without replacing an existing
// file. A partial file is removed on failure.
func saveUpload(fh *multipart.FileHeader, path string) (int64, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

func (s *server) handleUpdateRom(c *gin.Context) {
	id, ok := romID(c)
	if !ok {
		return
	}
	req := mutation.UpdateRequest{
		Name:     formValue(c, "name"),
		FileName: formValue(c, "file_name"),
		Summary:  formValue(c, "summary"),
		URLCover: formValue(c, "url_cover"),
	}
	var err error
	if req.RenameAsSource, err = boolParam(c, "rename_as_source"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.RemoveCover, err = boolParam(c, "remove_cover"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.FileName != nil && strings.TrimSpace(*req.FileName) == "" {
		badRequest(c, "file_name must not be empty")
		return
	}

	fh, err := c.FormFile("artwork")
	switch {
	case err == nil:
		artwork, openErr := fh.Open()
		if openErr != nil {
			badRequest(c, "read artwork: "+openErr.Error())
			return
		}
		defer artwork.Close()
		req.Artwork = artwork
		req.ArtworkExt = filepath.Ext(fh.Filename)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		badRequest(c, "invalid artwork upload: "+err.Error())
		return
	}

	if _, err := s.mutator.Update(c.Request.Context(), id, req); err != nil {
		writeError(c, err)
		return
	}
	s.writeDetailed(c, id)
}

// formValue returns a pointer to a submitted form field, nil when absent.
func formValue(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

// boolParam reads a flag from the query string or the form body.
func boolParam(c *gin.Context, key string) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		raw, ok = c.GetPostForm(key)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return value, nil
}

func (s *server) handleDelete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid delete request: "+err.Error())
		return
	}
	if len(req.Roms) == 0 {
		badRequest(c, "roms must list at least one id")
		return
	}
	report := s.mutator.Delete(c.Request.Context(), req.Roms, req.DeleteFromFS)
	if failed := report.Failed(); len(failed) > 0 {
		logging.WarnWithContext(logging.WithContext(c.Request.Context(), s.logger), "delete finished with failures", "rom_delete_partial",
			logging.Int("requested", len(req.Roms)),
			logging.Int("deleted", report.Deleted),
			logging.Int("failed", len(failed)),
			logging.String(logging.FieldImpact, "some roms or files were not removed"),
			logging.String(logging.FieldErrorHint, "inspect per-id results in the response"),
		)
	}
	c.JSON(http.StatusOK, FromDeleteReport(report))
}

func (s *server) handleUpdateProps(c *gin.Context) {
	id, ok := romID(c)
	if !ok {
		return
	}
	var req PropsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid props request: "+err.Error())
		return
	}
	ctx := services.WithRomID(c.Request.Context(), id)
	props, err := s.store.UpdateProps(ctx, id, userIDFrom(c), catalog.PropsUpdate{
		NoteRawMarkdown: req.NoteRawMarkdown,
		NoteIsPublic:    req.NoteIsPublic,
		IsMainSibling:   req.IsMainSibling,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromProps(props))
}
