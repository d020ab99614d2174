package api_test

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"romshelf/internal/api"
	"romshelf/internal/artwork"
	"romshelf/internal/auth"
	"romshelf/internal/catalog"
	"romshelf/internal/config"
	"romshelf/internal/content"
	"romshelf/internal/library"
	"romshelf/internal/mutation"
	"romshelf/internal/testsupport"
)

const testSecret = "test-secret-0123456789abcdef"

type apiEnv struct {
	cfg      *config.Config
	store    *catalog.Store
	resolver *library.Resolver
	authn    *auth.Authenticator
	router   *gin.Engine
	platform *catalog.Platform
}

func newAPIEnv(t *testing.T, opts ...testsupport.ConfigOption) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := testsupport.NewResolver(t, cfg)
	contentSvc, err := content.NewService(store, resolver, content.Options{
		Compression: cfg.Archive.Compression,
		ChunkSize:   cfg.ArchiveChunkSize(),
	}, nil)
	if err != nil {
		t.Fatalf("content.NewService: %v", err)
	}
	covers := artwork.NewStore(resolver, cfg.Artwork.SmallWidth, nil)
	authn := auth.New(cfg.Auth)
	router, err := api.NewRouter(api.Deps{
		Store:           store,
		Resolver:        resolver,
		Content:         contentSvc,
		Mutator:         mutation.New(store, resolver, covers, nil),
		Auth:            authn,
		PublicDownloads: cfg.Auth.PublicDownloads,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &apiEnv{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		authn:    authn,
		router:   router,
		platform: testsupport.SeedPlatform(t, cfg, store, "snes"),
	}
}

func (e *apiEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *apiEnv) postJSON(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func romPath(id int64, suffix string) string {
	return "/api/roms/" + strconv.FormatInt(id, 10) + suffix
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.get(t, "/api/healthz")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[api.HealthResponse](t, rec); got.Status != "ok" {
		t.Fatalf("unexpected health %+v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestListRomsFiltersBySearchTerm(t *testing.T) {
	env := newAPIEnv(t)
	for _, name := range []string{"Super Mario Bros.zip", "MARIO_KART.zip", "Luigi.zip"} {
		testsupport.SeedRom(t, env.cfg, env.store, env.platform, name, []byte(name))
	}

	rec := env.get(t, "/api/roms?search_term=mario&order_by=name&order_dir=desc")
	expectStatus(t, rec, http.StatusOK)
	roms := decode[[]api.Rom](t, rec)
	if len(roms) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(roms))
	}
	if roms[0].FileName != "Super Mario Bros.zip" || roms[1].FileName != "MARIO_KART.zip" {
		t.Fatalf("unexpected order: %q, %q", roms[0].FileName, roms[1].FileName)
	}
	if roms[0].FullPath != "snes/roms/Super Mario Bros.zip" {
		t.Fatalf("unexpected full path %q", roms[0].FullPath)
	}

	rec = env.get(t, "/api/roms?limit=abc")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestGetRomUnknownIDReturnsEnvelope(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.get(t, "/api/roms/999")
	expectStatus(t, rec, http.StatusNotFound)
	envelope := decode[api.ErrorEnvelope](t, rec)
	if envelope.Error.Code != "not_found" || envelope.Error.Message == "" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}

	expectStatus(t, env.get(t, "/api/roms/abc"), http.StatusBadRequest)
}

func TestGetRomIncludesSiblingsAndProps(t *testing.T) {
	env := newAPIEnv(t)
	usa := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Zelda (USA).sfc", []byte("u"))
	testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Zelda (Europe).sfc", []byte("e"))

	rec := env.postJSON(t, http.MethodPut, romPath(usa.ID, "/props"), map[string]any{"is_main_sibling": true, "note_raw_markdown": "best"})
	expectStatus(t, rec, http.StatusOK)
	props := decode[api.UserProps](t, rec)
	if !props.IsMainSibling || props.UserID != 1 || props.NoteRawMarkdown != "best" {
		t.Fatalf("unexpected props %+v", props)
	}

	rec = env.get(t, romPath(usa.ID, ""))
	expectStatus(t, rec, http.StatusOK)
	detailed := decode[api.DetailedRom](t, rec)
	if len(detailed.Siblings) != 1 || detailed.Siblings[0].FileName != "Zelda (Europe).sfc" {
		t.Fatalf("unexpected siblings %+v", detailed.Siblings)
	}
	if detailed.Props == nil || !detailed.Props.IsMainSibling {
		t.Fatalf("expected main sibling props, got %+v", detailed.Props)
	}
	if !detailed.IsMainSibling || detailed.SiblingCount != 1 {
		t.Fatalf("unexpected overlay: main=%v siblings=%d", detailed.IsMainSibling, detailed.SiblingCount)
	}
}

func TestAuthenticationRequiresValidToken(t *testing.T) {
	env := newAPIEnv(t, testsupport.WithJWTSecret(testSecret))

	rec := env.get(t, "/api/platforms")
	expectStatus(t, rec, http.StatusUnauthorized)
	if decode[api.ErrorEnvelope](t, rec).Error.Code != "unauthorized" {
		t.Fatalf("unexpected envelope %s", rec.Body.String())
	}

	token, err := env.authn.Mint(7, 0)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	expectStatus(t, rec, http.StatusOK)
	platforms := decode[[]api.Platform](t, rec)
	if len(platforms) != 1 || platforms[0].FSSlug != "snes" {
		t.Fatalf("unexpected platforms %+v", platforms)
	}

	expectStatus(t, env.get(t, "/api/platforms?token="+token), http.StatusOK)
	expectStatus(t, env.get(t, "/api/platforms?token=garbage"), http.StatusUnauthorized)
	expectStatus(t, env.get(t, "/api/healthz"), http.StatusOK)
}

func TestPublicDownloadsSkipAuthentication(t *testing.T) {
	env := newAPIEnv(t, testsupport.WithJWTSecret(testSecret), testsupport.WithPublicDownloads())
	rom := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Tetris.gb", []byte("tetris"))

	expectStatus(t, env.get(t, romPath(rom.ID, "/content/Tetris.gb")), http.StatusOK)
	expectStatus(t, env.get(t, romPath(rom.ID, "")), http.StatusUnauthorized)
}

func TestGetContentSingleFile(t *testing.T) {
	env := newAPIEnv(t)
	payload := []byte("single file payload")
	rom := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Tetris (World).gb", payload)

	rec := env.get(t, romPath(rom.ID, "/content/Tetris.gb"))
	expectStatus(t, rec, http.StatusOK)
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(payload)) {
		t.Fatalf("unexpected content length %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "Tetris (World).gb") {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func seedThreeDiscRom(t *testing.T, env *apiEnv, members map[string][]byte) *catalog.Rom {
	t.Helper()
	return testsupport.SeedMultiRom(t, env.cfg, env.store, env.platform, "FF7", members, []string{"disc1.bin", "disc2.bin", "disc3.bin"})
}

func TestGetContentArchiveKeepsRequestedOrder(t *testing.T) {
	env := newAPIEnv(t)
	members := map[string][]byte{
		"disc1.bin": []byte("one"),
		"disc2.bin": []byte("two two"),
		"disc3.bin": []byte("three three three"),
	}
	rom := seedThreeDiscRom(t, env, members)

	rec := env.get(t, romPath(rom.ID, "/content/FF7?files=disc3.bin&files=disc1.bin"))
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "FF7.zip") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Fatalf("archive must not advertise a length, got %q", rec.Header().Get("Content-Length"))
	}

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	want := []string{"disc3.bin", "disc1.bin", "FF7.m3u"}
	if len(zr.File) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, f.Name, want[i])
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %q: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %q: %v", f.Name, err)
		}
		expected := members[f.Name]
		if f.Name == "FF7.m3u" {
			expected = []byte("disc3.bin\ndisc1.bin\n")
		}
		if !bytes.Equal(data, expected) {
			t.Fatalf("entry %q: got %q want %q", f.Name, data, expected)
		}
	}

	expectStatus(t, env.get(t, romPath(rom.ID, "/content/FF7?files=disc9.bin")), http.StatusNotFound)
}

func TestGetContentSingleRequestedMemberIsRaw(t *testing.T) {
	env := newAPIEnv(t)
	rom := seedThreeDiscRom(t, env, map[string][]byte{
		"disc1.bin": []byte("one"),
		"disc2.bin": []byte("two"),
		"disc3.bin": []byte("three"),
	})
	rec := env.get(t, romPath(rom.ID, "/content/FF7?files=disc2.bin"))
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "two" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHeadContentReportsFirstMemberSize(t *testing.T) {
	env := newAPIEnv(t)
	rom := seedThreeDiscRom(t, env, map[string][]byte{
		"disc1.bin": bytes.Repeat([]byte("a"), 1234),
		"disc2.bin": []byte("b"),
		"disc3.bin": []byte("c"),
	})

	rec := env.do(t, httptest.NewRequest(http.MethodHead, romPath(rom.ID, "/content/FF7"), nil))
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Length"); got != "1234" {
		t.Fatalf("expected first member size, got %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("unexpected content type %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD must not send a body, got %d bytes", rec.Body.Len())
	}
}

func TestArchiveAbortsWhenMemberDisappears(t *testing.T) {
	env := newAPIEnv(t, testsupport.WithCompression("store"))
	big := make([]byte, 16<<20)
	if _, err := rand.Read(big); err != nil {
		t.Fatalf("random data: %v", err)
	}
	rom := seedThreeDiscRom(t, env, map[string][]byte{
		"disc1.bin": big,
		"disc2.bin": []byte("second"),
		"disc3.bin": []byte("third"),
	})

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + romPath(rom.ID, "/content/FF7"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	head := make([]byte, 4096)
	if _, err := io.ReadFull(resp.Body, head); err != nil {
		t.Fatalf("read first bytes: %v", err)
	}
	second := filepath.Join(env.resolver.RomPath(rom.FilePath, rom.FileName), "disc2.bin")
	if err := os.Remove(second); err != nil {
		t.Fatalf("remove member: %v", err)
	}

	rest, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Fatalf("expected transfer to abort, read %d more bytes cleanly", len(rest))
	}
	body := append(head, rest...)
	if _, zerr := zip.NewReader(bytes.NewReader(body), int64(len(body))); zerr == nil {
		t.Fatal("truncated transfer must not parse as a complete archive")
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile(fileField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadSkipsExistingFiles(t *testing.T) {
	env := newAPIEnv(t)
	testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Existing.sfc", []byte("old"))

	body, contentType := multipartBody(t, nil, "roms", map[string][]byte{
		"Existing.sfc": []byte("new"),
		"Fresh.sfc":    []byte("fresh"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/roms?platform_id="+strconv.FormatInt(env.platform.ID, 10), body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req)
	expectStatus(t, rec, http.StatusCreated)

	resp := decode[api.UploadResponse](t, rec)
	if len(resp.UploadedRoms) != 1 || resp.UploadedRoms[0] != "Fresh.sfc" {
		t.Fatalf("unexpected uploaded %v", resp.UploadedRoms)
	}
	if len(resp.SkippedRoms) != 1 || resp.SkippedRoms[0] != "Existing.sfc" {
		t.Fatalf("unexpected skipped %v", resp.SkippedRoms)
	}
	dir := env.resolver.BuildUploadPath(env.platform.FSSlug)
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Existing.sfc")); string(got) != "old" {
		t.Fatalf("existing file overwritten: %q", got)
	}
	fresh, err := env.store.GetByFileName(req.Context(), env.platform.ID, "Fresh.sfc")
	if err != nil || fresh == nil {
		t.Fatalf("expected catalog entry for upload: %v", err)
	}
	if fresh.FileSizeBytes != 5 {
		t.Fatalf("unexpected size %d", fresh.FileSizeBytes)
	}
}

func uploadRoms(t *testing.T, env *apiEnv, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, nil, "roms", files)
	req := httptest.NewRequest(http.MethodPost, "/api/roms?platform_id="+strconv.FormatInt(env.platform.ID, 10), body)
	req.Header.Set("Content-Type", contentType)
	return env.do(t, req)
}

func TestUploadSkipsCataloguedNameMissingOnDisk(t *testing.T) {
	env := newAPIEnv(t)
	rom := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Gone.sfc", []byte("old"))
	path := env.resolver.RomPath(rom.FilePath, rom.FileName)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	rec := uploadRoms(t, env, map[string][]byte{"Gone.sfc": []byte("new")})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[api.UploadResponse](t, rec)
	if len(resp.UploadedRoms) != 0 || len(resp.SkippedRoms) != 1 || resp.SkippedRoms[0] != "Gone.sfc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("upload should not be written for a catalogued name: %v", err)
	}
}

func TestUploadRemovesFileWhenCatalogInsertFails(t *testing.T) {
	env := newAPIEnv(t)
	db, err := sql.Open("sqlite", env.cfg.Paths.DatabasePath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TRIGGER reject_roms BEFORE INSERT ON roms BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	rec := uploadRoms(t, env, map[string][]byte{"Broken.sfc": []byte("data")})
	expectStatus(t, rec, http.StatusInternalServerError)
	dir := env.resolver.BuildUploadPath(env.platform.FSSlug)
	if _, err := os.Stat(filepath.Join(dir, "Broken.sfc")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected upload removed after catalog failure, stat err %v", err)
	}
}

func TestUpdateRomRenameConflictLeavesFiles(t *testing.T) {
	env := newAPIEnv(t)
	rom := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "A.sfc", []byte("a"))
	testsupport.SeedRom(t, env.cfg, env.store, env.platform, "B.sfc", []byte("b"))

	body, contentType := multipartBody(t, map[string]string{"file_name": "B.sfc"}, "", nil)
	req := httptest.NewRequest(http.MethodPut, romPath(rom.ID, ""), body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req)
	expectStatus(t, rec, http.StatusConflict)
	if decode[api.ErrorEnvelope](t, rec).Error.Code != "already_exists" {
		t.Fatalf("unexpected envelope %s", rec.Body.String())
	}
	dir := env.resolver.BuildUploadPath(env.platform.FSSlug)
	if got := testsupport.ReadFile(t, filepath.Join(dir, "B.sfc")); string(got) != "b" {
		t.Fatalf("target overwritten: %q", got)
	}

	body, contentType = multipartBody(t, map[string]string{"name": "Alpha", "summary": "first"}, "", nil)
	req = httptest.NewRequest(http.MethodPut, romPath(rom.ID, ""), body)
	req.Header.Set("Content-Type", contentType)
	rec = env.do(t, req)
	expectStatus(t, rec, http.StatusOK)
	updated := decode[api.DetailedRom](t, rec)
	if updated.Name != "Alpha" || updated.Summary != "first" || updated.FileName != "A.sfc" {
		t.Fatalf("unexpected update result %+v", updated.Rom)
	}
}

func TestDeleteReportsPerIDOutcome(t *testing.T) {
	env := newAPIEnv(t)
	keep := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Keep.sfc", []byte("k"))
	drop := testsupport.SeedRom(t, env.cfg, env.store, env.platform, "Drop.sfc", []byte("d"))

	rec := env.postJSON(t, http.MethodPost, "/api/roms/delete", api.DeleteRequest{
		Roms:         []int64{drop.ID, 999, keep.ID},
		DeleteFromFS: []int64{drop.ID},
	})
	expectStatus(t, rec, http.StatusOK)
	resp := decode[api.DeleteResponse](t, rec)
	if resp.Deleted != 2 || len(resp.Results) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[1].ID != 999 || resp.Results[1].Deleted || resp.Results[1].Code != "not_found" {
		t.Fatalf("unexpected result for unknown id %+v", resp.Results[1])
	}
	dir := env.resolver.BuildUploadPath(env.platform.FSSlug)
	if _, err := os.Stat(filepath.Join(dir, "Drop.sfc")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected Drop.sfc removed from disk, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Keep.sfc")); err != nil {
		t.Fatalf("Keep.sfc must stay on disk: %v", err)
	}

	expectStatus(t, env.postJSON(t, http.MethodPost, "/api/roms/delete", api.DeleteRequest{}), http.StatusBadRequest)
}
