package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"romshelf/internal/auth"
	"romshelf/internal/catalog"
	"romshelf/internal/content"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/mutation"
)

// maxMultipartMemory bounds the part of an upload held in memory; the rest
// spills to temporary files.
const maxMultipartMemory = 32 << 20

// Deps are the services the HTTP API dispatches to.
type Deps struct {
	Store    *catalog.Store
	Resolver *library.Resolver
	Content  *content.Service
	Mutator  *mutation.Orchestrator
	Auth     *auth.Authenticator
	// PublicDownloads lets HEAD and GET on content routes skip authentication.
	PublicDownloads bool
	CORSOrigins     []string
	Logger          *slog.Logger
}

type server struct {
	store    *catalog.Store
	resolver *library.Resolver
	content  *content.Service
	mutator  *mutation.Orchestrator
	logger   *slog.Logger
}

// NewRouter wires the /api routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Store == nil || deps.Resolver == nil || deps.Content == nil || deps.Mutator == nil || deps.Auth == nil {
		return nil, errors.New("api: store, resolver, content, mutator, and auth are required")
	}
	logger := logging.NewComponentLogger(deps.Logger, "api")
	s := &server{
		store:    deps.Store,
		resolver: deps.Resolver,
		content:  deps.Content,
		mutator:  deps.Mutator,
		logger:   logger,
	}

	engine := gin.New()
	engine.MaxMultipartMemory = maxMultipartMemory
	engine.HandleMethodNotAllowed = true
	engine.Use(recovery(), requestContext(logger), requestLogger())
	if len(deps.CORSOrigins) > 0 {
		engine.Use(corsMiddleware(deps.CORSOrigins))
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorEnvelope{Error: APIError{Message: "route not found", Code: "not_found"}})
	})

	root := engine.Group("/api")
	root.GET("/healthz", s.handleHealth)

	downloads := root.Group("/roms/:id/content")
	if deps.PublicDownloads {
		downloads.Use(optionalUser(deps.Auth))
	} else {
		downloads.Use(requireUser(deps.Auth))
	}
	downloads.HEAD("/:file_name", s.handleHeadContent)
	downloads.GET("/:file_name", s.handleGetContent)

	authed := root.Group("", requireUser(deps.Auth))
	authed.GET("/platforms", s.handleListPlatforms)
	authed.GET("/roms", s.handleListRoms)
	authed.POST("/roms", s.handleUpload)
	authed.POST("/roms/delete", s.handleDelete)
	authed.GET("/roms/:id", s.handleGetRom)
	authed.PUT("/roms/:id", s.handleUpdateRom)
	authed.PUT("/roms/:id/props", s.handleUpdateProps)

	return engine, nil
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *server) handleListPlatforms(c *gin.Context) {
	platforms, err := s.store.ListPlatforms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromPlatforms(platforms))
}

// romID parses the :id path parameter, writing a 400 when it is not a
// positive integer.
func romID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "rom id must be a positive integer")
		return 0, false
	}
	return id, true
}
