package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"romshelf/internal/auth"
	"romshelf/internal/logging"
	"romshelf/internal/services"
)

const (
	headerRequestID = "X-Request-ID"
	ctxLoggerKey    = "romshelf.logger"
	ctxUserIDKey    = "romshelf.user_id"
)

func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	return logging.NewNop()
}

func userIDFrom(c *gin.Context) int64 {
	return c.GetInt64(ctxUserIDKey)
}

// requestContext assigns a request id, echoes it back, and stores it and the
// logger on the request.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Set(ctxLoggerKey, logger)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		logger := logging.WithContext(c.Request.Context(), loggerFrom(c))
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Int("bytes", c.Writer.Size()),
			logging.Duration("elapsed", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", logging.Args(attrs...)...)
			return
		}
		logger.Debug("http request", logging.Args(attrs...)...)
	}
}

// recovery turns handler panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http drops the connection instead of finishing the body.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && err == http.ErrAbortHandler {
				panic(rec)
			}
			logging.WithContext(c.Request.Context(), loggerFrom(c)).Error("handler panic",
				logging.String("path", c.Request.URL.Path),
				logging.Any("panic", rec),
			)
			if c.Writer.Written() {
				panic(http.ErrAbortHandler)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{Error: APIError{Message: "internal server error", Code: "internal"}})
		}()
		c.Next()
	}
}

// extractToken reads ?token= first, then the bearer header.
func extractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// requireUser resolves the caller's user id. With authentication disabled
// every request runs as the configured default user.
func requireUser(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authn.Verify(extractToken(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(ctxUserIDKey, userID)
		c.Request = c.Request.WithContext(services.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// optionalUser attaches a user when a valid token is present and never rejects.
func optionalUser(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := authn.Verify(extractToken(c)); err == nil {
			c.Set(ctxUserIDKey, userID)
			c.Request = c.Request.WithContext(services.WithUserID(c.Request.Context(), userID))
		}
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	return cors.New(cfg)
}
