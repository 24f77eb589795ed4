package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

// Router builds the HTTP surface of the processing service.
type Router struct {
	svc            *Service
	processTimeout time.Duration
	logger         *slog.Logger
}

func NewRouter(svc *Service, processTimeout time.Duration, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{svc: svc, processTimeout: processTimeout, logger: logger}
}

// Handler returns the configured gin engine.
func (rt *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), rt.requestLogger())

	ocr := r.Group("/ocr")
	{
		ocr.POST("/process-file", rt.processFile)
		ocr.POST("/process-all-files", rt.processAllFiles)
		ocr.GET("/results/:id", rt.getResult)
		ocr.GET("/health", rt.health)
	}
	return r
}

func (rt *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := common.WithRequestID(c.Request.Context(), c.GetHeader("X-Request-ID"))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		rt.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", common.RequestIDFromContext(ctx),
		)
	}
}

type processFileRequest struct {
	FileKey string `json:"file_key" binding:"required"`
	Force   bool   `json:"force"`
}

func (rt *Router) processFile(c *gin.Context) {
	var req processFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_key is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rt.processTimeout)
	defer cancel()

	out, err := rt.svc.ProcessFile(ctx, req.FileKey, req.Force)
	if err != nil {
		rt.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type processAllRequest struct {
	Prefix string `json:"prefix"`
}

func (rt *Router) processAllFiles(c *gin.Context) {
	var req processAllRequest
	// An empty body means sweep the whole bucket.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	outcomes, err := rt.svc.ProcessAll(c.Request.Context(), req.Prefix)
	if err != nil {
		rt.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(outcomes), "files": outcomes})
}

func (rt *Router) getResult(c *gin.Context) {
	doc, err := rt.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		rt.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                   doc.ID,
		"file_name":            doc.FileName,
		"has_prohibited_items": doc.HasProhibitedItems,
		"created_at":           doc.CreatedAt,
		"result":               json.RawMessage(doc.ExtractedJSON),
	})
}

func (rt *Router) health(c *gin.Context) {
	status := rt.svc.Health(c.Request.Context())
	code := http.StatusOK
	for _, v := range status {
		if v != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, gin.H{"status": status})
}

func (rt *Router) writeError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
