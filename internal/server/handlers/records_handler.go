package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/parser"
	"github.com/mamadbah2/milkweights/internal/service/ingest"
)

// maxUploadBytes caps a multipart CSV upload.
const maxUploadBytes = 32 << 20

const entryUsage = `invalid request body: expected {"date": "YYYY-MM-DD", "farm_id": "...", "weight": <integer>}`

// RecordIngester accepts manual entries and CSV streams.
type RecordIngester interface {
	IngestEntry(ctx context.Context, entry ingest.Entry) (models.Record, error)
	IngestReader(ctx context.Context, name string, r io.Reader) (int, error)
}

// RecordsHandler exposes record ingestion over HTTP.
type RecordsHandler struct {
	svc    RecordIngester
	logger *zap.Logger
}

// NewRecordsHandler constructs the HTTP handler adapter.
func NewRecordsHandler(svc RecordIngester, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{svc: svc, logger: logger}
}

type recordResponse struct {
	Date    string `json:"date"`
	FarmID  string `json:"farm_id"`
	Weight  int    `json:"weight"`
	Warning string `json:"warning,omitempty"`
}

type fileResult struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// Create records one manual entry.
func (h *RecordsHandler) Create(c *gin.Context) {
	var entry ingest.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": entryUsage})
		return
	}

	record, err := h.svc.IngestEntry(c.Request.Context(), entry)
	resp := recordResponse{Date: record.DateString(), FarmID: record.FarmID(), Weight: record.Weight()}
	switch {
	case errors.Is(err, ingest.ErrSink):
		h.logger.Warn("entry recorded but not archived", zap.Error(err))
		resp.Warning = "recorded but not archived"
	case err != nil:
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Upload ingests every CSV file of the multipart "files" field, in order.
// Each file is committed on its own; the first failing file stops the upload.
func (h *RecordsHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}
	for _, fh := range files {
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
			writeError(c, h.logger, fmt.Errorf("%s: %w", fh.Filename, ingest.ErrNotCSV))
			return
		}
	}

	results := make([]fileResult, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(c, h.logger, fmt.Errorf("%w: open %s: %w", parser.ErrIO, fh.Filename, err))
			return
		}
		n, err := h.svc.IngestReader(c.Request.Context(), fh.Filename, f)
		_ = f.Close()
		if err != nil {
			c.Set("ingested", results)
			writeError(c, h.logger, err)
			return
		}
		results = append(results, fileResult{Name: fh.Filename, Records: n})
	}

	c.JSON(http.StatusCreated, gin.H{"files": results})
}

// writeError maps domain errors to HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	body := gin.H{"error": err.Error()}
	if done, ok := c.Get("ingested"); ok {
		body["ingested"] = done
	}

	var formatErr *parser.FormatError
	if errors.As(err, &formatErr) {
		body["line"] = formatErr.Line
	}

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}
