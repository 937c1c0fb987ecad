package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/parser"
	"github.com/mamadbah2/milkweights/internal/repository/mongodb"
	"github.com/mamadbah2/milkweights/internal/service/ingest"
	"github.com/mamadbah2/milkweights/internal/service/reporting"
)

var errBadParam = errors.New("invalid query parameter")

// ReportProvider answers sums and chart reports. Months are 1-based.
type ReportProvider interface {
	Sum(q reporting.Query) (int, error)
	FarmYearReport(farmID string, year int) (models.Report, error)
	FarmMonthReport(farmID string, year, month int) (models.Report, error)
	CollectionYearReport(year int) (models.Report, error)
	CollectionMonthReport(year, month int) (models.Report, error)
	LatestSnapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error)
}

// ReportsHandler exposes read-only queries.
type ReportsHandler struct {
	svc    ReportProvider
	logger *zap.Logger
}

// NewReportsHandler constructs the HTTP handler adapter.
func NewReportsHandler(svc ReportProvider, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{svc: svc, logger: logger}
}

// Sum answers GET /sums?farm=&year=&month=.
func (h *ReportsHandler) Sum(c *gin.Context) {
	year, err := optionalInt(c.Query("year"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	month, err := optionalInt(c.Query("month"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	q := reporting.Query{FarmID: c.Query("farm"), Year: year, Month: month}
	total, err := h.svc.Sum(q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"farm":  q.FarmID,
		"year":  q.Year,
		"month": q.Month,
		"total": total,
	})
}

// FarmReport answers GET /reports/farms/:farm/years/:year[?month=].
func (h *ReportsHandler) FarmReport(c *gin.Context) {
	year, month, err := yearAndMonth(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	farmID := c.Param("farm")
	var report models.Report
	if month == 0 {
		report, err = h.svc.FarmYearReport(farmID, year)
	} else {
		report, err = h.svc.FarmMonthReport(farmID, year, month)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	render(c, report)
}

// CollectionReport answers GET /reports/years/:year[?month=].
func (h *ReportsHandler) CollectionReport(c *gin.Context) {
	year, month, err := yearAndMonth(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var report models.Report
	if month == 0 {
		report, err = h.svc.CollectionYearReport(year)
	} else {
		report, err = h.svc.CollectionMonthReport(year, month)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	render(c, report)
}

// Snapshot answers GET /reports/snapshots/:year/:month with the latest stored
// monthly report.
func (h *ReportsHandler) Snapshot(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		writeError(c, h.logger, errBadParam)
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		writeError(c, h.logger, errBadParam)
		return
	}

	snapshot, err := h.svc.LatestSnapshot(c.Request.Context(), year, month)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func render(c *gin.Context, report models.Report) {
	if c.Query("format") == "yaml" {
		c.YAML(http.StatusOK, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func yearAndMonth(c *gin.Context) (int, int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return 0, 0, errBadParam
	}
	month, err := optionalInt(c.Query("month"))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func optionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errBadParam
	}
	return n, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, parser.ErrFormat),
		errors.Is(err, ingest.ErrInvalidEntry),
		errors.Is(err, reporting.ErrInvalidMonth),
		errors.Is(err, reporting.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrNotCSV):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, reporting.ErrFarmNotFound),
		errors.Is(err, mongodb.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, reporting.ErrSnapshotsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
