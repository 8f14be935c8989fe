package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/repository"
	"github.com/streamverse/catalog-api/internal/utils"
)

// AuditHandler exposes the audit trail to administrators: browsing,
// per-admin statistics and pruning of old records.
type AuditHandler struct {
	Logs AuditReader
}

func NewAuditHandler(logs AuditReader) *AuditHandler {
	return &AuditHandler{Logs: logs}
}

// List returns a page of audit entries, most recent first.
func (h *AuditHandler) List(c echo.Context) error {
	pageNum := queryInt(c, "pn", 1)
	pageSize := queryInt(c, "ps", 10)
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, total, err := h.Logs.List(ctx, pageNum, pageSize)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	return utils.JSON(c, http.StatusOK, echo.Map{
		"page_num":         pageNum,
		"page_size":        pageSize,
		"total_audit_logs": total,
		"total_pages":      int(math.Ceil(float64(total) / float64(pageSize))),
		"audit_logs":       logs,
	})
}

// Get returns a single audit entry by id.
func (h *AuditHandler) Get(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Logs.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return utils.Error(c, http.StatusBadRequest, "Invalid audit log ID format")
	case errors.Is(err, repository.ErrNotFound):
		return utils.Error(c, http.StatusNotFound, fmt.Sprintf("Audit log with ID '%s' not found", id))
	case err != nil:
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	return utils.JSON(c, http.StatusOK, entry)
}

// Stats summarizes recorded actions per admin, busiest admins first.
func (h *AuditHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	summary, err := h.Logs.Stats(ctx)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	return utils.JSON(c, http.StatusOK, echo.Map{
		"total_admins": len(summary),
		"summary":      summary,
	})
}

// Prune deletes audit entries older than the given number of days
// (default 90).
func (h *AuditHandler) Prune(c echo.Context) error {
	days := queryInt(c, "days", 90)
	if days < 1 {
		days = 90
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.Logs.Prune(ctx, cutoff)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	return utils.JSON(c, http.StatusOK, echo.Map{
		"message":     fmt.Sprintf("Deleted %d old audit logs", deleted),
		"cutoff_date": cutoff,
	})
}
