package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"updatestracker/internal/domain"
	"updatestracker/internal/integrations/llm"
	"updatestracker/internal/report"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func okList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

func fail(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback
	switch {
	case errors.Is(err, report.ErrInvalidRequest):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrReportNotFound):
		status = http.StatusNotFound
		message = "Report not found"
	default:
		_ = c.Error(err)
	}
	c.JSON(status, envelope{Success: false, Message: message})
}

type handler struct {
	svc    ReportService
	models []llm.ModelInfo
	pinger Pinger
}

func (h *handler) health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: "database unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "ok"})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// format previews the extraction without saving.
func (h *handler) format(c *gin.Context) {
	var req report.PreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Preview(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to format report")
		return
	}
	ok(c, http.StatusOK, "Report formatted successfully (preview only)", res)
}

func (h *handler) create(c *gin.Context) {
	var req report.CommitRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Commit(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to create report")
		return
	}
	ok(c, http.StatusCreated, "Report created successfully", r)
}

func (h *handler) list(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	reports, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		fail(c, err, "Failed to fetch reports")
		return
	}
	okList(c, reports)
}

func (h *handler) listRange(c *gin.Context) {
	reports, err := h.svc.ListRange(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		fail(c, err, "Failed to fetch reports")
		return
	}
	okList(c, reports)
}

func (h *handler) listModels(c *gin.Context) {
	okList(c, h.models)
}

func (h *handler) get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Failed to fetch report")
		return
	}
	ok(c, http.StatusOK, "", r)
}

func (h *handler) update(c *gin.Context) {
	var req report.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.UpdateSections(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err, "Failed to update report")
		return
	}
	ok(c, http.StatusOK, "Report updated successfully", r)
}

type deletedReport struct {
	ID    string `json:"deletedId"`
	Title string `json:"deletedTitle"`
}

func (h *handler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := h.svc.Get(ctx, c.Param("id"))
	if err == nil {
		err = h.svc.Delete(ctx, r.ID)
	}
	if err != nil {
		fail(c, err, "Failed to delete report")
		return
	}
	ok(c, http.StatusOK, "Report deleted successfully", deletedReport{ID: r.ID, Title: r.Title})
}
