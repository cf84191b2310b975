package reports

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes は報告関連のルートを登録する。secret はトークン検証用。
func RegisterRoutes(r gin.IRouter, svc *Service, secret []byte) {
	h := &Handler{svc: svc}

	api := r.Group("", auth.RequireAuth(secret))
	api.POST("/reports", h.Submit)
	api.GET("/reports", h.List)
	api.GET("/reports/:id", h.Get)
	api.DELETE("/reports/:id", h.Delete)
	api.GET("/summary", h.Summary)
	api.GET("/weekly-stats", h.WeeklyStats)
	// 閲覧範囲は Scope が決める（viewer も読み取りは可）
	api.GET("/admin/weekly-stats", h.AllWeeklyStats)
	api.GET("/current-offering", h.CurrentOffering)

	// ダウンロードはリンクから開けるよう ?token= も受け付ける
	dl := r.Group("", auth.RequireAuthOrQuery(secret))
	dl.GET("/reports/:id/export", h.ExportReport)
	dl.GET("/export", h.Export)
}

// ---------- handlers ----------

// POST /reports
func (h *Handler) Submit(c *gin.Context) {
	var raw map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), identity(c), raw)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/reports/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

// GET /reports?start=&end=
func (h *Handler) List(c *gin.Context) {
	rng, ok := rangeQuery(c)
	if !ok {
		return
	}
	items, err := h.svc.GetReports(c.Request.Context(), identity(c), rng)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GET /reports/:id
func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /reports/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /summary?start=&end=
func (h *Handler) Summary(c *gin.Context) {
	rng, ok := rangeQuery(c)
	if !ok {
		return
	}
	res, err := h.svc.GetSummary(c.Request.Context(), identity(c), rng)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /weekly-stats?date=&section_id=
func (h *Handler) WeeklyStats(c *gin.Context) {
	ref, ok := dateQuery(c, "date")
	if !ok {
		return
	}
	var sectionID *int64
	if v := c.Query("section_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "section_id must be a positive number"))
			return
		}
		sectionID = &n
	}
	res, err := h.svc.GetWeeklyStats(c.Request.Context(), identity(c), sectionID, ref)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /admin/weekly-stats?date=
func (h *Handler) AllWeeklyStats(c *gin.Context) {
	ref, ok := dateQuery(c, "date")
	if !ok {
		return
	}
	items, err := h.svc.GetAllWeeklyStats(c.Request.Context(), identity(c), ref)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GET /current-offering
func (h *Handler) CurrentOffering(c *gin.Context) {
	res, err := h.svc.GetCurrentOffering(c.Request.Context(), identity(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /export?start=&end=&section_id=&format=&include_stats=&include_details=&include_notes=
func (h *Handler) Export(c *gin.Context) {
	rng, ok := rangeQuery(c)
	if !ok {
		return
	}
	req := ExportRequest{Range: rng, Format: c.Query("format"), Options: DefaultExportOptions()}
	if v := c.Query("section_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "section_id must be a positive number"))
			return
		}
		req.SectionID = &n
	}
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"include_stats", &req.Options.IncludeStats},
		{"include_details", &req.Options.IncludeDetails},
		{"include_notes", &req.Options.IncludeNotes},
	} {
		if v := c.Query(f.key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, f.key+" must be true or false"))
				return
			}
			*f.dst = b
		}
	}

	res, err := h.svc.Export(c.Request.Context(), identity(c), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	sendFile(c, res)
}

// GET /reports/:id/export?format=
func (h *Handler) ExportReport(c *gin.Context) {
	res, err := h.svc.ExportReport(c.Request.Context(), identity(c), c.Param("id"), c.Query("format"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	sendFile(c, res)
}

// ---------- helpers ----------

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}

func sendFile(c *gin.Context, res ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", res.Filename, url.PathEscape(res.Filename)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, res.ContentType, res.Body)
}

func dateQuery(c *gin.Context, key string) (*time.Time, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, key+" must be YYYY-MM-DD"))
		return nil, false
	}
	return &t, true
}

func rangeQuery(c *gin.Context) (DateRange, bool) {
	start, ok := dateQuery(c, "start")
	if !ok {
		return DateRange{}, false
	}
	end, ok := dateQuery(c, "end")
	if !ok {
		return DateRange{}, false
	}
	if start != nil && end != nil && end.Before(*start) {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "end must be >= start"))
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}
