package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/services"
	"safenet/internal/utils"
)

const (
	dashboardReportLimit = 50
	dashboardLogLimit    = 20
)

type DashboardHandler struct {
	svc *services.Services
	log *zap.Logger
}

func NewDashboardHandler(svc *services.Services, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

// Index renders the role-scoped dashboard.
func (h *DashboardHandler) Index(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	status := models.ReportStatus(c.Query("status"))
	if !status.Valid() {
		status = ""
	}

	reports, err := h.svc.Reports.List(ctx, actor, status, dashboardReportLimit)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	stats, err := h.svc.Stats.Get(ctx, actor)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	aid, err := h.svc.Aid.ListForActor(ctx, actor, models.AidPending, dashboardReportLimit)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	data := gin.H{
		"Reports":    reports,
		"Stats":      stats,
		"PendingAid": aid,
		"Statuses":   models.ReportStatuses,
		"Status":     status,
	}

	if actor.IsAdmin() {
		providers, err := h.svc.Providers.List(ctx, actor, false)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		var unverified []models.Provider
		for _, p := range providers {
			if !p.IsVerified {
				unverified = append(unverified, p)
			}
		}
		logs, err := h.svc.Audit.Recent(ctx, actor, dashboardLogLimit)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		data["UnverifiedProviders"] = unverified
		data["Logs"] = logs
	} else if actor.ProviderID != nil {
		provider, err := h.svc.Providers.Get(ctx, *actor.ProviderID)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		data["Provider"] = provider
	}
	Render(c, http.StatusOK, "dashboard/index.html", data)
}

func (h *DashboardHandler) Report(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	renderReport(c, h.svc, h.log, actor, id, http.StatusOK, "")
}

// UpdateStatus lets the assigned provider or an admin move a report on.
func (h *DashboardHandler) UpdateStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	status := models.ReportStatus(c.PostForm("status"))
	_, err := h.svc.Reports.UpdateStatus(c.Request.Context(), actor, id, status, c.PostForm("note"))
	if err != nil {
		formError(c, h.svc, h.log, actor, id, err)
		return
	}
	redirect(c, reportPath(id))
}

// Attachment streams a report attachment to the admin or assigned provider.
func (h *DashboardHandler) Attachment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	path, att, err := h.svc.Reports.AttachmentPath(c.Request.Context(), actor, id, c.Param("name"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Header("Content-Type", att.ContentType)
	c.FileAttachment(path, att.OriginalFilename)
}

func reportPath(id uint) string {
	return "/dashboard/reports/" + utils.FormatID(id)
}

// renderReport renders the report detail page, optionally with a form error.
func renderReport(c *gin.Context, svc *services.Services, log *zap.Logger, actor services.Actor, id uint, code int, formErr string) {
	ctx := c.Request.Context()
	detail, err := svc.Reports.Detail(ctx, actor, id)
	if err != nil {
		handleError(c, log, err)
		return
	}
	data := gin.H{
		"Detail":   detail,
		"Statuses": models.ReportStatuses,
		"AidTypes": models.AidTypes,
		"Urgency":  []models.Urgency{models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyCritical},
		"CanClose": detail.Report.Status != models.ReportClosed,
		"Error":    formErr,
	}
	if actor.IsAdmin() {
		verified, err := svc.Providers.Directory(ctx, "")
		if err != nil {
			handleError(c, log, err)
			return
		}
		data["Providers"] = verified
		data["Priorities"] = []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical}
	}
	Render(c, code, "dashboard/report.html", data)
}

// formError re-renders the report page for a rejected form and falls back
// to the error page for everything else.
func formError(c *gin.Context, svc *services.Services, log *zap.Logger, actor services.Actor, reportID uint, err error) {
	if ve, ok := validation(err); ok {
		renderReport(c, svc, log, actor, reportID, http.StatusBadRequest, ve.Message)
		return
	}
	handleError(c, log, err)
}
