package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/services"
	"safenet/internal/utils"
)

type AidHandler struct {
	svc *services.Services
	log *zap.Logger
}

func NewAidHandler(svc *services.Services, log *zap.Logger) *AidHandler {
	return &AidHandler{svc: svc, log: log}
}

// Submit files an aid request against a report.
func (h *AidHandler) Submit(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	reportID, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	amount, err := utils.ParseOptionalFloat(c.PostForm("amount"))
	if err != nil {
		renderReport(c, h.svc, h.log, actor, reportID, http.StatusBadRequest, "Amount must be a number.")
		return
	}
	in := services.SubmitAidInput{
		AidType:     services.ParseAidType(c.PostForm("aid_type")),
		Amount:      amount,
		Description: c.PostForm("description"),
		Urgency:     models.Urgency(c.PostForm("urgency")),
	}
	if _, err := h.svc.Aid.Submit(c.Request.Context(), actor, reportID, in); err != nil {
		formError(c, h.svc, h.log, actor, reportID, err)
		return
	}
	redirect(c, reportPath(reportID))
}

func (h *AidHandler) Decide(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	var approve bool
	switch c.PostForm("decision") {
	case "approve":
		approve = true
	case "reject":
	default:
		RenderError(c, http.StatusBadRequest, "Choose approve or reject.")
		return
	}
	req, err := h.svc.Aid.Decide(c.Request.Context(), actor, id, approve)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	redirect(c, reportPath(req.ReportID))
}

func (h *AidHandler) Provided(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	req, err := h.svc.Aid.MarkProvided(c.Request.Context(), actor, id, c.PostForm("proof_reference"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	redirect(c, reportPath(req.ReportID))
}
