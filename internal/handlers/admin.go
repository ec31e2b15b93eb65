package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/services"
	"safenet/internal/utils"
)

// AdminHandler serves the /admin routes. AdminRequired runs in front of it;
// the services check the role again.
type AdminHandler struct {
	svc *services.Services
	log *zap.Logger
}

func NewAdminHandler(svc *services.Services, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

func (h *AdminHandler) Review(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	priority := models.Priority(c.PostForm("priority"))
	if _, err := h.svc.Reports.Review(c.Request.Context(), actor, id, priority, c.PostForm("note")); err != nil {
		formError(c, h.svc, h.log, actor, id, err)
		return
	}
	redirect(c, reportPath(id))
}

func (h *AdminHandler) Assign(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	providerID, ok := utils.ParseID(c.PostForm("provider_id"))
	if !ok {
		renderReport(c, h.svc, h.log, actor, id, http.StatusBadRequest, "Please choose a provider.")
		return
	}
	if _, err := h.svc.Reports.Assign(c.Request.Context(), actor, id, providerID, c.PostForm("note")); err != nil {
		formError(c, h.svc, h.log, actor, id, err)
		return
	}
	redirect(c, reportPath(id))
}

func (h *AdminHandler) Providers(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	verifiedOnly := c.Query("verified") == "1"
	list, err := h.svc.Providers.List(c.Request.Context(), actor, verifiedOnly)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "admin/providers.html", gin.H{
		"Providers":    list,
		"VerifiedOnly": verifiedOnly,
	})
}

func (h *AdminHandler) Provider(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	h.renderProvider(c, actor, id, http.StatusOK, "", nil)
}

func (h *AdminHandler) renderProvider(c *gin.Context, actor services.Actor, id uint, code int, formErr string, form gin.H) {
	detail, err := h.svc.Providers.Detail(c.Request.Context(), actor, id)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	if form == nil {
		form = gin.H{}
	}
	Render(c, code, "admin/provider.html", gin.H{
		"Detail": detail,
		"Error":  formErr,
		"Form":   form,
	})
}

func (h *AdminHandler) Verify(c *gin.Context) {
	h.setVerification(c, true)
}

func (h *AdminHandler) Revoke(c *gin.Context) {
	h.setVerification(c, false)
}

func (h *AdminHandler) setVerification(c *gin.Context, approve bool) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	var err error
	if approve {
		_, err = h.svc.Providers.Verify(c.Request.Context(), actor, id, c.PostForm("notes"))
	} else {
		_, err = h.svc.Providers.Revoke(c.Request.Context(), actor, id, c.PostForm("notes"))
	}
	if err != nil {
		if ve, ok := validation(err); ok {
			h.renderProvider(c, actor, id, http.StatusBadRequest, ve.Message, nil)
			return
		}
		handleError(c, h.log, err)
		return
	}
	redirect(c, "/admin/providers/"+utils.FormatID(id))
}

// CreateAccount adds a login to an existing provider.
func (h *AdminHandler) CreateAccount(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}
	in := services.CreateAccountInput{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		PasswordConfirm: c.PostForm("password_confirm"),
	}
	if _, err := h.svc.Accounts.CreateProviderAccount(c.Request.Context(), actor, id, in); err != nil {
		if ve, ok := validation(err); ok {
			h.renderProvider(c, actor, id, http.StatusBadRequest, ve.Message, gin.H{
				"Username": in.Username,
				"Email":    in.Email,
			})
			return
		}
		handleError(c, h.log, err)
		return
	}
	redirect(c, "/admin/providers/"+utils.FormatID(id))
}
