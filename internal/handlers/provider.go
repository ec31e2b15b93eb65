package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/middleware"
	"safenet/internal/models"
	"safenet/internal/services"
	"safenet/internal/utils"
)

type ProviderHandler struct {
	providers *services.ProviderService
	hashIP    IPHasher
	log       *zap.Logger
}

func NewProviderHandler(providers *services.ProviderService, hashIP IPHasher, log *zap.Logger) *ProviderHandler {
	return &ProviderHandler{providers: providers, hashIP: hashIP, log: log}
}

// Directory lists verified providers, optionally for one category.
func (h *ProviderHandler) Directory(c *gin.Context) {
	category := c.Query("category")
	list, err := h.providers.Directory(c.Request.Context(), category)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "provider/directory.html", gin.H{
		"Providers":  list,
		"Categories": models.ProviderCategories,
		"Category":   category,
	})
}

func (h *ProviderHandler) ShowRegister(c *gin.Context) {
	if _, ok := middleware.CurrentActor(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	Render(c, http.StatusOK, "provider/register.html", gin.H{
		"Categories": models.ProviderCategories,
		"Form":       gin.H{},
	})
}

func (h *ProviderHandler) Register(c *gin.Context) {
	in := services.RegisterProviderInput{
		Name:              c.PostForm("name"),
		Category:          c.PostForm("category"),
		Address:           c.PostForm("address"),
		ContactPhone:      c.PostForm("contact_phone"),
		ContactEmail:      c.PostForm("contact_email"),
		Description:       c.PostForm("description"),
		ResponseTimeHours: utils.StringToInt(c.DefaultPostForm("response_time_hours", "24")),
		Username:          c.PostForm("username"),
		Email:             c.PostForm("email"),
		Password:          c.PostForm("password"),
		PasswordConfirm:   c.PostForm("password_confirm"),
		IPHash:            h.hashIP(c.ClientIP()),
	}

	_, _, err := h.providers.Register(c.Request.Context(), in)
	if err != nil {
		if ve, ok := validation(err); ok {
			Render(c, http.StatusBadRequest, "provider/register.html", gin.H{
				"Categories": models.ProviderCategories,
				"Error":      ve.Message,
				"Field":      ve.Field,
				"Form": gin.H{
					"Name":              in.Name,
					"Category":          in.Category,
					"Address":           in.Address,
					"ContactPhone":      in.ContactPhone,
					"ContactEmail":      in.ContactEmail,
					"Description":       in.Description,
					"ResponseTimeHours": c.PostForm("response_time_hours"),
					"Username":          in.Username,
					"Email":             in.Email,
				},
			})
			return
		}
		handleError(c, h.log, err)
		return
	}

	Render(c, http.StatusCreated, "auth/login.html", gin.H{
		"Success": "Registration submitted. An administrator will verify your organization before reports can be assigned to it. You can sign in now.",
		"Login":   in.Username,
	})
}
