package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/middleware"
	"safenet/internal/services"
)

const (
	msgForbidden = "You do not have access to this action."
	msgNotFound  = "The page you are looking for does not exist."
	msgInternal  = "Something went wrong. Please try again later."
	msgTooMany   = "Too many requests. Please wait a minute and try again."
)

// IPHasher turns a client address into the keyed hash that is stored and logged.
type IPHasher func(ip string) string

// Render helper to inject common variables like the signed-in account
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if account := middleware.CurrentAccount(c); account != nil {
		obj["CurrentAccount"] = account
		obj["IsAdmin"] = account.IsAdmin()
	}
	obj["CurrentPath"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Status": code})
}

func Forbidden(c *gin.Context) {
	RenderError(c, http.StatusForbidden, msgForbidden)
}

func NotFound(c *gin.Context) {
	RenderError(c, http.StatusNotFound, msgNotFound)
}

func TooManyRequests(c *gin.Context) {
	RenderError(c, http.StatusTooManyRequests, msgTooMany)
}

// redirect answers a form post. HTMX requests get the HX-Redirect header.
func redirect(c *gin.Context, path string) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Redirect", path)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, path)
}

// validation extracts the user-facing message of a ValidationError.
func validation(err error) (*services.ValidationError, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// handleError maps a service error onto an error page. Form handlers check
// validation first so they can re-render the form instead.
func handleError(c *gin.Context, log *zap.Logger, err error) {
	var se *services.StateError
	switch {
	case errors.As(err, &se):
		RenderError(c, http.StatusConflict, se.Message)
	case errors.Is(err, services.ErrValidation):
		ve, _ := validation(err)
		RenderError(c, http.StatusBadRequest, ve.Message)
	case errors.Is(err, services.ErrNotFound):
		NotFound(c)
	case errors.Is(err, services.ErrForbidden):
		Forbidden(c)
	default:
		id, _ := c.Get(middleware.RequestIDKey)
		log.Error("request failed", zap.Error(err), zap.Any("request_id", id), zap.String("route", c.FullPath()))
		_ = c.Error(err)
		RenderError(c, http.StatusInternalServerError, msgInternal)
	}
}

// jsonError is handleError for the JSON endpoints.
func jsonError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": msgForbidden})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error("request failed", zap.Error(err), zap.String("route", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func mustActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
	return actor, ok
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
