package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/middleware"
	"safenet/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	hashIP   IPHasher
	log      *zap.Logger
}

func NewAuthHandler(accounts *services.AccountService, hashIP IPHasher, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, hashIP: hashIP, log: log}
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if _, ok := middleware.CurrentActor(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	login := c.PostForm("login")
	password := c.PostForm("password")

	account, err := h.accounts.Authenticate(c.Request.Context(), login, password, h.hashIP(c.ClientIP()))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
				"Error": "Invalid username or password.",
				"Login": login,
			})
			return
		}
		handleError(c, h.log, err)
		return
	}

	if err := middleware.Login(c, account); err != nil {
		handleError(c, h.log, err)
		return
	}
	redirect(c, "/dashboard")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if actor, ok := middleware.CurrentActor(c); ok {
		h.accounts.RecordLogout(c.Request.Context(), actor, h.hashIP(c.ClientIP()))
	}
	if err := middleware.Logout(c); err != nil {
		h.log.Warn("clear session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}
