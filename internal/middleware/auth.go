package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"safenet/internal/models"
	"safenet/internal/services"
)

const (
	ActorKey   = "actor"
	AccountKey = "account"

	sessionAccountKey = "account_id"
)

// AccountLoader resolves the account stored in the session.
type AccountLoader interface {
	Get(ctx context.Context, id uint) (*models.Account, error)
}

// LoadActor retrieves the account from the session and puts it, and the
// Actor built from it, into the context. A stale session is cleared.
func LoadActor(accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(sessionAccountKey).(uint)
		if ok {
			account, err := accounts.Get(c.Request.Context(), id)
			if err == nil {
				c.Set(AccountKey, account)
				c.Set(ActorKey, services.ActorFromAccount(account))
			} else {
				session.Clear()
				_ = session.Save()
			}
		}
		c.Next()
	}
}

// CurrentActor returns the signed-in staff member, if any.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil
	}
	a, _ := v.(*models.Account)
	return a
}

// AuthRequired ensures a staff member is logged in. API routes get 401,
// pages are redirected to the login form.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentActor(c); !ok {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired runs forbidden and aborts unless the actor is an admin.
func AdminRequired(forbidden gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin() {
			forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Login starts a session for account.
func Login(c *gin.Context, account *models.Account) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionAccountKey, account.ID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}
