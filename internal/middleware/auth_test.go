package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"safenet/internal/models"
)

type stubAccounts map[uint]*models.Account

func (s stubAccounts) Get(ctx context.Context, id uint) (*models.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, errors.New("not found")
}

func newAuthRouter(accounts stubAccounts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("test-secret-test-secret-32-bytes"))))
	r.Use(LoadActor(accounts))

	r.GET("/login-as/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		if a, ok := accounts[uint(id)]; ok {
			_ = Login(c, a)
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/logout", func(c *gin.Context) {
		_ = Logout(c)
		c.Status(http.StatusNoContent)
	})

	forbidden := func(c *gin.Context) { c.String(http.StatusForbidden, "forbidden") }
	r.GET("/dashboard", AuthRequired(), func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.String(http.StatusOK, "hello "+actor.Username)
	})
	r.GET("/api/stats", AuthRequired(), func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/admin", AuthRequired(), AdminRequired(forbidden), func(c *gin.Context) {
		c.String(http.StatusOK, "admin "+CurrentAccount(c).Username)
	})
	return r
}

func get(r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newAuthRouter(stubAccounts{})

	w := get(r, "/dashboard", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("page: got %d to %q", w.Code, w.Header().Get("Location"))
	}

	w = get(r, "/api/stats", nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "authentication required") {
		t.Errorf("api: got %d %s", w.Code, w.Body.String())
	}
}

func TestSessionRoles(t *testing.T) {
	pid := uint(9)
	accounts := stubAccounts{
		1: {ID: 1, Username: "root", Role: models.RoleAdmin, IsActive: true},
		2: {ID: 2, Username: "clinic", Role: models.RoleProvider, ProviderID: &pid, IsActive: true},
	}
	r := newAuthRouter(accounts)

	provider := get(r, "/login-as/2", nil).Result().Cookies()
	if w := get(r, "/dashboard", provider); w.Code != http.StatusOK || w.Body.String() != "hello clinic" {
		t.Errorf("provider dashboard: %d %s", w.Code, w.Body.String())
	}
	if w := get(r, "/admin", provider); w.Code != http.StatusForbidden {
		t.Errorf("provider on admin route: %d", w.Code)
	}

	admin := get(r, "/login-as/1", nil).Result().Cookies()
	if w := get(r, "/admin", admin); w.Code != http.StatusOK || w.Body.String() != "admin root" {
		t.Errorf("admin: %d %s", w.Code, w.Body.String())
	}

	cleared := get(r, "/logout", admin).Result().Cookies()
	if w := get(r, "/dashboard", cleared); w.Code != http.StatusFound {
		t.Errorf("after logout: %d", w.Code)
	}
}

func TestLoadActorClearsStaleSession(t *testing.T) {
	accounts := stubAccounts{3: {ID: 3, Username: "gone", Role: models.RoleProvider, IsActive: true}}
	r := newAuthRouter(accounts)
	cookies := get(r, "/login-as/3", nil).Result().Cookies()
	delete(accounts, 3)

	w := get(r, "/dashboard", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	var reset bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "test" {
			reset = true
		}
	}
	if !reset {
		t.Error("stale session cookie was not rewritten")
	}
}
