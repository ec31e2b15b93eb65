package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/handlers"
	"safenet/internal/middleware"
	"safenet/internal/services"
)

type Deps struct {
	Services *services.Services
	Log      *zap.Logger
	HashIP   handlers.IPHasher
	Limiter  *middleware.RateLimiter
	PagesDir string
	// Ping checks the database for /healthz. Optional.
	Ping func(context.Context) error
	// Metrics serves /metrics. Optional.
	Metrics http.Handler
}

// RegisterRoutes installs the request middleware and every route. Sessions
// and the HTML renderer are configured on r by the caller.
func RegisterRoutes(r *gin.Engine, d Deps) error {
	authHandler := handlers.NewAuthHandler(d.Services.Accounts, d.HashIP, d.Log)
	reportHandler := handlers.NewReportHandler(d.Services.Reports, d.HashIP, d.Log)
	providerHandler := handlers.NewProviderHandler(d.Services.Providers, d.HashIP, d.Log)
	dashboardHandler := handlers.NewDashboardHandler(d.Services, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Services, d.Log)
	aidHandler := handlers.NewAidHandler(d.Services, d.Log)
	apiHandler := handlers.NewAPIHandler(d.Services.Stats, d.Ping, d.Log)
	pageHandler, err := handlers.NewPageHandler(d.PagesDir, d.Log)
	if err != nil {
		return err
	}

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.LoadActor(d.Services.Accounts))
	r.NoRoute(handlers.NotFound)

	// Operations
	r.GET("/healthz", apiHandler.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// Public routes
	limited := d.Limiter.Middleware(handlers.TooManyRequests)
	r.GET("/", pageHandler.Home)
	r.GET("/about", pageHandler.Page("about", "About SafeNet"))
	r.GET("/safety", pageHandler.Page("safety", "Staying safe"))
	r.GET("/resources", pageHandler.Page("resources", "Emergency resources"))

	r.GET("/report", reportHandler.ShowSubmit)
	r.POST("/report", limited, reportHandler.Submit)
	r.GET("/track", reportHandler.ShowTrack)
	r.POST("/track", limited, reportHandler.Track)
	r.GET("/track/:code", reportHandler.TrackByCode)

	r.GET("/directory", providerHandler.Directory)
	r.GET("/register", providerHandler.ShowRegister)
	r.POST("/register", limited, providerHandler.Register)

	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", limited, authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Staff dashboard
	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("", dashboardHandler.Index)
		dashboard.GET("/reports/:id", dashboardHandler.Report)
		dashboard.GET("/reports/:id/attachments/:name", dashboardHandler.Attachment)
		dashboard.POST("/reports/:id/status", dashboardHandler.UpdateStatus)
		dashboard.POST("/reports/:id/aid", aidHandler.Submit)
		dashboard.POST("/aid/:id/decision", aidHandler.Decide)
		dashboard.POST("/aid/:id/provided", aidHandler.Provided)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(handlers.Forbidden))
	{
		admin.POST("/reports/:id/review", adminHandler.Review)
		admin.POST("/reports/:id/assign", adminHandler.Assign)
		admin.GET("/providers", adminHandler.Providers)
		admin.GET("/providers/:id", adminHandler.Provider)
		admin.POST("/providers/:id/verify", adminHandler.Verify)
		admin.POST("/providers/:id/revoke", adminHandler.Revoke)
		admin.POST("/providers/:id/accounts", adminHandler.CreateAccount)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		api.GET("/stats", apiHandler.Stats)
	}
	return nil
}
