package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/app"
	iauth "github.com/capitalcompass/tradedesk/internal/auth"
	"github.com/capitalcompass/tradedesk/internal/handlers"
	"github.com/capitalcompass/tradedesk/internal/middleware"
	"github.com/capitalcompass/tradedesk/internal/models"
	"github.com/capitalcompass/tradedesk/internal/services"
)

// Services bundles the domain services the router depends on.
type Services struct {
	Auth     *iauth.AuthService
	Sessions *iauth.SessionService
	Accounts *services.AccountService
	Experts  *services.ExpertService
	Market   *services.MarketService
	Activity *services.ActivityService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, svc Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc.Auth == nil || svc.Sessions == nil {
		return nil, fmt.Errorf("auth and session services must be provided")
	}
	if svc.Accounts == nil || svc.Experts == nil || svc.Market == nil || svc.Activity == nil {
		return nil, fmt.Errorf("domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	rateWindow := cfg.Server.RateWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, rateWindow))

	r.HandleMethodNotAllowed = true
	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	// Public surface
	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Sessions)
	r.POST("/auth", authHandler.Dispatch)

	accountHandler := handlers.NewAccountHandler(svc.Accounts)
	r.POST("/account-details", accountHandler.ReportSnapshot)
	r.GET("/client-basic", accountHandler.ClientBasic)

	marketHandler := handlers.NewMarketHandler(svc.Market)
	r.GET("/trading-pairs", marketHandler.TradingPair)
	r.GET("/server-time", marketHandler.ServerTime)

	expertHandler := handlers.NewExpertHandler(svc.Experts)
	r.GET("/ea-details", expertHandler.Details)

	ea := r.Group("/ea")
	{
		ea.GET("/news-check", marketHandler.NewsCheck)
		ea.POST("/news-reset-all", marketHandler.NewsResetAll)
	}

	// Admin surface: session auth plus role gate.
	activityHandler := handlers.NewActivityHandler(svc.Activity)

	admin := r.Group("/admin")
	admin.Use(middleware.Auth(svc.Sessions), middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
	{
		admin.GET("/activity", activityHandler.List)
		admin.POST("/account-names", accountHandler.RegisterName)
		admin.POST("/account-names/:id/state", accountHandler.SetNameState)
		admin.GET("/snapshots", accountHandler.ListSnapshots)
		admin.POST("/experts", expertHandler.Register)
		admin.POST("/experts/assign", expertHandler.AssignClient)
		admin.POST("/trading-pairs", marketHandler.UpsertTradingPair)
		admin.POST("/news-status", marketHandler.SetNewsStatus)
	}

	return r, nil
}
