package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/handler"
	"github.com/skillforge/platform/internal/middleware"
	"github.com/skillforge/platform/internal/service"
	"github.com/skillforge/platform/pkg/redisclient"
)

// Dependencies bundles everything route registration needs.
type Dependencies struct {
	Redis  *redisclient.Client
	Tokens *service.TokenService

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	UserHandler    *handler.UserHandler
	HealthHandler  *handler.HealthHandler
	AdminHandler   *handler.AdminHandler

	Environment string

	CORSOrigins []string

	// Rate limit applied to the unauthenticated credential endpoints.
	AuthRateLimit  int64
	AuthRateWindow time.Duration
}

// Setup builds the gin engine with the full middleware chain and routes.
func Setup(deps Dependencies) *gin.Engine {
	if deps.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestContext())
	engine.Use(middleware.Logging())
	engine.Use(middleware.CORS(deps.CORSOrigins))

	registerHealthRoutes(engine, deps)
	registerAuthRoutes(engine, deps)
	registerUserRoutes(engine, deps)
	registerAdminRoutes(engine, deps)

	return engine
}

func registerHealthRoutes(engine *gin.Engine, deps Dependencies) {
	health := engine.Group("/health")
	{
		health.GET("/live", deps.HealthHandler.Live)
		health.GET("/ready", deps.HealthHandler.Ready)
	}
}
