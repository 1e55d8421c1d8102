package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router hands out to handlers.
type Deps struct {
	Env            string
	Users          handlers.UserService
	Auth           handlers.Authenticator
	Importer       handlers.UserImporter
	Tokens         auth.Verifier
	Ping           func(ctx context.Context) error
	Prom           *observability.Prom
	Gatherer       prometheus.Gatherer
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))

	// ops
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// users
	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Importer, d.UploadDir, log)
	authHandler := handlers.NewAuthHandler(d.Auth, log)

	users := r.Group("/users")
	{
		users.POST("/login", middlewares.RequireJSON(), authHandler.Login)
		users.POST("", middlewares.RequireJSON(), usersHandler.Create)

		admin := users.Group("", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
		admin.GET("", usersHandler.List)
		admin.DELETE("/:id", usersHandler.Delete)
		admin.POST("/upload", middlewares.MaxBodyBytes(d.MaxUploadBytes), usersHandler.Upload)

		member := users.Group("", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin, user.RoleUser))
		member.GET("/:id", usersHandler.Get)
		member.PUT("/:id", middlewares.RequireJSON(), usersHandler.Update)
	}

	return r
}
