package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/adapters/signal"
	"github.com/avoronin/Huddle/internal/config"
)

// ClientTokenMiddleware assigns each request a fresh connection token. A
// connection id is transport-level: two tabs of the same user must get two
// distinct ids, so this is never persisted in a cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("client_token", uuid.NewString())
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, meetings *MeetingHandlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("conn", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.POST("/meetings", meetings.Create)
	api.GET("/meetings/:id", meetings.Get)
	api.POST("/meetings/:id/lock", meetings.Lock)
	api.POST("/meetings/:id/unlock", meetings.Unlock)
	api.POST("/meetings/:id/cohosts", meetings.AssignCoHost)
	api.DELETE("/meetings/:id/cohosts/:userId", meetings.RemoveCoHost)

	return r
}
