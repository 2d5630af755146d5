package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/buzzexport/api/handler"
	"github.com/use-agent/buzzexport/api/middleware"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/panel"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     RateLimit
//
// Health and status are outside the rate limit so local probes always work.
// Background work started for the router stops when ctx is done.
func NewRouter(ctx context.Context, p *panel.Panel, cfg *config.Config, sourceName string, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(p, sourceName, startTime))
	v1.GET("/status", handler.Status(p))

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Every scrape and export reads the page again.
	limited.POST("/scrape", handler.Scrape(p))
	limited.GET("/export", handler.Export(p, cfg.Export.OutPath))

	limited.GET("/last", handler.Last(p))

	return r
}
