package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/buzzexport/models"
	"github.com/use-agent/buzzexport/panel"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "healthy" once a Ready outcome has been seen and "waiting" before.
func Health(p *panel.Panel, sourceName string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "waiting"
		if _, ok := p.LastReady(); ok {
			status = "healthy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Source:  sourceName,
			Version: Version,
		})
	}
}

// Status returns a handler for GET /api/v1/status.
func Status(p *panel.Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := p.Status()
		resp := models.StatusResponse{
			Status:      s.Text,
			State:       s.State.String(),
			Attempt:     s.Attempt,
			MaxAttempts: s.MaxAttempts,
		}
		if s.LastReady != nil {
			resp.LastReadyCourses = s.LastReady.CourseCount()
			resp.LastReadyAt = s.LastReady.ScrapedAt().Format(models.TimestampLayout)
		}
		c.JSON(http.StatusOK, resp)
	}
}
