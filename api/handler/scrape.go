package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/buzzexport/export"
	"github.com/use-agent/buzzexport/models"
	"github.com/use-agent/buzzexport/panel"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// The body is the outcome itself: 200 with the Ready shape, or 503 with
// {"ok":false,"reason":...} while the table is not ready.
func Scrape(p *panel.Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := p.Scrape(c.Request.Context())
		if err != nil {
			respondOutcomeError(c, o, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// Export returns a handler for GET /api/v1/export?format=json|markdown.
//
// The export is served as a file attachment named after fileName.
func Export(p *panel.Panel, fileName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.ExportQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondError(c, models.NewExportError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		q.Defaults()
		format, err := export.ParseFormat(q.Format)
		if err != nil {
			respondError(c, err)
			return
		}

		o, err := p.Scrape(c.Request.Context())
		if err != nil {
			respondOutcomeError(c, o, err)
			return
		}
		data, err := export.Render(o, format)
		if err != nil {
			respondError(c, err)
			return
		}

		name := export.FileName(fileName, format)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, export.ContentType(format), data)
	}
}

// Last returns a handler for GET /api/v1/last, the most recent Ready
// outcome retained by the panel. It does not touch the page.
func Last(p *panel.Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := p.LastReady()
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotReady,
					Message: "no ready result yet",
				},
			})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// respondOutcomeError writes a NotReady outcome as 503 and anything else
// through respondError.
func respondOutcomeError(c *gin.Context, o models.Outcome, err error) {
	if errors.Is(err, panel.ErrNotReady) {
		c.JSON(http.StatusServiceUnavailable, o)
		return
	}
	respondError(c, err)
}

// respondError maps an ExportError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var exportErr *models.ExportError
	if !errors.As(err, &exportErr) {
		exportErr = models.NewExportError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(exportErr), models.ErrorResponse{
		Success: false,
		Error:   exportErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ExportError) int {
	switch e.Code {
	case models.ErrCodeNotReady:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}
