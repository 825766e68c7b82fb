package server

import (
	"net/http"
	"time"

	"bidwar/utils"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs every request once it has been served. The
// level follows the response status; scrapes and event streams log at debug.
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	status := c.Writer.Status()
	fields := map[string]any{
		"method":    c.Request.Method,
		"path":      c.FullPath(),
		"status":    status,
		"latency":   time.Since(start).String(),
		"client_ip": c.ClientIP(),
	}
	if projectID := c.Param("project_id"); projectID != "" {
		fields["project_id"] = projectID
	}
	if len(c.Errors) > 0 {
		fields["errors"] = c.Errors.String()
	}

	switch {
	case status >= http.StatusInternalServerError:
		utils.Error("HTTP Request", fields)
	case status >= http.StatusBadRequest:
		utils.Warn("HTTP Request", fields)
	case c.FullPath() == metricsPath || c.FullPath() == eventsPath:
		utils.Debug("HTTP Request", fields)
	default:
		utils.Info("HTTP Request", fields)
	}
}
