package middleware

import (
	"fmt"
	"time"

	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger logs each HTTP request as an audit event. It relies
// on DatabaseMiddleware and util.SetAuditLoggerDB having been wired
// during startup so events are persisted to the audit_logs table.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}

		event := util.AuditEvent{
			Action:    util.ActionEndpointCall,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		}
		if user, ok := GetCurrentUser(c); ok {
			event.UserID = fmt.Sprintf("%d", user.ID)
			event.Email = user.Email
			details["role"] = user.Role
		}

		util.LogAuditEvent(event)
	}
}
