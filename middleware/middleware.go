package middleware

import (
	"net/http"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ctxKeyDB   = "db"
	ctxKeyUser = "current_user"
)

// DatabaseMiddleware stores the gorm DB handle on the request context so
// endpoint handlers can retrieve it with GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyDB, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm DB, or nil when the middleware
// did not run.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(ctxKeyDB)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c *gin.Context, user model.User) {
	c.Set(ctxKeyUser, user)
}

// GetCurrentUser returns the authenticated user set by AuthRequired.
func GetCurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Content-Type", "application/json")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
