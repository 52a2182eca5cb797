package middleware

import (
	"fmt"
	"strings"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// AccessTokenClaims is the payload carried by access and refresh
// tokens. TokenType distinguishes the two so a refresh token cannot be
// replayed on the Authorization header.
type AccessTokenClaims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return util.GetJWTSecretByte(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthRequired authenticates the bearer access token and loads the user
// onto the request context. Expired or malformed tokens get a 401 so
// the client can attempt its single refresh retry.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Authorization token not provided",
				Err: fmt.Errorf("missing bearer token"),
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired token",
				Err: fmt.Errorf("token rejected"),
			})
			c.Abort()
			return
		}
		if claims.TokenType != "access" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired token",
				Err: fmt.Errorf("refresh token used as access token"),
			})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		var user model.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Account no longer exists",
				Err: fmt.Errorf("user not found"),
			})
			c.Abort()
			return
		}
		if !user.IsActive {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Account is deactivated",
				Err: fmt.Errorf("user inactive"),
			})
			c.Abort()
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireRoles gates a route to the listed roles. It assumes
// AuthRequired already ran; a missing user means the chain is
// misconfigured and the request is rejected.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Authentication required",
				Err: fmt.Errorf("no authenticated user"),
			})
			c.Abort()
			return
		}
		if !util.Contains(user.Role, roles) {
			util.LogUnauthorizedAccess(fmt.Sprintf("%d", user.ID), user.Email, c.ClientIP(), c.FullPath(), "role not permitted")
			util.CallUserForbidden(c, util.APIErrorParams{
				Msg: "You do not have permission to perform this action",
				Err: fmt.Errorf("role %s not permitted", user.Role),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
