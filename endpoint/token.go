package endpoint

import (
	"fmt"
	"time"

	"github.com/Mandhata08/Medi-care/middleware"
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
)

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshToken godoc
// @Summary      Refresh the token pair
// @Description  Exchange a valid refresh token for a new access/refresh pair; the old session is rotated out
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body refreshRequest true "Refresh token"
// @Success      200 {object} util.APIResponse{data=TokenPair} "Token refreshed"
// @Failure      401 {object} util.APIResponse "Invalid or expired refresh token"
// @Router       /api/auth/token/refresh [post]
func RefreshToken(c *gin.Context) {
	var req refreshRequest
	if !bindJSONOrRespond(c, &req, "Refresh token not provided") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	claims, err := middleware.ParseToken(req.Refresh)
	if err != nil || claims.TokenType != "refresh" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid or expired refresh token", Err: fmt.Errorf("refresh token rejected")})
		return
	}

	// The session row is the revocation check: a logged-out or rotated
	// refresh token has no row and cannot be replayed.
	var session model.Session
	err = db.Where("session_token = ? AND expires_at > ?", claims.ID, time.Now()).First(&session).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session expired or revoked", Err: fmt.Errorf("session not found")})
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Account no longer exists", Err: fmt.Errorf("user not found")})
		return
	}
	if !user.IsActive {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Account is deactivated", Err: fmt.Errorf("user inactive")})
		return
	}

	if err := db.Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to rotate session", Err: err})
		return
	}
	_ = util.DropSession(claims.ID, session.UserID)

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	pair, ok := issueTokensOrRespond(c, db, user, ci)
	if !ok {
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		Action:       util.ActionTokenRefreshed,
		UserID:       fmt.Sprintf("%d", user.ID),
		Email:        user.Email,
		ResourceType: "User",
		ResourceID:   user.ID,
		IP:           ci.IP,
		Message:      "Token pair refreshed",
	})

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Token refreshed", Data: pair})
}

// Profile godoc
// @Summary      Current identity
// @Description  Return the authenticated user's account record
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.User} "Profile retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /api/auth/profile [get]
func Profile(c *gin.Context) {
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: user})
}
