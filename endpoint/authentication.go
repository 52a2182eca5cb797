package endpoint

import (
	"fmt"
	"time"

	"github.com/Mandhata08/Medi-care/config"
	"github.com/Mandhata08/Medi-care/middleware"
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// TokenPair is the issued access/refresh token pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type LoginResponse struct {
	Tokens TokenPair  `json:"tokens"`
	User   model.User `json:"user"`
}

type clientInfo struct {
	IP    string
	Agent string
}

// Login godoc
// @Summary      User login
// @Description  Authenticate user with email and password, returns access and refresh tokens
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/auth/login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}

	var user model.User
	err := db.Where("email = ?", req.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "user not found")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("user not found")})
		return
	}
	if err != nil {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "database error")
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}

	if locked, expiry := isAccountLocked(&user); locked {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "account locked")
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return
	}

	match, err := util.VerifyPassword(req.Password, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "password verification error")
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return
	}
	if !match {
		incrementFailedAttempts(db, &user, ci)
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "invalid password")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
		return
	}

	if err := resetFailedAttempts(db, &user); err != nil {
		util.LogAuditEvent(util.AuditEvent{
			Action:  util.ActionLoginFailure,
			UserID:  fmt.Sprintf("%d", user.ID),
			Email:   user.Email,
			IP:      ci.IP,
			Message: fmt.Sprintf("Failed to reset failed attempts: %v", err),
		})
	}

	pair, ok := issueTokensOrRespond(c, db, user, ci)
	if !ok {
		return
	}

	util.LogLoginSuccess(user.ID, user.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Tokens: pair, User: user},
	})
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= 5 {
		lockUntil := time.Now().Add(15 * time.Minute).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
	}
	if err := db.Save(user).Error; err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		user.FailedAttempts = 0
		user.LockedUntil = nil
		return db.Save(user).Error
	}
	return nil
}

func signToken(user model.User, tokenType, jti string, ttl time.Duration) (string, error) {
	claims := middleware.AccessTokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(util.GetJWTSecretByte())
}

// issueTokensOrRespond signs an access/refresh pair, records the
// refresh session in the DB and mirrors it into redis best-effort.
func issueTokensOrRespond(c *gin.Context, db *gorm.DB, user model.User, ci clientInfo) (TokenPair, bool) {
	access, err := signToken(user, "access", uuid.NewString(), accessTokenTTL)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return TokenPair{}, false
	}

	jti := uuid.NewString()
	refresh, err := signToken(user, "refresh", jti, refreshTokenTTL)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return TokenPair{}, false
	}

	session := model.Session{
		UserID:       user.ID,
		SessionToken: jti,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
		ClientIP:     ci.IP,
		Browser:      ci.Agent,
	}
	if err := db.Create(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return TokenPair{}, false
	}

	if rdb := config.GetRedisClient(); rdb != nil {
		_ = util.CacheSession(jti, user.ID, user.Role, refreshTokenTTL)
	}

	return TokenPair{Access: access, Refresh: refresh}, true
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password  string `json:"password" binding:"required,min=8" example:"password123"`
	FirstName string `json:"first_name" binding:"required" example:"Jane"`
	LastName  string `json:"last_name" binding:"required" example:"Doe"`
	Phone     string `json:"phone" example:"9876543210"`

	// Staff registrations may carry their hospital binding.
	HospitalID uint `json:"hospital_id,omitempty"`
}

// Register godoc
// @Summary      Patient registration
// @Description  Register a new patient account and return a token pair
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} util.APIResponse{data=LoginResponse} "Registration successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/auth/register [post]
func Register(c *gin.Context) {
	registerWithRole(c, model.RolePatient)
}

// RegisterRole godoc
// @Summary      Role-scoped registration
// @Description  Register an account for a specific staff role (doctor, hospital admin, operations manager, ...)
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        role path string true "Role name"
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} util.APIResponse{data=LoginResponse} "Registration successful"
// @Failure      400 {object} util.APIResponse "Invalid role or request"
// @Router       /api/auth/register/{role} [post]
func RegisterRole(c *gin.Context) {
	role := c.Param("role")
	if !util.Contains(role, model.RegistrableRoles) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: fmt.Errorf("role %q cannot self-register", role)})
		return
	}
	registerWithRole(c, role)
}

type adminRegisterRequest struct {
	RegisterRequest
	SecretKey string `json:"secret_key" binding:"required"`
}

// RegisterSuperAdmin godoc
// @Summary      Super admin registration
// @Description  Secret-key gated registration for the platform super admin
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body adminRegisterRequest true "Registration details with secret key"
// @Success      201 {object} util.APIResponse{data=LoginResponse} "Registration successful"
// @Failure      403 {object} util.APIResponse "Invalid secret key"
// @Router       /api/auth/register/admin/secret [post]
func RegisterSuperAdmin(c *gin.Context) {
	var req adminRegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	cfg := config.LoadConfig()
	if cfg.AdminSecretKey == "" || req.SecretKey != cfg.AdminSecretKey {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "Invalid secret key", Err: fmt.Errorf("secret key mismatch")})
		return
	}

	createAccount(c, req.RegisterRequest, model.RoleSuperAdmin)
}

func registerWithRole(c *gin.Context, role string) {
	var req RegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	createAccount(c, req, role)
}

func createAccount(c *gin.Context, req RegisterRequest, role string) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var existing model.User
	err := db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already registered", Err: fmt.Errorf("email already registered")})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hashed, err := util.HashPassword(req.Password, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	user := model.User{
		FirstName:    util.NormalizeName(req.FirstName),
		LastName:     util.NormalizeName(req.LastName),
		Email:        req.Email,
		Password:     hashed,
		PasswordSalt: salt,
		Phone:        req.Phone,
		Role:         role,
		IsActive:     true,
		HospitalID:   req.HospitalID,
	}
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	util.LogAuditEvent(util.AuditEvent{
		Action:       util.ActionUserRegistered,
		UserID:       fmt.Sprintf("%d", user.ID),
		Email:        user.Email,
		ResourceType: "User",
		ResourceID:   user.ID,
		IP:           ci.IP,
		UserAgent:    ci.Agent,
		Message:      fmt.Sprintf("User registered with role %s", role),
	})

	pair, ok := issueTokensOrRespond(c, db, user, ci)
	if !ok {
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Registration successful",
		Data: LoginResponse{Tokens: pair, User: user},
	})
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the refresh session for the presented refresh token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      400 {object} util.APIResponse "Session not found"
// @Router       /api/auth/logout [delete]
func Logout(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if !bindJSONOrRespond(c, &req, "Refresh token not provided") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	claims, err := middleware.ParseToken(req.Refresh)
	if err != nil || claims.TokenType != "refresh" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid refresh token", Err: fmt.Errorf("refresh token rejected")})
		return
	}

	var session model.Session
	if err := db.Where("session_token = ?", claims.ID).First(&session).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err == nil {
		util.LogLogout(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())
	}

	if err := db.Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}

	_ = util.DropSession(claims.ID, session.UserID)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}
