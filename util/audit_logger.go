package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Mandhata08/Medi-care/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditAction represents the tracked action categories.
type AuditAction string

const (
	ActionUserRegistered     AuditAction = "USER_REGISTERED"
	ActionLoginSuccess       AuditAction = "LOGIN_SUCCESS"
	ActionLoginFailure       AuditAction = "LOGIN_FAILURE"
	ActionLogout             AuditAction = "LOGOUT"
	ActionTokenRefreshed     AuditAction = "TOKEN_REFRESHED"
	ActionAccountLocked      AuditAction = "ACCOUNT_LOCKED"
	ActionUnauthorized       AuditAction = "UNAUTHORIZED_ACCESS"
	ActionRateLimitExceeded  AuditAction = "RATE_LIMIT_EXCEEDED"
	ActionEndpointCall       AuditAction = "ENDPOINT_CALL"
	ActionAppointmentCreated AuditAction = "APPOINTMENT_REQUESTED"
	ActionAppointmentAssign  AuditAction = "APPOINTMENT_ASSIGNED"
	ActionApplicationCreated AuditAction = "APPLICATION_SUBMITTED"
	ActionDoctorApproved     AuditAction = "DOCTOR_APPROVED"
	ActionEMRCreated         AuditAction = "EMR_CREATED"
	ActionEMRAccessed        AuditAction = "EMR_ACCESSED"
	ActionPrescriptionIssued AuditAction = "PRESCRIPTION_CREATED"
)

// AuditEvent is one entry destined for the audit_logs table.
type AuditEvent struct {
	Action       AuditAction
	UserID       string
	Email        string
	ResourceType string
	ResourceID   uint
	IP           string
	UserAgent    string
	Message      string
	Details      map[string]interface{}
}

var auditLogger *log.Logger
var auditDB *gorm.DB

// SetAuditLoggerDB sets the gorm DB the audit trail persists to. Call
// during startup after DB initialization.
func SetAuditLoggerDB(db *gorm.DB) {
	auditDB = db
}

func init() {
	auditLogger = log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogAuditEvent writes the event to stdout and, best-effort, to the
// audit_logs table. Failures never propagate to the request.
func LogAuditEvent(event AuditEvent) {
	msg := fmt.Sprintf("Action=%s UserID=%s Email=%s Resource=%s/%d IP=%s Message=%s",
		sanitizeLogValue(string(event.Action)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.ResourceType),
		event.ResourceID,
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.Message),
	)
	auditLogger.Println(msg)

	if auditDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	// Resolve city/country for the IP (best-effort, local mmdb + cache)
	city, country := GetIPLocation(event.IP)
	var location string
	switch {
	case city != "" && country != "":
		location = fmt.Sprintf("%s/%s", city, country)
	case country != "":
		location = country
	case city != "":
		location = city
	}

	entry := model.AuditLog{
		UserID:       event.UserID,
		Email:        sanitizeLogValue(event.Email),
		Action:       string(event.Action),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		IP:           sanitizeLogValue(event.IP),
		Location:     sanitizeLogValue(location),
		UserAgent:    sanitizeLogValue(event.UserAgent),
		Message:      sanitizeLogValue(event.Message),
		Details:      details,
	}

	if err := auditDB.Create(&entry).Error; err != nil {
		auditLogger.Printf("Failed to persist audit event: %v", err)
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		Action:       ActionLoginSuccess,
		UserID:       fmt.Sprintf("%d", userID),
		Email:        email,
		ResourceType: "User",
		ResourceID:   userID,
		IP:           ip,
		UserAgent:    userAgent,
		Message:      "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(email, ip, userAgent, reason string) {
	LogAuditEvent(AuditEvent{
		Action:    ActionLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogLogout logs a logout event
func LogLogout(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		Action:       ActionLogout,
		UserID:       fmt.Sprintf("%d", userID),
		Email:        email,
		ResourceType: "User",
		ResourceID:   userID,
		IP:           ip,
		UserAgent:    userAgent,
		Message:      "User logged out",
	})
}

// LogAccountLocked logs when an account is locked
func LogAccountLocked(userID uint, email, ip string, reason string) {
	LogAuditEvent(AuditEvent{
		Action:       ActionAccountLocked,
		UserID:       fmt.Sprintf("%d", userID),
		Email:        email,
		ResourceType: "User",
		ResourceID:   userID,
		IP:           ip,
		Message:      fmt.Sprintf("Account locked: %s", reason),
	})
}

// LogUnauthorizedAccess logs role or ownership violations
func LogUnauthorizedAccess(userID, email, ip, resource, reason string) {
	LogAuditEvent(AuditEvent{
		Action:  ActionUnauthorized,
		UserID:  userID,
		Email:   email,
		IP:      ip,
		Message: fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(email, ip, endpoint string) {
	LogAuditEvent(AuditEvent{
		Action:  ActionRateLimitExceeded,
		Email:   email,
		IP:      ip,
		Message: fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}

// LogResourceAction logs a mutation on a domain resource.
func LogResourceAction(action AuditAction, userID uint, resourceType string, resourceID uint, ip string, details map[string]interface{}) {
	LogAuditEvent(AuditEvent{
		Action:       action,
		UserID:       fmt.Sprintf("%d", userID),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IP:           ip,
		Message:      fmt.Sprintf("%s on %s #%d", action, resourceType, resourceID),
		Details:      details,
	})
}

// SetAuditLoggerForTest sets a custom logger for testing purposes
func SetAuditLoggerForTest(logger *log.Logger) {
	auditLogger = logger
}
