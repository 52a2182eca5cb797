package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is a persisted audit event covering auth activity and every
// medical-data mutation (appointment transitions, application reviews,
// doctor approvals).
type AuditLog struct {
	gorm.Model
	UserID       string `json:"user_id" gorm:"column:user_id;type:varchar(64);index"`
	Email        string `json:"email" gorm:"column:email;type:varchar(191);index"`
	Action       string `json:"action" gorm:"column:action;type:varchar(100);index"`
	ResourceType string `json:"resource_type" gorm:"column:resource_type;type:varchar(50);index:idx_resource"`
	ResourceID   uint   `json:"resource_id" gorm:"column:resource_id;index:idx_resource"`
	IP           string `json:"ip" gorm:"column:ip;type:varchar(45)"`
	// Location stores city and country in the format "City/Country" when available.
	Location  string         `json:"location" gorm:"column:location;type:varchar(255)"`
	UserAgent string         `json:"user_agent" gorm:"column:user_agent;type:varchar(512)"`
	Message   string         `json:"message" gorm:"column:message;type:text"`
	Details   datatypes.JSON `json:"details" gorm:"column:details;type:json"`
}
