package model

import "gorm.io/gorm"

// Role values carried on User. Role checks happen in middleware and the
// workflow package; the strings are part of the API contract.
const (
	RoleSuperAdmin        = "SUPER_ADMIN"
	RoleHospitalDirector  = "HOSPITAL_DIRECTOR"
	RoleOperationsManager = "OPERATIONS_MANAGER"
	RoleHospitalAdmin     = "HOSPITAL_ADMIN"
	RoleDoctor            = "DOCTOR"
	RoleNurse             = "NURSE"
	RoleMedicalAssistant  = "MEDICAL_ASSISTANT"
	RolePatient           = "PATIENT"
	RoleCaregiver         = "CAREGIVER"
)

// RegistrableRoles lists the roles accepted by the role-scoped
// registration endpoint. SUPER_ADMIN registration goes through the
// secret-key endpoint instead.
var RegistrableRoles = []string{
	RoleDoctor,
	RoleHospitalAdmin,
	RoleHospitalDirector,
	RoleOperationsManager,
	RoleNurse,
	RoleMedicalAssistant,
}

// User is the account record shared by every role.
type User struct {
	gorm.Model
	FirstName      string `json:"first_name" gorm:"column:first_name" example:"John"`
	LastName       string `json:"last_name" gorm:"column:last_name" example:"Doe"`
	Email          string `json:"email" gorm:"column:email;uniqueIndex;size:191" example:"john@example.com"`
	Password       string `json:"-" gorm:"column:password"`
	PasswordSalt   string `json:"-" gorm:"column:password_salt"`
	Phone          string `json:"phone" gorm:"column:phone" example:"9876543210"`
	Role           string `json:"role" gorm:"column:role;index" example:"PATIENT"`
	IsActive       bool   `json:"is_active" gorm:"column:is_active;default:true"`
	IsVerified     bool   `json:"is_verified" gorm:"column:is_verified;default:false"`
	FailedAttempts int    `json:"-" gorm:"column:failed_attempts;default:0"`
	LockedUntil    *int64 `json:"-" gorm:"column:locked_until"`

	// Staff roles are scoped to one hospital. Zero for platform-level
	// and patient-side roles.
	HospitalID uint `json:"hospital_id,omitempty" gorm:"column:hospital_id;index"`
}

// FullName joins first and last name the way the UI displays it.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
