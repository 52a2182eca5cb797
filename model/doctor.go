package model

import (
	"time"

	"gorm.io/gorm"
)

// Doctor is created when a DoctorApplication is approved. Doctors are
// deactivated rather than deleted so historical appointments keep a
// valid reference.
type Doctor struct {
	gorm.Model
	UserID          uint    `json:"user_id" gorm:"column:user_id;uniqueIndex"`
	HospitalID      uint    `json:"hospital_id" gorm:"column:hospital_id;index"`
	DepartmentID    *uint   `json:"department_id" gorm:"column:department_id;index"`
	Specialization  string  `json:"specialization" gorm:"column:specialization;index" example:"Cardiology"`
	Qualification   string  `json:"qualification" gorm:"column:qualification" example:"MBBS, MD"`
	LicenseNumber   string  `json:"license_number" gorm:"column:license_number;uniqueIndex;size:100"`
	ExperienceYears int     `json:"experience_years" gorm:"column:experience_years;default:0"`
	ConsultationFee float64 `json:"consultation_fee" gorm:"column:consultation_fee"`
	IsActive        bool    `json:"is_active" gorm:"column:is_active;default:true"`
	IsApproved      bool    `json:"is_approved" gorm:"column:is_approved;default:false"`
	Bio             string  `json:"bio" gorm:"column:bio;type:text"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// DoctorApplication statuses. PENDING is the only non-terminal state.
const (
	ApplicationPending  = "PENDING"
	ApplicationApproved = "APPROVED"
	ApplicationRejected = "REJECTED"
)

// DoctorApplication is a doctor's request to join a hospital. It is
// reviewed exactly once by an admin of the target hospital.
type DoctorApplication struct {
	gorm.Model
	UserID          uint    `json:"user_id" gorm:"column:user_id;index"`
	HospitalID      uint    `json:"hospital_id" gorm:"column:hospital_id;index"`
	DepartmentID    *uint   `json:"department_id" gorm:"column:department_id"`
	Specialization  string  `json:"specialization" gorm:"column:specialization"`
	Qualification   string  `json:"qualification" gorm:"column:qualification"`
	LicenseNumber   string  `json:"license_number" gorm:"column:license_number;size:100"`
	ExperienceYears int     `json:"experience_years" gorm:"column:experience_years;default:0"`
	ConsultationFee float64 `json:"consultation_fee" gorm:"column:consultation_fee"`
	Bio             string  `json:"bio" gorm:"column:bio;type:text"`

	Status     string     `json:"status" gorm:"column:status;index;default:PENDING" example:"PENDING"`
	AppliedAt  time.Time  `json:"applied_at" gorm:"column:applied_at;autoCreateTime"`
	ReviewedAt *time.Time `json:"reviewed_at" gorm:"column:reviewed_at"`
	ReviewedBy *uint      `json:"reviewed_by" gorm:"column:reviewed_by"`
	Notes      string     `json:"notes" gorm:"column:notes;type:text"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Terminal reports whether the application has been decided.
func (a DoctorApplication) Terminal() bool {
	return a.Status == ApplicationApproved || a.Status == ApplicationRejected
}
