package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Patient is the hospital-agnostic lifetime profile, one per user
// account. It is created lazily on first access when absent.
type Patient struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"column:user_id;uniqueIndex"`
	DateOfBirth *time.Time `json:"date_of_birth" gorm:"column:date_of_birth"`
	Gender      string     `json:"gender" gorm:"column:gender;size:1" example:"M"`
	BloodGroup  string     `json:"blood_group" gorm:"column:blood_group;size:5" example:"O+"`
	Address     string     `json:"address" gorm:"column:address;type:text"`

	EmergencyContact     string `json:"emergency_contact" gorm:"column:emergency_contact;size:20"`
	EmergencyContactName string `json:"emergency_contact_name" gorm:"column:emergency_contact_name;size:100"`

	Allergies         datatypes.JSON `json:"allergies" gorm:"column:allergies;type:json"`
	ChronicConditions datatypes.JSON `json:"chronic_conditions" gorm:"column:chronic_conditions;type:json"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Age derives the patient's age in whole years, nil when date of birth
// is unset.
func (p Patient) Age() *int {
	if p.DateOfBirth == nil {
		return nil
	}
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	return &years
}

// ValidGender reports whether g is one of the accepted gender codes.
func ValidGender(g string) bool {
	return g == "" || g == "M" || g == "F" || g == "O"
}
