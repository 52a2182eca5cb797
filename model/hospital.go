package model

import "gorm.io/gorm"

// Hospital is a tenant on the platform. Hospitals are never hard
// deleted; deactivation flips is_active instead.
type Hospital struct {
	gorm.Model
	Name    string `json:"name" gorm:"column:name;index" example:"City Care Hospital"`
	Address string `json:"address" gorm:"column:address;type:text"`
	City    string `json:"city" gorm:"column:city;index" example:"Mumbai"`
	State   string `json:"state" gorm:"column:state;index" example:"Maharashtra"`
	Pincode string `json:"pincode" gorm:"column:pincode" example:"400001"`

	// Coordinates for map-based discovery; nil when the hospital has
	// not been geocoded yet.
	Latitude  *float64 `json:"latitude" gorm:"column:latitude"`
	Longitude *float64 `json:"longitude" gorm:"column:longitude"`

	Phone         string `json:"phone" gorm:"column:phone"`
	Email         string `json:"email" gorm:"column:email"`
	LicenseNumber string `json:"license_number" gorm:"column:license_number;uniqueIndex;size:100"`

	IsActive           bool `json:"is_active" gorm:"column:is_active;default:true"`
	IsApproved         bool `json:"is_approved" gorm:"column:is_approved;default:false"`
	OPDOpen            bool `json:"opd_open" gorm:"column:opd_open;default:false"`
	EmergencyAvailable bool `json:"emergency_available" gorm:"column:emergency_available;default:false"`

	SubscriptionTier string  `json:"subscription_tier" gorm:"column:subscription_tier;default:BASIC"`
	CommissionRate   float64 `json:"commission_rate" gorm:"column:commission_rate;default:5"`
}

// Department belongs to exactly one hospital.
type Department struct {
	gorm.Model
	HospitalID  uint   `json:"hospital_id" gorm:"column:hospital_id;index;uniqueIndex:idx_hospital_dept_name"`
	Name        string `json:"name" gorm:"column:name;uniqueIndex:idx_hospital_dept_name;size:100" example:"Cardiology"`
	Description string `json:"description" gorm:"column:description;type:text"`
	IsActive    bool   `json:"is_active" gorm:"column:is_active;default:true"`
}

// Bed types tracked per hospital.
const (
	BedTypeGeneral   = "GENERAL"
	BedTypeICU       = "ICU"
	BedTypeNICU      = "NICU"
	BedTypeHDU       = "HDU"
	BedTypeIsolation = "ISOLATION"
)

type Bed struct {
	gorm.Model
	HospitalID  uint   `json:"hospital_id" gorm:"column:hospital_id;index;uniqueIndex:idx_hospital_bed_number"`
	BedNumber   string `json:"bed_number" gorm:"column:bed_number;uniqueIndex:idx_hospital_bed_number;size:50"`
	BedType     string `json:"bed_type" gorm:"column:bed_type;index" example:"ICU"`
	Ward        string `json:"ward" gorm:"column:ward"`
	IsAvailable bool   `json:"is_available" gorm:"column:is_available;default:true"`
	IsOccupied  bool   `json:"is_occupied" gorm:"column:is_occupied;default:false"`
}

// EmergencyCapacity tracks live emergency-department load, one row per
// hospital. WaitTimeMinutes surfaces as emergency_wait_time on hospital
// payloads.
type EmergencyCapacity struct {
	gorm.Model
	HospitalID           uint `json:"hospital_id" gorm:"column:hospital_id;uniqueIndex"`
	TotalCapacity        int  `json:"total_capacity" gorm:"column:total_capacity;default:0"`
	CurrentOccupancy     int  `json:"current_occupancy" gorm:"column:current_occupancy;default:0"`
	WaitTimeMinutes      int  `json:"wait_time_minutes" gorm:"column:wait_time_minutes;default:0"`
	VentilatorsAvailable int  `json:"ventilators_available" gorm:"column:ventilators_available;default:0"`
	VentilatorsTotal     int  `json:"ventilators_total" gorm:"column:ventilators_total;default:0"`
}

// BedAvailability is the derived counter embedded in hospital list
// responses.
type BedAvailability struct {
	Available int64 `json:"available"`
	Total     int64 `json:"total"`
}
