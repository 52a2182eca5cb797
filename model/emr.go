package model

import (
	"time"

	"gorm.io/gorm"
)

// EMRRecord is one completed visit in the patient's lifetime medical
// record. Records are append-only: nothing is mutated after creation
// except appended ClinicalNotes.
type EMRRecord struct {
	gorm.Model
	PatientID     uint  `json:"patient_id" gorm:"column:patient_id;index:idx_patient_visit"`
	HospitalID    uint  `json:"hospital_id" gorm:"column:hospital_id;index"`
	DoctorID      *uint `json:"doctor_id" gorm:"column:doctor_id;index"`
	AppointmentID *uint `json:"appointment_id" gorm:"column:appointment_id;uniqueIndex"`

	VisitDate time.Time `json:"visit_date" gorm:"column:visit_date;index:idx_patient_visit;autoCreateTime"`
	VisitType string    `json:"visit_type" gorm:"column:visit_type;size:50" example:"OPD"`

	ChiefComplaint          string `json:"chief_complaint" gorm:"column:chief_complaint;type:text"`
	HistoryOfPresentIllness string `json:"history_of_present_illness" gorm:"column:history_of_present_illness;type:text"`
	PhysicalExamination     string `json:"physical_examination" gorm:"column:physical_examination;type:text"`
	Diagnosis               string `json:"diagnosis" gorm:"column:diagnosis;type:text"`
	TreatmentPlan           string `json:"treatment_plan" gorm:"column:treatment_plan;type:text"`
	ClinicalNotes           string `json:"clinical_notes" gorm:"column:clinical_notes;type:text"`

	Temperature            *float64 `json:"temperature" gorm:"column:temperature"`
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic" gorm:"column:blood_pressure_systolic"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic" gorm:"column:blood_pressure_diastolic"`
	HeartRate              *int     `json:"heart_rate" gorm:"column:heart_rate"`
	RespiratoryRate        *int     `json:"respiratory_rate" gorm:"column:respiratory_rate"`
	OxygenSaturation       *float64 `json:"oxygen_saturation" gorm:"column:oxygen_saturation"`
	Weight                 *float64 `json:"weight" gorm:"column:weight"`
	Height                 *float64 `json:"height" gorm:"column:height"`

	RecordedBy *uint `json:"recorded_by" gorm:"column:recorded_by"`

	DoctorNotes []ClinicalNote `json:"doctor_notes,omitempty" gorm:"foreignKey:EMRRecordID"`
}

// ClinicalNote is an addendum a doctor appends to an existing record.
type ClinicalNote struct {
	gorm.Model
	EMRRecordID uint   `json:"emr_record_id" gorm:"column:emr_record_id;index"`
	DoctorID    *uint  `json:"doctor_id" gorm:"column:doctor_id"`
	DoctorName  string `json:"doctor_name" gorm:"column:doctor_name"`
	Note        string `json:"note" gorm:"column:note;type:text"`
}
