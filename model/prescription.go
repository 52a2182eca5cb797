package model

import "gorm.io/gorm"

// Prescription is written once by a doctor and immutable thereafter.
type Prescription struct {
	gorm.Model
	EMRRecordID   *uint  `json:"emr_record_id" gorm:"column:emr_record_id;uniqueIndex"`
	AppointmentID *uint  `json:"appointment_id" gorm:"column:appointment_id;uniqueIndex"`
	PatientID     uint   `json:"patient_id" gorm:"column:patient_id;index"`
	DoctorID      uint   `json:"doctor_id" gorm:"column:doctor_id;index"`
	Diagnosis     string `json:"diagnosis" gorm:"column:diagnosis;type:text"`
	Notes         string `json:"notes" gorm:"column:notes;type:text"`

	Medicines []PrescriptionMedicine `json:"medicines,omitempty" gorm:"foreignKey:PrescriptionID"`
	LabTests  []LabTestRecommendation `json:"lab_tests,omitempty" gorm:"foreignKey:PrescriptionID"`
}

// PrescriptionMedicine is one line item on a prescription.
type PrescriptionMedicine struct {
	gorm.Model
	PrescriptionID uint   `json:"prescription_id" gorm:"column:prescription_id;index"`
	Name           string `json:"name" gorm:"column:name" example:"Paracetamol 500mg"`
	Dosage         string `json:"dosage" gorm:"column:dosage" example:"1 tablet"`
	Frequency      string `json:"frequency" gorm:"column:frequency" example:"Twice daily"`
	Duration       string `json:"duration" gorm:"column:duration" example:"5 days"`
	Instructions   string `json:"instructions" gorm:"column:instructions;type:text"`
	Quantity       int    `json:"quantity" gorm:"column:quantity;default:1"`
}

// LabTestRecommendation is a lab test ordered alongside a prescription.
type LabTestRecommendation struct {
	gorm.Model
	PrescriptionID  uint   `json:"prescription_id" gorm:"column:prescription_id;index"`
	TestName        string `json:"test_name" gorm:"column:test_name" example:"CBC"`
	TestDescription string `json:"test_description" gorm:"column:test_description;type:text"`
	IsCompleted     bool   `json:"is_completed" gorm:"column:is_completed;default:false"`
}
