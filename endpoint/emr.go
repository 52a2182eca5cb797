package endpoint

import (
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func doctorProfileOrRespond(c *gin.Context, db *gorm.DB, actor model.User) (model.Doctor, bool) {
	var doctor model.Doctor
	if err := db.Where("user_id = ?", actor.ID).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("doctor profile"))
			return model.Doctor{}, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load doctor profile", Err: err})
		return model.Doctor{}, false
	}
	return doctor, true
}

// ListEMRRecords returns records inside the actor's scope: patients
// their own, doctors the ones they authored, hospital staff their
// hospital's.
func ListEMRRecords(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.EMRRecord{}).Preload("DoctorNotes")
	switch actor.Role {
	case model.RolePatient:
		patient, err := ensurePatientProfile(db, actor)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
			return
		}
		q = q.Where("patient_id = ?", patient.ID)
	case model.RoleDoctor:
		doctor, ok := doctorProfileOrRespond(c, db, actor)
		if !ok {
			return
		}
		q = q.Where("doctor_id = ?", doctor.ID)
	case model.RoleHospitalAdmin, model.RoleOperationsManager, model.RoleHospitalDirector:
		q = q.Where("hospital_id = ?", actor.HospitalID)
	case model.RoleSuperAdmin:
		// unrestricted
	default:
		util.RespondError(c, util.Forbidden("role %s cannot list medical records", actor.Role))
		return
	}

	var records []model.EMRRecord
	if err := q.Order("visit_date DESC").Find(&records).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list medical records", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Medical records retrieved",
		Data: listEnvelope(int64(len(records)), "records", records),
	})
}

// PatientEMRHistory godoc
// @Summary      Lifetime medical history
// @Description  All EMR records for one patient across hospitals, newest first. Patients may only read their own history; every access is audited.
// @Tags         EMR
// @Produce      json
// @Param        id path int true "Patient ID"
// @Success      200 {object} util.APIResponse "EMR history"
// @Failure      403 {object} util.APIResponse "Patient reading another patient's record"
// @Router       /api/emr/patient/{id} [get]
func PatientEMRHistory(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	patientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("patient"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient", Err: err})
		return
	}
	if actor.Role == model.RolePatient && patient.UserID != actor.ID {
		util.RespondError(c, util.Forbidden("patients can only read their own medical history"))
		return
	}

	var records []model.EMRRecord
	if err := db.Preload("DoctorNotes").
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Find(&records).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load medical history", Err: err})
		return
	}

	util.LogResourceAction(util.ActionEMRAccessed, actor.ID, "Patient", patientID, c.ClientIP(), nil)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Medical history retrieved",
		Data: listEnvelope(int64(len(records)), "records", records),
	})
}

type createEMRRequest struct {
	PatientID     uint  `json:"patient_id" binding:"required"`
	HospitalID    uint  `json:"hospital_id" binding:"required"`
	AppointmentID *uint `json:"appointment_id"`

	VisitType               string `json:"visit_type"`
	ChiefComplaint          string `json:"chief_complaint"`
	HistoryOfPresentIllness string `json:"history_of_present_illness"`
	PhysicalExamination     string `json:"physical_examination"`
	Diagnosis               string `json:"diagnosis"`
	TreatmentPlan           string `json:"treatment_plan"`
	ClinicalNotes           string `json:"clinical_notes"`

	Temperature            *float64 `json:"temperature"`
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic"`
	HeartRate              *int     `json:"heart_rate"`
	RespiratoryRate        *int     `json:"respiratory_rate"`
	OxygenSaturation       *float64 `json:"oxygen_saturation"`
	Weight                 *float64 `json:"weight"`
	Height                 *float64 `json:"height"`
}

// CreateEMRRecord godoc
// @Summary      Create a medical record
// @Description  A doctor records a completed visit. At most one record per appointment; records are never deleted.
// @Tags         EMR
// @Accept       json
// @Produce      json
// @Param        request body createEMRRequest true "Visit details"
// @Success      201 {object} util.APIResponse "Record created"
// @Failure      403 {object} util.APIResponse "Caller is not a doctor"
// @Failure      409 {object} util.APIResponse "Appointment already has a record"
// @Router       /api/emr [post]
func CreateEMRRecord(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleDoctor {
		util.RespondError(c, util.Forbidden("only doctors can create medical records"))
		return
	}
	doctor, ok := doctorProfileOrRespond(c, db, actor)
	if !ok {
		return
	}

	var req createEMRRequest
	if !bindJSONOrRespond(c, &req, "Invalid medical record payload") {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, req.PatientID).Error; err != nil {
		util.RespondError(c, util.IntegrityViolation("patient %d does not exist", req.PatientID))
		return
	}
	if req.AppointmentID != nil {
		var appointment model.Appointment
		if err := db.First(&appointment, *req.AppointmentID).Error; err != nil {
			util.RespondError(c, util.IntegrityViolation("appointment %d does not exist", *req.AppointmentID))
			return
		}
		var existing int64
		if err := db.Model(&model.EMRRecord{}).
			Where("appointment_id = ?", *req.AppointmentID).
			Count(&existing).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check existing records", Err: err})
			return
		}
		if existing > 0 {
			util.RespondError(c, util.IntegrityViolation("appointment %d already has a medical record", *req.AppointmentID))
			return
		}
	}

	recordedBy := actor.ID
	record := model.EMRRecord{
		PatientID:     req.PatientID,
		HospitalID:    req.HospitalID,
		DoctorID:      &doctor.ID,
		AppointmentID: req.AppointmentID,

		VisitType:               req.VisitType,
		ChiefComplaint:          req.ChiefComplaint,
		HistoryOfPresentIllness: req.HistoryOfPresentIllness,
		PhysicalExamination:     req.PhysicalExamination,
		Diagnosis:               req.Diagnosis,
		TreatmentPlan:           req.TreatmentPlan,
		ClinicalNotes:           req.ClinicalNotes,

		Temperature:            req.Temperature,
		BloodPressureSystolic:  req.BloodPressureSystolic,
		BloodPressureDiastolic: req.BloodPressureDiastolic,
		HeartRate:              req.HeartRate,
		RespiratoryRate:        req.RespiratoryRate,
		OxygenSaturation:       req.OxygenSaturation,
		Weight:                 req.Weight,
		Height:                 req.Height,

		RecordedBy: &recordedBy,
	}
	if err := db.Create(&record).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create medical record", Err: err})
		return
	}

	util.LogResourceAction(util.ActionEMRCreated, actor.ID, "EMRRecord", record.ID, c.ClientIP(), map[string]interface{}{
		"patient_id": req.PatientID,
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Medical record created", Data: record})
}

type appendNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

// AppendClinicalNote adds an addendum to an existing record. The record
// itself stays immutable.
func AppendClinicalNote(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleDoctor {
		util.RespondError(c, util.Forbidden("only doctors can append clinical notes"))
		return
	}
	doctor, ok := doctorProfileOrRespond(c, db, actor)
	if !ok {
		return
	}
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req appendNoteRequest
	if !bindJSONOrRespond(c, &req, "Invalid note payload") {
		return
	}

	var record model.EMRRecord
	if err := db.First(&record, recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("medical record"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load medical record", Err: err})
		return
	}

	note := model.ClinicalNote{
		EMRRecordID: record.ID,
		DoctorID:    &doctor.ID,
		DoctorName:  actor.FullName(),
		Note:        req.Note,
	}
	if err := db.Create(&note).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to append note", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Clinical note appended", Data: note})
}
