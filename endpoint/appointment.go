package endpoint

import (
	"time"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/Mandhata08/Medi-care/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

func appointmentQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Appointment{}).
		Preload("Patient").
		Preload("Patient.User").
		Preload("Hospital").
		Preload("Department").
		Preload("Doctor").
		Preload("Doctor.User")
}

// scopeAppointments narrows the query to what the actor is allowed to
// see. Returns false when the actor's role has no appointment view.
func scopeAppointments(db *gorm.DB, q *gorm.DB, actor model.User) (*gorm.DB, bool) {
	switch actor.Role {
	case model.RolePatient:
		var patient model.Patient
		if err := db.Where("user_id = ?", actor.ID).First(&patient).Error; err != nil {
			return q.Where("1 = 0"), true
		}
		return q.Where("patient_id = ?", patient.ID), true
	case model.RoleDoctor:
		var doctor model.Doctor
		if err := db.Where("user_id = ?", actor.ID).First(&doctor).Error; err != nil {
			return q.Where("1 = 0"), true
		}
		return q.Where("doctor_id = ?", doctor.ID), true
	case model.RoleOperationsManager, model.RoleHospitalAdmin, model.RoleHospitalDirector:
		if actor.HospitalID == 0 {
			return q.Where("1 = 0"), true
		}
		return q.Where("hospital_id = ?", actor.HospitalID), true
	case model.RoleSuperAdmin:
		return q, true
	}
	return nil, false
}

// ListAppointments godoc
// @Summary      List appointments
// @Description  Role-scoped appointment list. Patients and doctors see their own, hospital staff see their hospital's, super admins see all.
// @Tags         Appointments
// @Produce      json
// @Param        status query string false "Status filter"
// @Param        date query string false "Exact date YYYY-MM-DD"
// @Param        upcoming query bool false "Only today and later"
// @Param        hospital query int false "Hospital ID"
// @Success      200 {object} util.APIResponse "Appointment list"
// @Router       /api/appointments [get]
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	q, allowed := scopeAppointments(db, appointmentQuery(db), actor)
	if !allowed {
		util.RespondError(c, util.Forbidden("role %s cannot list appointments", actor.Role))
		return
	}

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if date := c.Query("date"); date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			util.RespondError(c, util.Invalid("date must be formatted YYYY-MM-DD"))
			return
		}
		q = q.Where("appointment_date = ?", parsed)
	}
	if c.Query("upcoming") == "true" {
		today := time.Now().Truncate(24 * time.Hour)
		q = q.Where("appointment_date >= ?", today)
	}
	if hospital := c.Query("hospital"); hospital != "" {
		q = q.Where("hospital_id = ?", hospital)
	}

	var appointments []model.Appointment
	if err := q.Order("appointment_date, appointment_time").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: listEnvelope(int64(len(appointments)), "appointments", appointments),
	})
}

type createAppointmentRequest struct {
	HospitalID      uint   `json:"hospital_id" binding:"required"`
	DepartmentID    *uint  `json:"department_id"`
	AppointmentType string `json:"appointment_type"`
	AppointmentDate string `json:"appointment_date" binding:"required"`
	AppointmentTime string `json:"appointment_time" binding:"required"`
	Reason          string `json:"reason"`
	Priority        string `json:"priority"`
	IsWalkIn        bool   `json:"is_walk_in"`
	Notes           string `json:"notes"`
}

// CreateAppointment godoc
// @Summary      Book an appointment
// @Description  Patients request an appointment. It enters the lifecycle as REQUESTED and waits for operations triage.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Param        request body createAppointmentRequest true "Booking details"
// @Success      201 {object} util.APIResponse "Appointment requested"
// @Failure      403 {object} util.APIResponse "Caller is not a patient"
// @Failure      409 {object} util.APIResponse "Hospital inactive or unknown"
// @Router       /api/appointments [post]
func CreateAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RolePatient {
		util.RespondError(c, util.Forbidden("only patients can book appointments"))
		return
	}

	var req createAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid appointment payload") {
		return
	}

	appointmentDate, err := time.Parse(dateLayout, req.AppointmentDate)
	if err != nil {
		util.RespondError(c, util.InvalidFields("invalid appointment payload", map[string]string{
			"appointment_date": "must be formatted YYYY-MM-DD",
		}))
		return
	}
	if req.AppointmentType == "" {
		req.AppointmentType = model.TypeOPD
	}
	if !model.ValidAppointmentType(req.AppointmentType) {
		util.RespondError(c, util.InvalidFields("invalid appointment payload", map[string]string{
			"appointment_type": "unknown appointment type " + req.AppointmentType,
		}))
		return
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(req.Priority) {
		util.RespondError(c, util.InvalidFields("invalid appointment payload", map[string]string{
			"priority": "unknown priority " + req.Priority,
		}))
		return
	}

	var hospital model.Hospital
	if err := db.Where("id = ? AND is_active = ? AND is_approved = ?", req.HospitalID, true, true).
		First(&hospital).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.IntegrityViolation("hospital %d does not exist or is not accepting appointments", req.HospitalID))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify hospital", Err: err})
		return
	}
	if req.DepartmentID != nil {
		var department model.Department
		if err := db.Where("id = ? AND hospital_id = ?", *req.DepartmentID, req.HospitalID).First(&department).Error; err != nil {
			util.RespondError(c, util.IntegrityViolation("department %d does not belong to hospital %d", *req.DepartmentID, req.HospitalID))
			return
		}
	}

	patient, err := ensurePatientProfile(db, actor)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
		return
	}

	appointment := model.Appointment{
		PatientID:       patient.ID,
		HospitalID:      req.HospitalID,
		DepartmentID:    req.DepartmentID,
		AppointmentType: req.AppointmentType,
		AppointmentDate: appointmentDate,
		AppointmentTime: req.AppointmentTime,
		Status:          model.StatusRequested,
		Reason:          req.Reason,
		Priority:        req.Priority,
		IsWalkIn:        req.IsWalkIn,
		Notes:           req.Notes,
	}
	if err := db.Create(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create appointment", Err: err})
		return
	}

	util.LogResourceAction(util.ActionAppointmentCreated, actor.ID, "Appointment", appointment.ID, c.ClientIP(), map[string]interface{}{
		"hospital_id": req.HospitalID,
		"type":        req.AppointmentType,
		"priority":    req.Priority,
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Appointment requested", Data: appointment})
}

// GetAppointment returns a single appointment if it falls inside the
// actor's scope.
func GetAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	q, allowed := scopeAppointments(db, appointmentQuery(db), actor)
	if !allowed {
		util.RespondError(c, util.Forbidden("role %s cannot view appointments", actor.Role))
		return
	}

	var appointment model.Appointment
	if err := q.Where("appointments.id = ?", id).First(&appointment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("appointment"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load appointment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment retrieved", Data: appointment})
}

type updateAppointmentRequest struct {
	Status          string `json:"status" binding:"required"`
	DoctorID        *uint  `json:"doctor_id"`
	DepartmentID    *uint  `json:"department_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Notes           string `json:"notes"`
}

// UpdateAppointment godoc
// @Summary      Move an appointment through its lifecycle
// @Description  PATCH with a target status. The transition table rejects anything not reachable from the current state with a 409.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Param        id path int true "Appointment ID"
// @Param        request body updateAppointmentRequest true "Target status plus action parameters"
// @Success      200 {object} util.APIResponse "Appointment updated"
// @Failure      409 {object} util.APIResponse "Transition not allowed from current status"
// @Router       /api/appointments/{id} [patch]
func UpdateAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid appointment update payload") {
		return
	}

	transition := workflow.TransitionRequest{
		DoctorID:     req.DoctorID,
		DepartmentID: req.DepartmentID,
		NewTime:      req.AppointmentTime,
		Notes:        req.Notes,
	}
	if req.AppointmentDate != "" {
		parsed, err := time.Parse(dateLayout, req.AppointmentDate)
		if err != nil {
			util.RespondError(c, util.InvalidFields("invalid appointment update payload", map[string]string{
				"appointment_date": "must be formatted YYYY-MM-DD",
			}))
			return
		}
		transition.NewDate = &parsed
	}

	appointment, err := workflow.TransitionToStatus(db, actor, id, req.Status, transition)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	util.LogResourceAction(util.ActionEndpointCall, actor.ID, "Appointment", appointment.ID, c.ClientIP(), map[string]interface{}{
		"status": appointment.Status,
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment updated", Data: appointment})
}

type assignAppointmentRequest struct {
	DoctorID     uint   `json:"doctor_id" binding:"required"`
	DepartmentID *uint  `json:"department_id"`
	Notes        string `json:"notes"`
}

// AssignAppointment godoc
// @Summary      Assign a doctor to an appointment
// @Description  Operations staff attach a doctor (and optionally a department) to a requested or reviewed appointment, moving it to ASSIGNED.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Param        id path int true "Appointment ID"
// @Param        request body assignAppointmentRequest true "Assignment details"
// @Success      200 {object} util.APIResponse "Appointment assigned"
// @Failure      409 {object} util.APIResponse "Doctor invalid for this hospital or state not assignable"
// @Router       /api/appointments/{id}/assign [post]
func AssignAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req assignAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid assignment payload") {
		return
	}

	appointment, err := workflow.TransitionAppointment(db, actor, id, workflow.TransitionRequest{
		Action:       model.ActionAssign,
		DoctorID:     &req.DoctorID,
		DepartmentID: req.DepartmentID,
		Notes:        req.Notes,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	util.LogResourceAction(util.ActionAppointmentAssign, actor.ID, "Appointment", appointment.ID, c.ClientIP(), map[string]interface{}{
		"doctor_id": req.DoctorID,
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment assigned", Data: appointment})
}

// OperationsAppointments returns the triage queue for the actor's
// hospital, defaulting to the REQUESTED backlog.
func OperationsAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.HospitalID == 0 && actor.Role != model.RoleSuperAdmin {
		util.RespondError(c, util.NotFound("hospital assignment"))
		return
	}

	status := c.DefaultQuery("status", model.StatusRequested)
	q := appointmentQuery(db).Where("status = ?", status)
	if actor.Role != model.RoleSuperAdmin {
		q = q.Where("hospital_id = ?", actor.HospitalID)
	}

	var appointments []model.Appointment
	if err := q.Order("appointment_date, appointment_time").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load operations queue", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Operations queue retrieved",
		Data: listEnvelope(int64(len(appointments)), "appointments", appointments),
	})
}

// PatientAppointments returns the logged-in patient's history, most
// recent first.
func PatientAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	patient, err := ensurePatientProfile(db, actor)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
		return
	}

	var appointments []model.Appointment
	if err := appointmentQuery(db).
		Where("patient_id = ?", patient.ID).
		Order("appointment_date DESC, appointment_time DESC").
		Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: listEnvelope(int64(len(appointments)), "appointments", appointments),
	})
}

// DoctorAppointments returns the logged-in doctor's schedule.
func DoctorAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	var doctor model.Doctor
	if err := db.Where("user_id = ?", actor.ID).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("doctor profile"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load doctor profile", Err: err})
		return
	}

	var appointments []model.Appointment
	if err := appointmentQuery(db).
		Where("doctor_id = ?", doctor.ID).
		Order("appointment_date, appointment_time").
		Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: listEnvelope(int64(len(appointments)), "appointments", appointments),
	})
}
