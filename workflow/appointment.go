// Package workflow is the only writer of appointment and doctor
// application statuses. Every transition runs inside a transaction with
// an optimistic version predicate so concurrent transitions on the same
// entity serialize: the loser observes the new state and fails instead
// of overwriting it.
package workflow

import (
	"time"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"gorm.io/gorm"
)

// TransitionRequest carries the action and its parameters. DoctorID and
// DepartmentID apply to assign; NewDate and NewTime to reschedule;
// Notes is stored as operations notes on triage actions.
type TransitionRequest struct {
	Action       model.AppointmentAction
	DoctorID     *uint
	DepartmentID *uint
	NewDate      *time.Time
	NewTime      string
	Notes        string
}

// TransitionAppointment applies one lifecycle action on behalf of actor
// and returns the updated appointment.
func TransitionAppointment(db *gorm.DB, actor model.User, appointmentID uint, req TransitionRequest) (model.Appointment, error) {
	var appt model.Appointment
	if err := db.First(&appt, appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.Appointment{}, util.NotFound("appointment")
		}
		return model.Appointment{}, util.Internal(err)
	}

	next, ok := model.NextStatus(appt.Status, req.Action)
	if !ok {
		return model.Appointment{}, util.InvalidTransition(appt.Status, string(req.Action))
	}

	if err := authorizeTransition(db, actor, appt, req.Action); err != nil {
		return model.Appointment{}, err
	}

	updates := map[string]interface{}{
		"status":  next,
		"version": appt.Version + 1,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		switch req.Action {
		case model.ActionAssign:
			if err := prepareAssign(tx, actor, &appt, req, updates); err != nil {
				return err
			}
		case model.ActionReview, model.ActionConfirm:
			stampReview(actor, req.Notes, updates)
		case model.ActionReschedule:
			if req.NewDate == nil || req.NewTime == "" {
				return util.Invalid("reschedule requires a new date and time")
			}
			updates["appointment_date"] = *req.NewDate
			updates["appointment_time"] = req.NewTime
			stampReview(actor, req.Notes, updates)
		case model.ActionCancel:
			if req.Notes != "" {
				updates["operations_notes"] = req.Notes
			}
		}

		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND version = ?", appt.ID, appt.Version).
			Updates(updates)
		if res.Error != nil {
			return util.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race: report against the state that actually won.
			var fresh model.Appointment
			if err := tx.First(&fresh, appt.ID).Error; err != nil {
				return util.Internal(err)
			}
			return util.InvalidTransition(fresh.Status, string(req.Action))
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	var updated model.Appointment
	if err := db.Preload("Doctor").Preload("Department").First(&updated, appt.ID).Error; err != nil {
		return model.Appointment{}, util.Internal(err)
	}
	return updated, nil
}

// TransitionToStatus maps a bare target status, as sent by a status
// PATCH, onto its lifecycle action and applies it.
func TransitionToStatus(db *gorm.DB, actor model.User, appointmentID uint, target string, req TransitionRequest) (model.Appointment, error) {
	action, ok := model.ActionForStatus(target)
	if !ok {
		return model.Appointment{}, util.Invalid("unknown appointment status %q", target)
	}
	req.Action = action
	return TransitionAppointment(db, actor, appointmentID, req)
}

func prepareAssign(tx *gorm.DB, actor model.User, appt *model.Appointment, req TransitionRequest, updates map[string]interface{}) error {
	if req.DoctorID == nil {
		return util.Invalid("assign requires a doctor")
	}

	var doctor model.Doctor
	if err := tx.First(&doctor, *req.DoctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.NotFound("doctor")
		}
		return util.Internal(err)
	}
	if doctor.HospitalID != appt.HospitalID {
		return util.IntegrityViolation("doctor %d belongs to hospital %d, not hospital %d", doctor.ID, doctor.HospitalID, appt.HospitalID)
	}
	if !doctor.IsActive || !doctor.IsApproved {
		return util.IntegrityViolation("doctor %d is not active and approved", doctor.ID)
	}

	departmentID := req.DepartmentID
	if departmentID == nil {
		departmentID = doctor.DepartmentID
	}
	if departmentID != nil {
		var dept model.Department
		if err := tx.First(&dept, *departmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return util.NotFound("department")
			}
			return util.Internal(err)
		}
		if dept.HospitalID != appt.HospitalID {
			return util.IntegrityViolation("department %d belongs to hospital %d, not hospital %d", dept.ID, dept.HospitalID, appt.HospitalID)
		}
		updates["department_id"] = *departmentID
	}

	var hospital model.Hospital
	if err := tx.First(&hospital, appt.HospitalID).Error; err != nil {
		return util.Internal(err)
	}

	updates["doctor_id"] = doctor.ID
	updates["consultation_fee"] = doctor.ConsultationFee
	updates["platform_commission"] = doctor.ConsultationFee * hospital.CommissionRate / 100
	stampReview(actor, req.Notes, updates)
	return nil
}

func stampReview(actor model.User, notes string, updates map[string]interface{}) {
	now := time.Now()
	updates["reviewed_by"] = actor.ID
	updates["reviewed_at"] = now
	if notes != "" {
		updates["operations_notes"] = notes
	}
}

// authorizeTransition enforces who may apply which action:
// triage actions belong to the hospital's operations manager or admin,
// start/complete to the assigned doctor, cancel additionally to the
// requesting patient.
func authorizeTransition(db *gorm.DB, actor model.User, appt model.Appointment, action model.AppointmentAction) error {
	switch action {
	case model.ActionReview, model.ActionAssign, model.ActionConfirm, model.ActionBill, model.ActionClose:
		if !hospitalStaff(actor, appt.HospitalID) {
			return util.Forbidden("only the hospital's operations manager or admin can %s appointments", action)
		}
		return nil

	case model.ActionStart, model.ActionComplete:
		if actor.Role != model.RoleDoctor {
			return util.Forbidden("only the assigned doctor can %s an appointment", action)
		}
		if !isAssignedDoctor(db, actor, appt) {
			return util.Forbidden("appointment is not assigned to you")
		}
		return nil

	case model.ActionCancel, model.ActionReschedule:
		if hospitalStaff(actor, appt.HospitalID) {
			return nil
		}
		if actor.Role == model.RolePatient && isOwningPatient(db, actor, appt) {
			return nil
		}
		if action == model.ActionCancel && actor.Role == model.RoleDoctor && isAssignedDoctor(db, actor, appt) {
			return nil
		}
		return util.Forbidden("you are not allowed to %s this appointment", action)
	}

	return util.Forbidden("unknown action %q", action)
}

func hospitalStaff(actor model.User, hospitalID uint) bool {
	switch actor.Role {
	case model.RoleOperationsManager, model.RoleHospitalAdmin, model.RoleHospitalDirector:
		return actor.HospitalID == hospitalID
	case model.RoleSuperAdmin:
		return true
	}
	return false
}

func isAssignedDoctor(db *gorm.DB, actor model.User, appt model.Appointment) bool {
	if appt.DoctorID == nil {
		return false
	}
	var doctor model.Doctor
	if err := db.Where("user_id = ?", actor.ID).First(&doctor).Error; err != nil {
		return false
	}
	return doctor.ID == *appt.DoctorID
}

func isOwningPatient(db *gorm.DB, actor model.User, appt model.Appointment) bool {
	var patient model.Patient
	if err := db.Where("user_id = ?", actor.ID).First(&patient).Error; err != nil {
		return false
	}
	return patient.ID == appt.PatientID
}

// DeactivateHospital flips is_active off. Hospitals with appointments
// still in flight cannot be deactivated; that would orphan them.
func DeactivateHospital(db *gorm.DB, actor model.User, hospitalID uint) error {
	if actor.Role != model.RoleSuperAdmin {
		return util.Forbidden("only a super admin can deactivate hospitals")
	}

	var hospital model.Hospital
	if err := db.First(&hospital, hospitalID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.NotFound("hospital")
		}
		return util.Internal(err)
	}

	var inFlight int64
	err := db.Model(&model.Appointment{}).
		Where("hospital_id = ? AND status NOT IN ?", hospitalID,
			[]string{model.StatusCompleted, model.StatusCancelled, model.StatusClosed}).
		Count(&inFlight).Error
	if err != nil {
		return util.Internal(err)
	}
	if inFlight > 0 {
		return util.IntegrityViolation("hospital has %d appointments still in flight", inFlight)
	}

	if err := db.Model(&hospital).Update("is_active", false).Error; err != nil {
		return util.Internal(err)
	}
	return nil
}
