package workflow

import (
	"time"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"gorm.io/gorm"
)

// ReviewApplication decides a pending doctor application. Approval
// creates the Doctor record bound to the application's hospital,
// department, specialization and fee; rejection records the note. Both
// decisions are terminal. Only an admin of the target hospital may
// review, and a decided application cannot be re-reviewed.
func ReviewApplication(db *gorm.DB, actor model.User, applicationID uint, decision, notes string) (model.DoctorApplication, error) {
	if decision != model.ApplicationApproved && decision != model.ApplicationRejected {
		return model.DoctorApplication{}, util.Invalid("decision must be %s or %s", model.ApplicationApproved, model.ApplicationRejected)
	}

	var app model.DoctorApplication
	if err := db.First(&app, applicationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.DoctorApplication{}, util.NotFound("doctor application")
		}
		return model.DoctorApplication{}, util.Internal(err)
	}

	if actor.Role != model.RoleHospitalAdmin && actor.Role != model.RoleHospitalDirector {
		return model.DoctorApplication{}, util.Forbidden("only a hospital admin can review doctor applications")
	}
	if actor.HospitalID != app.HospitalID {
		return model.DoctorApplication{}, util.Forbidden("you can only review applications for your own hospital")
	}

	if app.Terminal() {
		return model.DoctorApplication{}, util.InvalidTransition(app.Status, "review")
	}

	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		// The status predicate serializes concurrent reviews: only the
		// first decision lands, the second sees zero rows.
		res := tx.Model(&model.DoctorApplication{}).
			Where("id = ? AND status = ?", app.ID, model.ApplicationPending).
			Updates(map[string]interface{}{
				"status":      decision,
				"reviewed_at": now,
				"reviewed_by": actor.ID,
				"notes":       notes,
			})
		if res.Error != nil {
			return util.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			var fresh model.DoctorApplication
			if err := tx.First(&fresh, app.ID).Error; err != nil {
				return util.Internal(err)
			}
			return util.InvalidTransition(fresh.Status, "review")
		}

		if decision == model.ApplicationApproved {
			return ensureDoctorForApplication(tx, app)
		}
		return nil
	})
	if err != nil {
		return model.DoctorApplication{}, err
	}

	var updated model.DoctorApplication
	if err := db.First(&updated, app.ID).Error; err != nil {
		return model.DoctorApplication{}, util.Internal(err)
	}
	return updated, nil
}

// ensureDoctorForApplication creates the Doctor record for an approved
// application. One doctor per applicant: an existing record short-
// circuits, so duplicate approval attempts stay idempotent in effect.
func ensureDoctorForApplication(tx *gorm.DB, app model.DoctorApplication) error {
	var existing model.Doctor
	err := tx.Where("user_id = ?", app.UserID).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return util.Internal(err)
	}

	doctor := model.Doctor{
		UserID:          app.UserID,
		HospitalID:      app.HospitalID,
		DepartmentID:    app.DepartmentID,
		Specialization:  app.Specialization,
		Qualification:   app.Qualification,
		LicenseNumber:   app.LicenseNumber,
		ExperienceYears: app.ExperienceYears,
		ConsultationFee: app.ConsultationFee,
		Bio:             app.Bio,
		IsActive:        true,
		IsApproved:      true,
	}
	if err := tx.Create(&doctor).Error; err != nil {
		return util.Internal(err)
	}
	return nil
}
