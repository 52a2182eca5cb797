package endpoint

import (
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/Mandhata08/Medi-care/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListApplications returns doctor applications scoped by role: doctors
// see their own, hospital admins and directors see their hospital's,
// super admins see everything.
func ListApplications(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.DoctorApplication{}).Preload("User")
	switch actor.Role {
	case model.RoleDoctor:
		q = q.Where("user_id = ?", actor.ID)
	case model.RoleHospitalAdmin, model.RoleHospitalDirector:
		q = q.Where("hospital_id = ?", actor.HospitalID)
	case model.RoleSuperAdmin:
		// unrestricted
	default:
		util.RespondError(c, util.Forbidden("role %s cannot list doctor applications", actor.Role))
		return
	}

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var applications []model.DoctorApplication
	if err := q.Order("applied_at DESC").Find(&applications).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list applications", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Applications retrieved",
		Data: listEnvelope(int64(len(applications)), "applications", applications),
	})
}

type submitApplicationRequest struct {
	HospitalID      uint    `json:"hospital_id" binding:"required"`
	DepartmentID    *uint   `json:"department_id"`
	Specialization  string  `json:"specialization" binding:"required"`
	Qualification   string  `json:"qualification"`
	LicenseNumber   string  `json:"license_number" binding:"required"`
	ExperienceYears int     `json:"experience_years"`
	ConsultationFee float64 `json:"consultation_fee"`
	Bio             string  `json:"bio"`
}

// SubmitApplication godoc
// @Summary      Apply to a hospital
// @Description  A doctor submits an application to join a hospital. One pending application per user and hospital.
// @Tags         Applications
// @Accept       json
// @Produce      json
// @Param        request body submitApplicationRequest true "Application details"
// @Success      201 {object} util.APIResponse "Application submitted"
// @Failure      403 {object} util.APIResponse "Caller is not a doctor"
// @Failure      409 {object} util.APIResponse "Duplicate pending application or unknown hospital"
// @Router       /api/hospitals/doctor-applications [post]
func SubmitApplication(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleDoctor {
		util.RespondError(c, util.Forbidden("only doctors can submit applications"))
		return
	}

	var req submitApplicationRequest
	if !bindJSONOrRespond(c, &req, "Invalid application payload") {
		return
	}

	var hospital model.Hospital
	if err := db.Where("id = ? AND is_active = ?", req.HospitalID, true).First(&hospital).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.IntegrityViolation("hospital %d does not exist or is inactive", req.HospitalID))
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

	var pending int64
	if err := db.Model(&model.DoctorApplication{}).
		Where("user_id = ? AND hospital_id = ? AND status = ?", actor.ID, req.HospitalID, model.ApplicationPending).
		Count(&pending).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check pending applications", Err: err})
		return
	}
	if pending > 0 {
		util.RespondError(c, util.IntegrityViolation("you already have a pending application for this hospital"))
		return
	}

	application := model.DoctorApplication{
		UserID:          actor.ID,
		HospitalID:      req.HospitalID,
		DepartmentID:    req.DepartmentID,
		Specialization:  req.Specialization,
		Qualification:   req.Qualification,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
		Bio:             req.Bio,
		Status:          model.ApplicationPending,
	}
	if err := db.Create(&application).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to submit application", Err: err})
		return
	}

	util.LogResourceAction(util.ActionApplicationCreated, actor.ID, "DoctorApplication", application.ID, c.ClientIP(), map[string]interface{}{
		"hospital_id": req.HospitalID,
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Application submitted", Data: application})
}

type reviewApplicationRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// ReviewApplication godoc
// @Summary      Review a doctor application
// @Description  Hospital admin approves or rejects a pending application. Approval creates the doctor record exactly once.
// @Tags         Applications
// @Accept       json
// @Produce      json
// @Param        id path int true "Application ID"
// @Param        request body reviewApplicationRequest true "Decision: APPROVED or REJECTED"
// @Success      200 {object} util.APIResponse "Application reviewed"
// @Failure      409 {object} util.APIResponse "Application already decided"
// @Router       /api/hospitals/doctor-applications/{id} [patch]
func ReviewApplication(c *gin.Context) {
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
	var req reviewApplicationRequest
	if !bindJSONOrRespond(c, &req, "Invalid review payload") {
		return
	}

	application, err := workflow.ReviewApplication(db, actor, id, req.Status, req.Notes)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Application reviewed", Data: application})
}
