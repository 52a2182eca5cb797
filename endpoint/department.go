package endpoint

import (
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListDepartments returns active departments, optionally scoped to one
// hospital via ?hospital=.
func ListDepartments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.Department{}).Where("is_active = ?", true)
	if hospital := c.Query("hospital"); hospital != "" {
		q = q.Where("hospital_id = ?", hospital)
	}

	var departments []model.Department
	if err := q.Order("name").Find(&departments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list departments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Departments retrieved",
		Data: listEnvelope(int64(len(departments)), "departments", departments),
	})
}

type createDepartmentRequest struct {
	HospitalID  uint   `json:"hospital_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateDepartment adds a department to a hospital. Staff may only
// create departments in their own hospital.
func CreateDepartment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	var req createDepartmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid department payload") {
		return
	}

	if actor.Role != model.RoleSuperAdmin && actor.HospitalID != req.HospitalID {
		util.RespondError(c, util.Forbidden("departments can only be created in your own hospital"))
		return
	}

	var hospital model.Hospital
	if err := db.First(&hospital, req.HospitalID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.IntegrityViolation("hospital %d does not exist", req.HospitalID))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify hospital", Err: err})
		return
	}

	name := util.NormalizeName(req.Name)
	var existing model.Department
	if err := db.Where("hospital_id = ? AND name = ?", req.HospitalID, name).First(&existing).Error; err == nil {
		util.RespondError(c, util.IntegrityViolation("department %q already exists in this hospital", name))
		return
	}

	department := model.Department{
		HospitalID:  req.HospitalID,
		Name:        name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := db.Create(&department).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create department", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Department created", Data: department})
}
