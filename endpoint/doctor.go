package endpoint

import (
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListDoctors godoc
// @Summary      List doctors
// @Description  Public directory of active, approved doctors with hospital, department, specialization and name filters
// @Tags         Doctors
// @Produce      json
// @Param        hospital query int false "Hospital ID"
// @Param        department query int false "Department ID"
// @Param        specialization query string false "Specialization substring"
// @Param        search query string false "Match name or specialization"
// @Success      200 {object} util.APIResponse "Doctor list"
// @Router       /api/hospitals/doctors [get]
func ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.Doctor{}).
		Preload("User").
		Where("is_active = ? AND is_approved = ?", true, true)

	if hospital := c.Query("hospital"); hospital != "" {
		q = q.Where("hospital_id = ?", hospital)
	}
	if department := c.Query("department"); department != "" {
		q = q.Where("department_id = ?", department)
	}
	if specialization := c.Query("specialization"); specialization != "" {
		q = q.Where("specialization LIKE ?", "%"+specialization+"%")
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("specialization LIKE ? OR user_id IN (?)", pattern,
			db.Model(&model.User{}).Select("id").
				Where("first_name LIKE ? OR last_name LIKE ?", pattern, pattern))
	}

	var doctors []model.Doctor
	if err := q.Order("id").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctors retrieved",
		Data: listEnvelope(int64(len(doctors)), "doctors", doctors),
	})
}

// GetDoctor returns one doctor's public profile.
func GetDoctor(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var doctor model.Doctor
	if err := db.Preload("User").First(&doctor, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("doctor"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load doctor", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor retrieved", Data: doctor})
}

// ApproveDoctor flips is_approved on a doctor record. Super admin only;
// the route guard enforces the role, this handler records the audit
// trail.
func ApproveDoctor(c *gin.Context) {
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

	var doctor model.Doctor
	if err := db.First(&doctor, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("doctor"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load doctor", Err: err})
		return
	}

	if err := db.Model(&doctor).Update("is_approved", true).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to approve doctor", Err: err})
		return
	}

	util.LogResourceAction(util.ActionDoctorApproved, actor.ID, "Doctor", doctor.ID, c.ClientIP(), map[string]interface{}{
		"doctor_user_id": doctor.UserID,
		"hospital_id":    doctor.HospitalID,
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor approved", Data: doctor})
}
