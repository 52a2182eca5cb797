package endpoint

import (
	"fmt"
	"strconv"

	"github.com/Mandhata08/Medi-care/middleware"
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func currentUserOrRespond(c *gin.Context) (model.User, bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Authentication required", Err: fmt.Errorf("no authenticated user")})
		return model.User{}, false
	}
	return user, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("Invalid %s", name), Err: fmt.Errorf("%s must be a positive integer", name)})
		return 0, false
	}
	return uint(id), true
}

func parseLimitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}

// ensurePatientProfile loads the patient profile for a user, creating
// it lazily on first access. The absence of a profile is never an
// error for patient-facing endpoints.
func ensurePatientProfile(db *gorm.DB, user model.User) (model.Patient, error) {
	var patient model.Patient
	err := db.Where("user_id = ?", user.ID).First(&patient).Error
	if err == nil {
		return patient, nil
	}
	if err != gorm.ErrRecordNotFound {
		return model.Patient{}, err
	}

	patient = model.Patient{UserID: user.ID}
	if err := db.Create(&patient).Error; err != nil {
		return model.Patient{}, err
	}
	return patient, nil
}

// listEnvelope is the uniform shape of every list response.
func listEnvelope(total int64, key string, items interface{}) map[string]interface{} {
	return map[string]interface{}{
		"total":         total,
		"total_fetched": fetchedCount(items),
		key:             items,
	}
}

func fetchedCount(items interface{}) int {
	switch v := items.(type) {
	case []model.Hospital:
		return len(v)
	case []model.Doctor:
		return len(v)
	case []model.Department:
		return len(v)
	case []model.DoctorApplication:
		return len(v)
	case []model.Appointment:
		return len(v)
	case []model.Patient:
		return len(v)
	case []model.EMRRecord:
		return len(v)
	case []model.Prescription:
		return len(v)
	case []model.Bed:
		return len(v)
	case []hospitalView:
		return len(v)
	}
	return 0
}
