package endpoint_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func submitApplication(t *testing.T, r *gin.Engine, token string, hospitalID uint, license string) (int, map[string]interface{}) {
	t.Helper()
	w, resp := performRequest(t, r, requestSpec{
		method: http.MethodPost, path: "/api/hospitals/doctor-applications",
		body: map[string]interface{}{
			"hospital_id":      hospitalID,
			"specialization":   "Cardiology",
			"qualification":    "MBBS, MD",
			"license_number":   license,
			"experience_years": 8,
			"consultation_fee": 750,
		},
		headers: authHeader(token),
	})
	return w.Code, resp
}

func TestSubmitApplication(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	hospital := mustCreateHospital(t, db, "Applying Hospital", "Mumbai", nil, nil)
	_, docToken := loginAs(t, db, r, model.RoleDoctor, 0)

	code, resp := submitApplication(t, r, docToken, hospital.ID, "MED-1001")
	require.Equal(t, http.StatusCreated, code, "submit failed: %v", resp)
	created := resp["data"].(map[string]interface{})
	assert.Equal(t, model.ApplicationPending, created["status"])

	// A second pending application for the same hospital is rejected.
	code, _ = submitApplication(t, r, docToken, hospital.ID, "MED-1001")
	assert.Equal(t, http.StatusConflict, code)

	// Patients cannot apply.
	_, patientToken := loginAs(t, db, r, model.RolePatient, 0)
	code, _ = submitApplication(t, r, patientToken, hospital.ID, "MED-1002")
	assert.Equal(t, http.StatusForbidden, code)

	// Unknown hospital is a referential problem.
	_, otherDocToken := loginAs(t, db, r, model.RoleDoctor, 0)
	code, resp = submitApplication(t, r, otherDocToken, 9999, "MED-1003")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "referential_integrity", resp["kind"])
}

func reviewApplication(t *testing.T, r *gin.Engine, token string, id uint, status string) (int, map[string]interface{}) {
	t.Helper()
	w, resp := performRequest(t, r, requestSpec{
		method: http.MethodPatch, path: fmt.Sprintf("/api/hospitals/doctor-applications/%d", id),
		body:    map[string]interface{}{"status": status, "notes": "reviewed"},
		headers: authHeader(token),
	})
	return w.Code, resp
}

func applicationID(t *testing.T, db *gorm.DB, userID uint) uint {
	t.Helper()
	var application model.DoctorApplication
	require.NoError(t, db.Where("user_id = ?", userID).First(&application).Error)
	return application.ID
}

func TestApproveApplicationCreatesDoctorProfile(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	hospital := mustCreateHospital(t, db, "Review Hospital", "Mumbai", nil, nil)
	docUser, docToken := loginAs(t, db, r, model.RoleDoctor, 0)
	code, _ := submitApplication(t, r, docToken, hospital.ID, "MED-2001")
	require.Equal(t, http.StatusCreated, code)
	id := applicationID(t, db, docUser.ID)

	// Staff of another hospital cannot review.
	foreign := mustCreateHospital(t, db, "Foreign Hospital", "Pune", nil, nil)
	_, foreignToken := loginAs(t, db, r, model.RoleHospitalAdmin, foreign.ID)
	code, resp := reviewApplication(t, r, foreignToken, id, model.ApplicationApproved)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "authorization", resp["kind"])

	_, adminToken := loginAs(t, db, r, model.RoleHospitalAdmin, hospital.ID)
	code, resp = reviewApplication(t, r, adminToken, id, model.ApplicationApproved)
	require.Equal(t, http.StatusOK, code, "review failed: %v", resp)
	reviewed := resp["data"].(map[string]interface{})
	assert.Equal(t, model.ApplicationApproved, reviewed["status"])

	var doctor model.Doctor
	require.NoError(t, db.Where("user_id = ?", docUser.ID).First(&doctor).Error)
	assert.Equal(t, hospital.ID, doctor.HospitalID)
	assert.Equal(t, "Cardiology", doctor.Specialization)
	assert.Equal(t, float64(750), doctor.ConsultationFee)
	assert.True(t, doctor.IsApproved)

	// Review is terminal.
	code, resp = reviewApplication(t, r, adminToken, id, model.ApplicationRejected)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state_transition", resp["kind"])
}

func TestRejectApplicationCreatesNoDoctor(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	hospital := mustCreateHospital(t, db, "Rejecting Hospital", "Mumbai", nil, nil)
	docUser, docToken := loginAs(t, db, r, model.RoleDoctor, 0)
	code, _ := submitApplication(t, r, docToken, hospital.ID, "MED-3001")
	require.Equal(t, http.StatusCreated, code)
	id := applicationID(t, db, docUser.ID)

	_, adminToken := loginAs(t, db, r, model.RoleHospitalAdmin, hospital.ID)
	code, _ = reviewApplication(t, r, adminToken, id, model.ApplicationRejected)
	require.Equal(t, http.StatusOK, code)

	var count int64
	require.NoError(t, db.Model(&model.Doctor{}).Where("user_id = ?", docUser.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The doctor may apply again after a rejection.
	code, _ = submitApplication(t, r, docToken, hospital.ID, "MED-3001")
	assert.Equal(t, http.StatusCreated, code)
}

func TestListApplicationsScoping(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	hospital := mustCreateHospital(t, db, "Scoped Hospital", "Mumbai", nil, nil)
	other := mustCreateHospital(t, db, "Other Hospital", "Pune", nil, nil)

	_, docToken := loginAs(t, db, r, model.RoleDoctor, 0)
	code, _ := submitApplication(t, r, docToken, hospital.ID, "MED-4001")
	require.Equal(t, http.StatusCreated, code)
	_, otherDocToken := loginAs(t, db, r, model.RoleDoctor, 0)
	code, _ = submitApplication(t, r, otherDocToken, other.ID, "MED-4002")
	require.Equal(t, http.StatusCreated, code)

	listTotal := func(token, query string) float64 {
		w, resp := performRequest(t, r, requestSpec{
			method: http.MethodGet, path: "/api/hospitals/doctor-applications" + query,
			headers: authHeader(token),
		})
		require.Equal(t, http.StatusOK, w.Code, "list failed: %v", resp)
		return resp["data"].(map[string]interface{})["total"].(float64)
	}

	// Applicants see only their own, admins only their hospital's,
	// super admins see everything.
	assert.Equal(t, float64(1), listTotal(docToken, ""))

	_, adminToken := loginAs(t, db, r, model.RoleHospitalAdmin, hospital.ID)
	assert.Equal(t, float64(1), listTotal(adminToken, ""))

	_, superToken := loginAs(t, db, r, model.RoleSuperAdmin, 0)
	assert.Equal(t, float64(2), listTotal(superToken, ""))
	assert.Equal(t, float64(2), listTotal(superToken, "?status="+model.ApplicationPending))
	assert.Equal(t, float64(0), listTotal(superToken, "?status="+model.ApplicationApproved))

	// Patients have no view into the queue.
	_, patientToken := loginAs(t, db, r, model.RolePatient, 0)
	w, _ := performRequest(t, r, requestSpec{
		method: http.MethodGet, path: "/api/hospitals/doctor-applications",
		headers: authHeader(patientToken),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
