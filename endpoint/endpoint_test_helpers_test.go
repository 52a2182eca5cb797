package endpoint_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mandhata08/Medi-care/endpoint"
	"github.com/Mandhata08/Medi-care/middleware"
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_endpoint_%d_%d?mode=memory&cache=shared",
		time.Now().UnixNano(), atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{}, &model.Session{}, &model.AuditLog{},
		&model.Hospital{}, &model.Department{}, &model.Bed{}, &model.EmergencyCapacity{},
		&model.Doctor{}, &model.DoctorApplication{},
		&model.Patient{}, &model.Appointment{},
		&model.EMRRecord{}, &model.ClinicalNote{},
		&model.Prescription{}, &model.PrescriptionMedicine{}, &model.LabTestRecommendation{},
	)
	require.NoError(t, err)

	util.SetAuditLoggerDB(db)
	t.Cleanup(func() { util.SetAuditLoggerDB(nil) })

	return db
}

// setupRouter wires the same route table the server runs with, minus
// the redis-backed rate limiter.
func setupRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))

	r.NoRoute(func(c *gin.Context) {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Route not found",
			Err: fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", endpoint.Login)
		auth.POST("/register", endpoint.Register)
		auth.POST("/register/admin/secret", endpoint.RegisterSuperAdmin)
		auth.POST("/register/:role", endpoint.RegisterRole)
		auth.POST("/token/refresh", endpoint.RefreshToken)
		auth.GET("/profile", middleware.AuthRequired(), endpoint.Profile)
		auth.DELETE("/logout", middleware.AuthRequired(), endpoint.Logout)
	}

	hospitals := api.Group("/hospitals")
	{
		hospitals.GET("", endpoint.ListHospitals)
		hospitals.GET("/map-discovery", endpoint.MapDiscovery)
		hospitals.GET("/doctors", endpoint.ListDoctors)
		hospitals.GET("/doctors/:id", endpoint.GetDoctor)
		hospitals.GET("/emergency-capacity/:hospital_id", endpoint.GetEmergencyCapacity)

		hospitals.POST("", middleware.AuthRequired(), middleware.RequireRoles(model.RoleSuperAdmin), endpoint.CreateHospital)
		hospitals.GET("/:id", endpoint.GetHospital)
		hospitals.PATCH("/:id", middleware.AuthRequired(), middleware.RequireRoles(model.RoleSuperAdmin), endpoint.UpdateHospital)
		hospitals.DELETE("/:id", middleware.AuthRequired(), middleware.RequireRoles(model.RoleSuperAdmin), endpoint.DeactivateHospital)

		authed := hospitals.Group("", middleware.AuthRequired())
		authed.GET("/departments", endpoint.ListDepartments)
		authed.POST("/departments", middleware.RequireRoles(
			model.RoleSuperAdmin, model.RoleHospitalAdmin, model.RoleHospitalDirector), endpoint.CreateDepartment)
		authed.GET("/beds", endpoint.ListBeds)
		authed.PATCH("/emergency-capacity/:hospital_id", middleware.RequireRoles(
			model.RoleSuperAdmin, model.RoleHospitalAdmin, model.RoleOperationsManager), endpoint.UpdateEmergencyCapacity)

		authed.GET("/doctor-applications", endpoint.ListApplications)
		authed.POST("/doctor-applications", endpoint.SubmitApplication)
		authed.PATCH("/doctor-applications/:id", endpoint.ReviewApplication)
		authed.POST("/doctors/:id/approve", middleware.RequireRoles(model.RoleSuperAdmin), endpoint.ApproveDoctor)
	}

	appointments := api.Group("/appointments", middleware.AuthRequired())
	{
		appointments.GET("", endpoint.ListAppointments)
		appointments.POST("", endpoint.CreateAppointment)
		appointments.GET("/operations", middleware.RequireRoles(
			model.RoleSuperAdmin, model.RoleOperationsManager, model.RoleHospitalAdmin, model.RoleHospitalDirector), endpoint.OperationsAppointments)
		appointments.GET("/patient/my-appointments", middleware.RequireRoles(model.RolePatient), endpoint.PatientAppointments)
		appointments.GET("/doctor/my-appointments", middleware.RequireRoles(model.RoleDoctor), endpoint.DoctorAppointments)

		appointments.GET("/patients", endpoint.ListPatients)
		appointments.POST("/patients", endpoint.CreatePatientProfile)
		appointments.GET("/patients/:id", endpoint.GetPatient)
		appointments.PATCH("/patients/:id", endpoint.UpdatePatient)

		appointments.GET("/:id", endpoint.GetAppointment)
		appointments.PATCH("/:id", endpoint.UpdateAppointment)
		appointments.POST("/:id/assign", endpoint.AssignAppointment)
	}

	emr := api.Group("/emr", middleware.AuthRequired())
	{
		emr.GET("", endpoint.ListEMRRecords)
		emr.POST("", middleware.RequireRoles(model.RoleDoctor), endpoint.CreateEMRRecord)
		emr.GET("/patient/:id", endpoint.PatientEMRHistory)
		emr.POST("/:id/notes", middleware.RequireRoles(model.RoleDoctor), endpoint.AppendClinicalNote)
	}

	prescriptions := api.Group("/prescriptions", middleware.AuthRequired())
	{
		prescriptions.GET("", endpoint.ListPrescriptions)
		prescriptions.POST("", middleware.RequireRoles(model.RoleDoctor), endpoint.CreatePrescription)
		prescriptions.GET("/patient/my-prescriptions", middleware.RequireRoles(model.RolePatient), endpoint.MyPrescriptions)
	}

	return r
}

type requestSpec struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
}

func performRequest(t *testing.T, r *gin.Engine, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *strings.Reader
	setJSONHeader := false
	switch v := spec.body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(v)
		setJSONHeader = true
	default:
		b, err := json.Marshal(spec.body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
		setJSONHeader = true
	}

	req := httptest.NewRequest(spec.method, spec.path, reader)
	if setJSONHeader {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range spec.headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response),
			"body was not JSON: %s", w.Body.String())
	}
	return w, response
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

var userSeq int64

// mustCreateUser inserts a user with a hashed password so the account
// can log in through the endpoint.
func mustCreateUser(t *testing.T, db *gorm.DB, role string, hospitalID uint) (model.User, string) {
	t.Helper()

	password := "password123"
	salt, err := util.GenerateSalt()
	require.NoError(t, err)
	hashed, err := util.HashPassword(password, salt)
	require.NoError(t, err)

	user := model.User{
		FirstName:    "Test",
		LastName:     role,
		Email:        fmt.Sprintf("user%d@example.com", atomic.AddInt64(&userSeq, 1)),
		Password:     hashed,
		PasswordSalt: salt,
		Role:         role,
		IsActive:     true,
		HospitalID:   hospitalID,
	}
	require.NoError(t, db.Create(&user).Error)
	return user, password
}

// loginTokens logs a user in through the endpoint and returns the
// access and refresh tokens.
func loginTokens(t *testing.T, r *gin.Engine, email, password string) (string, string) {
	t.Helper()

	w, resp := performRequest(t, r, requestSpec{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
	})
	require.Equal(t, http.StatusOK, w.Code, "login failed: %v", resp)

	data := resp["data"].(map[string]interface{})
	tokens := data["tokens"].(map[string]interface{})
	return tokens["access"].(string), tokens["refresh"].(string)
}

func loginAs(t *testing.T, db *gorm.DB, r *gin.Engine, role string, hospitalID uint) (model.User, string) {
	t.Helper()
	user, password := mustCreateUser(t, db, role, hospitalID)
	access, _ := loginTokens(t, r, user.Email, password)
	return user, access
}

func mustCreateHospital(t *testing.T, db *gorm.DB, name, city string, lat, lon *float64) model.Hospital {
	t.Helper()
	hospital := model.Hospital{
		Name:          name,
		City:          city,
		LicenseNumber: fmt.Sprintf("LIC-%d", atomic.AddInt64(&userSeq, 1)),
		Latitude:      lat,
		Longitude:     lon,
		IsActive:      true,
		IsApproved:    true,
		OPDOpen:       true,
		CommissionRate: 10,
	}
	require.NoError(t, db.Create(&hospital).Error)
	return hospital
}

func mustCreateDoctor(t *testing.T, db *gorm.DB, user model.User, hospitalID uint, specialization string) model.Doctor {
	t.Helper()
	doctor := model.Doctor{
		UserID:          user.ID,
		HospitalID:      hospitalID,
		Specialization:  specialization,
		LicenseNumber:   fmt.Sprintf("DOC-%d", atomic.AddInt64(&userSeq, 1)),
		ConsultationFee: 500,
		IsActive:        true,
		IsApproved:      true,
	}
	require.NoError(t, db.Create(&doctor).Error)
	return doctor
}

func floatPtr(v float64) *float64 { return &v }
