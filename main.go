// main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/Mandhata08/Medi-care/config"
	"github.com/Mandhata08/Medi-care/endpoint"
	"github.com/Mandhata08/Medi-care/middleware"
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.AuditLog{},
		&model.Hospital{},
		&model.Department{},
		&model.Bed{},
		&model.EmergencyCapacity{},
		&model.Doctor{},
		&model.DoctorApplication{},
		&model.Patient{},
		&model.Appointment{},
		&model.EMRRecord{},
		&model.ClinicalNote{},
		&model.Prescription{},
		&model.PrescriptionMedicine{},
		&model.LabTestRecommendation{},
	)
}

func main() {
	cfg := config.LoadConfig()
	util.SetJWTSecret(cfg.JWTSecret)

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := migrate(db); err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}
	util.SetAuditLoggerDB(db)

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Warning: redis unavailable, session cache and rate limiting degrade: %v", err)
	}
	if cfg.GeoIPDBPath != "" {
		if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
			log.Printf("Warning: GeoIP database not loaded, discovery falls back to attribute search: %v", err)
		}
		defer util.CloseGeoIP()
	}

	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.NoRoute(func(c *gin.Context) {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Route not found",
			Err: fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	api := router.Group("/api")
	api.Use(middleware.EndpointCallLogger())

	auth := api.Group("/auth")
	{
		limited := auth.Group("")
		limited.Use(middleware.RateLimiter(middleware.RateLimitConfig{}))
		limited.POST("/login", endpoint.Login)
		limited.POST("/register", endpoint.Register)
		limited.POST("/register/admin/secret", endpoint.RegisterSuperAdmin)
		limited.POST("/register/:role", endpoint.RegisterRole)
		limited.POST("/token/refresh", endpoint.RefreshToken)

		auth.GET("/profile", middleware.AuthRequired(), endpoint.Profile)
		auth.DELETE("/logout", middleware.AuthRequired(), endpoint.Logout)
	}

	hospitals := api.Group("/hospitals")
	{
		// Discovery endpoints are public.
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

	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
