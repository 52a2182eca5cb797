package endpoint

import (
	"encoding/json"
	"time"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// staffRolesWithPatientAccess lists roles that may browse patient
// profiles beyond their own.
var staffRolesWithPatientAccess = []string{
	model.RoleSuperAdmin,
	model.RoleHospitalDirector,
	model.RoleOperationsManager,
	model.RoleHospitalAdmin,
	model.RoleDoctor,
	model.RoleNurse,
	model.RoleMedicalAssistant,
}

// ListPatients returns patient profiles. Patients only ever see their
// own; clinical and operations staff see all.
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.Patient{}).Preload("User")
	if actor.Role == model.RolePatient {
		q = q.Where("user_id = ?", actor.ID)
	} else if !util.Contains(actor.Role, staffRolesWithPatientAccess) {
		util.RespondError(c, util.Forbidden("role %s cannot list patients", actor.Role))
		return
	}

	limit, offset := parseLimitOffset(c)
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var patients []model.Patient
	if err := q.Order("id").Find(&patients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list patients", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: listEnvelope(int64(len(patients)), "patients", patients),
	})
}

// GetPatient returns one profile, restricted to the owner for patient
// callers.
func GetPatient(c *gin.Context) {
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

	var patient model.Patient
	if err := db.Preload("User").First(&patient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("patient"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient", Err: err})
		return
	}

	if actor.Role == model.RolePatient && patient.UserID != actor.ID {
		util.RespondError(c, util.Forbidden("patients can only view their own profile"))
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient retrieved", Data: patient})
}

type patientProfileRequest struct {
	DateOfBirth          string   `json:"date_of_birth"`
	Gender               string   `json:"gender"`
	BloodGroup           string   `json:"blood_group"`
	Address              string   `json:"address"`
	EmergencyContact     string   `json:"emergency_contact"`
	EmergencyContactName string   `json:"emergency_contact_name"`
	Allergies            []string `json:"allergies"`
	ChronicConditions    []string `json:"chronic_conditions"`
}

func (r patientProfileRequest) apply(patient *model.Patient) error {
	if r.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, r.DateOfBirth)
		if err != nil {
			return util.InvalidFields("invalid patient payload", map[string]string{
				"date_of_birth": "must be formatted YYYY-MM-DD",
			})
		}
		patient.DateOfBirth = &dob
	}
	if !model.ValidGender(r.Gender) {
		return util.InvalidFields("invalid patient payload", map[string]string{
			"gender": "must be one of M, F, O",
		})
	}
	if r.Gender != "" {
		patient.Gender = r.Gender
	}
	if r.BloodGroup != "" {
		patient.BloodGroup = r.BloodGroup
	}
	if r.Address != "" {
		patient.Address = r.Address
	}
	if r.EmergencyContact != "" {
		patient.EmergencyContact = r.EmergencyContact
	}
	if r.EmergencyContactName != "" {
		patient.EmergencyContactName = r.EmergencyContactName
	}
	if r.Allergies != nil {
		raw, err := json.Marshal(r.Allergies)
		if err != nil {
			return err
		}
		patient.Allergies = datatypes.JSON(raw)
	}
	if r.ChronicConditions != nil {
		raw, err := json.Marshal(r.ChronicConditions)
		if err != nil {
			return err
		}
		patient.ChronicConditions = datatypes.JSON(raw)
	}
	return nil
}

// CreatePatientProfile fills in the caller's own profile. The row may
// already exist from lazy creation, in which case this acts as an
// update.
func CreatePatientProfile(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RolePatient {
		util.RespondError(c, util.Forbidden("only patients can create their own profile"))
		return
	}

	var req patientProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid patient payload") {
		return
	}

	patient, err := ensurePatientProfile(db, actor)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
		return
	}
	if err := req.apply(&patient); err != nil {
		util.RespondError(c, err)
		return
	}
	if err := db.Save(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save patient profile", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Patient profile saved", Data: patient})
}

// UpdatePatient applies a partial profile update. Patients may only
// update themselves; clinical staff may update any profile.
func UpdatePatient(c *gin.Context) {
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

	var patient model.Patient
	if err := db.First(&patient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("patient"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient", Err: err})
		return
	}

	if actor.Role == model.RolePatient && patient.UserID != actor.ID {
		util.RespondError(c, util.Forbidden("patients can only update their own profile"))
		return
	}
	if actor.Role != model.RolePatient && !util.Contains(actor.Role, staffRolesWithPatientAccess) {
		util.RespondError(c, util.Forbidden("role %s cannot update patients", actor.Role))
		return
	}

	var req patientProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid patient payload") {
		return
	}
	if err := req.apply(&patient); err != nil {
		util.RespondError(c, err)
		return
	}
	if err := db.Save(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update patient", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient updated", Data: patient})
}
