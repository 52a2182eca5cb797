package endpoint

import (
	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/gin-gonic/gin"
)

// ListPrescriptions returns prescriptions inside the actor's scope:
// patients their own, doctors the ones they wrote.
func ListPrescriptions(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.Prescription{}).Preload("Medicines").Preload("LabTests")
	switch actor.Role {
	case model.RolePatient:
		patient, err := ensurePatientProfile(db, actor)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
			return
		}
		q = q.Where("patient_id = ?", patient.ID)
	case model.RoleDoctor:
		doctor, ok := doctorProfileOrRespond(c, db, actor)
		if !ok {
			return
		}
		q = q.Where("doctor_id = ?", doctor.ID)
	case model.RoleSuperAdmin:
		// unrestricted
	default:
		util.RespondError(c, util.Forbidden("role %s cannot list prescriptions", actor.Role))
		return
	}

	var prescriptions []model.Prescription
	if err := q.Order("created_at DESC").Find(&prescriptions).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list prescriptions", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Prescriptions retrieved",
		Data: listEnvelope(int64(len(prescriptions)), "prescriptions", prescriptions),
	})
}

// MyPrescriptions returns the logged-in patient's prescriptions.
func MyPrescriptions(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	patient, err := ensurePatientProfile(db, actor)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient profile", Err: err})
		return
	}

	var prescriptions []model.Prescription
	if err := db.Preload("Medicines").Preload("LabTests").
		Where("patient_id = ?", patient.ID).
		Order("created_at DESC").
		Find(&prescriptions).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list prescriptions", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Prescriptions retrieved",
		Data: listEnvelope(int64(len(prescriptions)), "prescriptions", prescriptions),
	})
}

type prescriptionMedicineInput struct {
	Name         string `json:"name" binding:"required"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
	Quantity     int    `json:"quantity"`
}

type labTestInput struct {
	TestName        string `json:"test_name" binding:"required"`
	TestDescription string `json:"test_description"`
}

type createPrescriptionRequest struct {
	PatientID     uint   `json:"patient_id" binding:"required"`
	AppointmentID *uint  `json:"appointment_id"`
	EMRRecordID   *uint  `json:"emr_record_id"`
	Diagnosis     string `json:"diagnosis"`
	Notes         string `json:"notes"`

	Medicines []prescriptionMedicineInput `json:"medicines"`
	LabTests  []labTestInput              `json:"lab_tests"`
}

// CreatePrescription godoc
// @Summary      Issue a prescription
// @Description  A doctor writes a prescription with medicine line items and optional lab tests. Prescriptions are immutable once issued.
// @Tags         Prescriptions
// @Accept       json
// @Produce      json
// @Param        request body createPrescriptionRequest true "Prescription details"
// @Success      201 {object} util.APIResponse "Prescription issued"
// @Failure      403 {object} util.APIResponse "Caller is not a doctor"
// @Router       /api/prescriptions [post]
func CreatePrescription(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleDoctor {
		util.RespondError(c, util.Forbidden("only doctors can issue prescriptions"))
		return
	}
	doctor, ok := doctorProfileOrRespond(c, db, actor)
	if !ok {
		return
	}

	var req createPrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid prescription payload") {
		return
	}
	if len(req.Medicines) == 0 && len(req.LabTests) == 0 {
		util.RespondError(c, util.Invalid("a prescription needs at least one medicine or lab test"))
		return
	}

	var patient model.Patient
	if err := db.First(&patient, req.PatientID).Error; err != nil {
		util.RespondError(c, util.IntegrityViolation("patient %d does not exist", req.PatientID))
		return
	}

	prescription := model.Prescription{
		PatientID:     req.PatientID,
		DoctorID:      doctor.ID,
		AppointmentID: req.AppointmentID,
		EMRRecordID:   req.EMRRecordID,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
	}
	for _, m := range req.Medicines {
		quantity := m.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		prescription.Medicines = append(prescription.Medicines, model.PrescriptionMedicine{
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Instructions: m.Instructions,
			Quantity:     quantity,
		})
	}
	for _, t := range req.LabTests {
		prescription.LabTests = append(prescription.LabTests, model.LabTestRecommendation{
			TestName:        t.TestName,
			TestDescription: t.TestDescription,
		})
	}

	if err := db.Create(&prescription).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to issue prescription", Err: err})
		return
	}

	util.LogResourceAction(util.ActionPrescriptionIssued, actor.ID, "Prescription", prescription.ID, c.ClientIP(), map[string]interface{}{
		"patient_id": req.PatientID,
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Prescription issued", Data: prescription})
}
