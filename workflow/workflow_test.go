package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_workflow_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{}, &model.Hospital{}, &model.Department{},
		&model.Doctor{}, &model.DoctorApplication{},
		&model.Patient{}, &model.Appointment{},
	)
	require.NoError(t, err)
	return db
}

type fixture struct {
	hospital    model.Hospital
	department  model.Department
	opsManager  model.User
	admin       model.User
	doctorUser  model.User
	doctor      model.Doctor
	patientUser model.User
	patient     model.Patient
}

func buildFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{}

	f.hospital = model.Hospital{
		Name: "City Care", City: "Mumbai", LicenseNumber: fmt.Sprintf("LIC-%d", time.Now().UnixNano()),
		IsActive: true, IsApproved: true, CommissionRate: 10,
	}
	require.NoError(t, db.Create(&f.hospital).Error)

	f.department = model.Department{HospitalID: f.hospital.ID, Name: "Cardiology", IsActive: true}
	require.NoError(t, db.Create(&f.department).Error)

	f.opsManager = model.User{
		FirstName: "Olive", Email: uniqueEmail("ops"), Role: model.RoleOperationsManager,
		IsActive: true, HospitalID: f.hospital.ID,
	}
	require.NoError(t, db.Create(&f.opsManager).Error)

	f.admin = model.User{
		FirstName: "Ada", Email: uniqueEmail("admin"), Role: model.RoleHospitalAdmin,
		IsActive: true, HospitalID: f.hospital.ID,
	}
	require.NoError(t, db.Create(&f.admin).Error)

	f.doctorUser = model.User{
		FirstName: "Dana", Email: uniqueEmail("doc"), Role: model.RoleDoctor, IsActive: true,
	}
	require.NoError(t, db.Create(&f.doctorUser).Error)

	f.doctor = model.Doctor{
		UserID: f.doctorUser.ID, HospitalID: f.hospital.ID, DepartmentID: &f.department.ID,
		Specialization: "Cardiology", LicenseNumber: fmt.Sprintf("DOC-%d", time.Now().UnixNano()),
		ConsultationFee: 500, IsActive: true, IsApproved: true,
	}
	require.NoError(t, db.Create(&f.doctor).Error)

	f.patientUser = model.User{
		FirstName: "Pat", Email: uniqueEmail("pat"), Role: model.RolePatient, IsActive: true,
	}
	require.NoError(t, db.Create(&f.patientUser).Error)

	f.patient = model.Patient{UserID: f.patientUser.ID}
	require.NoError(t, db.Create(&f.patient).Error)

	return f
}

var emailSeq int64

func uniqueEmail(prefix string) string {
	emailSeq++
	return fmt.Sprintf("%s+%d-%d@example.com", prefix, time.Now().UnixNano(), emailSeq)
}

func (f fixture) newAppointment(t *testing.T, db *gorm.DB, status string) model.Appointment {
	t.Helper()
	appt := model.Appointment{
		PatientID:       f.patient.ID,
		HospitalID:      f.hospital.ID,
		AppointmentType: model.TypeOPD,
		AppointmentDate: time.Now().AddDate(0, 0, 7),
		AppointmentTime: "10:00",
		Status:          status,
		Priority:        model.PriorityMedium,
	}
	require.NoError(t, db.Create(&appt).Error)
	return appt
}

func assertFaultKind(t *testing.T, err error, kind util.FaultKind) {
	t.Helper()
	require.Error(t, err)
	f, ok := util.AsFault(err)
	require.True(t, ok, "expected a tagged fault, got %v", err)
	assert.Equal(t, kind, f.Kind, "fault message: %s", f.Message)
}

func TestFullLifecycle(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	steps := []struct {
		actor model.User
		req   TransitionRequest
		want  string
	}{
		{f.opsManager, TransitionRequest{Action: model.ActionReview, Notes: "triage ok"}, model.StatusReviewed},
		{f.opsManager, TransitionRequest{Action: model.ActionAssign, DoctorID: &f.doctor.ID}, model.StatusAssigned},
		{f.opsManager, TransitionRequest{Action: model.ActionConfirm}, model.StatusConfirmed},
		{f.doctorUser, TransitionRequest{Action: model.ActionStart}, model.StatusInProgress},
		{f.doctorUser, TransitionRequest{Action: model.ActionComplete}, model.StatusCompleted},
		{f.admin, TransitionRequest{Action: model.ActionBill}, model.StatusBilled},
		{f.admin, TransitionRequest{Action: model.ActionClose}, model.StatusClosed},
	}

	for i, step := range steps {
		updated, err := TransitionAppointment(db, step.actor, appt.ID, step.req)
		require.NoError(t, err, "step %d (%s)", i, step.req.Action)
		assert.Equal(t, step.want, updated.Status)
		assert.Equal(t, uint(i+1), updated.Version, "version must bump on every transition")
	}
}

func TestAssignCopiesFeeAndCommission(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusReviewed)

	updated, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{
		Action:   model.ActionAssign,
		DoctorID: &f.doctor.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAssigned, updated.Status)
	require.NotNil(t, updated.DoctorID)
	assert.Equal(t, f.doctor.ID, *updated.DoctorID)
	require.NotNil(t, updated.ConsultationFee)
	assert.Equal(t, 500.0, *updated.ConsultationFee)
	assert.Equal(t, 50.0, updated.PlatformCommission) // 10% of 500
	require.NotNil(t, updated.DepartmentID)
	assert.Equal(t, f.department.ID, *updated.DepartmentID)
	assert.NotNil(t, updated.ReviewedAt)
}

func TestAssignRejectsDoctorFromAnotherHospital(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	other := model.Hospital{Name: "Other Care", City: "Pune", LicenseNumber: uniqueEmail("lic"), IsActive: true, IsApproved: true}
	require.NoError(t, db.Create(&other).Error)
	otherUser := model.User{FirstName: "Oz", Email: uniqueEmail("oz"), Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, db.Create(&otherUser).Error)
	outsider := model.Doctor{
		UserID: otherUser.ID, HospitalID: other.ID, LicenseNumber: uniqueEmail("dl"),
		IsActive: true, IsApproved: true,
	}
	require.NoError(t, db.Create(&outsider).Error)

	appt := f.newAppointment(t, db, model.StatusRequested)
	_, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{
		Action:   model.ActionAssign,
		DoctorID: &outsider.ID,
	})
	assertFaultKind(t, err, util.KindReferentialIntegrity)
}

func TestAssignRejectsUnapprovedDoctor(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	require.NoError(t, db.Model(&f.doctor).Update("is_approved", false).Error)

	appt := f.newAppointment(t, db, model.StatusRequested)
	_, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{
		Action:   model.ActionAssign,
		DoctorID: &f.doctor.ID,
	})
	assertFaultKind(t, err, util.KindReferentialIntegrity)
}

func TestPatientCannotTriage(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	_, err := TransitionAppointment(db, f.patientUser, appt.ID, TransitionRequest{Action: model.ActionReview})
	assertFaultKind(t, err, util.KindAuthorization)
}

func TestStaffOfOtherHospitalCannotTriage(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	stranger := model.User{
		FirstName: "Sam", Email: uniqueEmail("sam"), Role: model.RoleOperationsManager,
		IsActive: true, HospitalID: f.hospital.ID + 100,
	}
	require.NoError(t, db.Create(&stranger).Error)

	_, err := TransitionAppointment(db, stranger, appt.ID, TransitionRequest{Action: model.ActionReview})
	assertFaultKind(t, err, util.KindAuthorization)
}

func TestOnlyAssignedDoctorStarts(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	appt := f.newAppointment(t, db, model.StatusConfirmed)
	require.NoError(t, db.Model(&appt).Update("doctor_id", f.doctor.ID).Error)

	otherUser := model.User{FirstName: "Nel", Email: uniqueEmail("nel"), Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, db.Create(&otherUser).Error)
	other := model.Doctor{
		UserID: otherUser.ID, HospitalID: f.hospital.ID, LicenseNumber: uniqueEmail("lic2"),
		IsActive: true, IsApproved: true,
	}
	require.NoError(t, db.Create(&other).Error)

	_, err := TransitionAppointment(db, otherUser, appt.ID, TransitionRequest{Action: model.ActionStart})
	assertFaultKind(t, err, util.KindAuthorization)

	updated, err := TransitionAppointment(db, f.doctorUser, appt.ID, TransitionRequest{Action: model.ActionStart})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)
}

func TestPatientCancelsOwnAppointment(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	for _, status := range []string{model.StatusRequested, model.StatusAssigned, model.StatusInProgress} {
		appt := f.newAppointment(t, db, status)
		updated, err := TransitionAppointment(db, f.patientUser, appt.ID, TransitionRequest{Action: model.ActionCancel})
		require.NoError(t, err, "cancel from %s", status)
		assert.Equal(t, model.StatusCancelled, updated.Status)
	}
}

func TestPatientCannotCancelOthersAppointment(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	otherUser := model.User{FirstName: "Max", Email: uniqueEmail("max"), Role: model.RolePatient, IsActive: true}
	require.NoError(t, db.Create(&otherUser).Error)
	require.NoError(t, db.Create(&model.Patient{UserID: otherUser.ID}).Error)

	_, err := TransitionAppointment(db, otherUser, appt.ID, TransitionRequest{Action: model.ActionCancel})
	assertFaultKind(t, err, util.KindAuthorization)
}

func TestCancelFromTerminalRejected(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	for _, status := range []string{model.StatusCompleted, model.StatusCancelled, model.StatusClosed} {
		appt := f.newAppointment(t, db, status)
		_, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{Action: model.ActionCancel})
		assertFaultKind(t, err, util.KindInvalidStateTransition)
	}
}

func TestRescheduleRequiresDateAndTime(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusAssigned)

	_, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{Action: model.ActionReschedule})
	assertFaultKind(t, err, util.KindValidation)

	newDate := time.Now().AddDate(0, 0, 14)
	updated, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{
		Action:  model.ActionReschedule,
		NewDate: &newDate,
		NewTime: "14:30",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRescheduled, updated.Status)
	assert.Equal(t, "14:30", updated.AppointmentTime)
}

func TestRescheduledReentersTriage(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRescheduled)

	updated, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{
		Action:   model.ActionAssign,
		DoctorID: &f.doctor.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, updated.Status)
}

func TestStaleVersionLosesRace(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	// Another writer bumps the row between our load and update.
	require.NoError(t, db.Model(&model.Appointment{}).
		Where("id = ?", appt.ID).
		Updates(map[string]interface{}{"status": model.StatusCancelled, "version": appt.Version + 1}).Error)

	_, err := TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{Action: model.ActionReview})
	assertFaultKind(t, err, util.KindInvalidStateTransition)

	f2, _ := util.AsFault(err)
	assert.Contains(t, f2.Message, model.StatusCancelled, "loser reports against the winning state")
}

func TestTransitionToStatusMapsTargets(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)
	appt := f.newAppointment(t, db, model.StatusRequested)

	updated, err := TransitionToStatus(db, f.opsManager, appt.ID, model.StatusReviewed, TransitionRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, updated.Status)

	_, err = TransitionToStatus(db, f.opsManager, appt.ID, "NONSENSE", TransitionRequest{})
	assertFaultKind(t, err, util.KindValidation)
}

func TestTransitionUnknownAppointment(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	_, err := TransitionAppointment(db, f.opsManager, 9999, TransitionRequest{Action: model.ActionReview})
	assertFaultKind(t, err, util.KindNotFound)
}

func TestDeactivateHospital(t *testing.T) {
	db := setupWorkflowTestDB(t)
	f := buildFixture(t, db)

	super := model.User{FirstName: "Sue", Email: uniqueEmail("sue"), Role: model.RoleSuperAdmin, IsActive: true}
	require.NoError(t, db.Create(&super).Error)

	appt := f.newAppointment(t, db, model.StatusAssigned)

	err := DeactivateHospital(db, super, f.hospital.ID)
	assertFaultKind(t, err, util.KindReferentialIntegrity)

	_, err = TransitionAppointment(db, f.opsManager, appt.ID, TransitionRequest{Action: model.ActionCancel})
	require.NoError(t, err)

	require.NoError(t, DeactivateHospital(db, super, f.hospital.ID))
	var hospital model.Hospital
	require.NoError(t, db.First(&hospital, f.hospital.ID).Error)
	assert.False(t, hospital.IsActive)

	err = DeactivateHospital(db, f.admin, f.hospital.ID)
	assertFaultKind(t, err, util.KindAuthorization)
}
