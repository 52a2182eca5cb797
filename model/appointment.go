package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment statuses.
const (
	StatusRequested   = "REQUESTED"
	StatusReviewed    = "REVIEWED"
	StatusAssigned    = "ASSIGNED"
	StatusConfirmed   = "CONFIRMED"
	StatusInProgress  = "IN_PROGRESS"
	StatusCompleted   = "COMPLETED"
	StatusBilled      = "BILLED"
	StatusClosed      = "CLOSED"
	StatusCancelled   = "CANCELLED"
	StatusRescheduled = "RESCHEDULED"
)

// Appointment types.
const (
	TypeOPD         = "OPD"
	TypeTeleConsult = "TELE_CONSULT"
	TypeEmergency   = "EMERGENCY"
	TypeLabTest     = "LAB_TEST"
	TypeFollowUp    = "FOLLOW_UP"
	TypeHomeVisit   = "HOME_VISIT"
)

// Appointment priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// AppointmentAction names a lifecycle transition. The workflow package
// is the only code that applies actions.
type AppointmentAction string

const (
	ActionReview     AppointmentAction = "review"
	ActionAssign     AppointmentAction = "assign"
	ActionConfirm    AppointmentAction = "confirm"
	ActionStart      AppointmentAction = "start"
	ActionComplete   AppointmentAction = "complete"
	ActionBill       AppointmentAction = "bill"
	ActionClose      AppointmentAction = "close"
	ActionCancel     AppointmentAction = "cancel"
	ActionReschedule AppointmentAction = "reschedule"
)

// requestedEdges is the edge set shared by REQUESTED and RESCHEDULED: a
// rescheduled appointment re-enters the queue and is triaged again.
var requestedEdges = map[AppointmentAction]string{
	ActionReview: StatusReviewed,
	ActionAssign: StatusAssigned,
}

// appointmentEdges is the closed transition table. cancel and
// reschedule are handled separately because they apply to every
// non-terminal state.
var appointmentEdges = map[string]map[AppointmentAction]string{
	StatusRequested:   requestedEdges,
	StatusRescheduled: requestedEdges,
	StatusReviewed: {
		ActionAssign: StatusAssigned,
	},
	StatusAssigned: {
		ActionConfirm: StatusConfirmed,
	},
	StatusConfirmed: {
		ActionStart: StatusInProgress,
	},
	StatusInProgress: {
		ActionComplete: StatusCompleted,
	},
	StatusCompleted: {
		ActionBill: StatusBilled,
	},
	StatusBilled: {
		ActionClose: StatusClosed,
	},
	StatusClosed:    {},
	StatusCancelled: {},
}

// TerminalStatus reports whether no further transitions are possible.
func TerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusClosed
}

// NextStatus resolves the target status for applying action in the
// given state. ok is false for any pair outside the transition table.
func NextStatus(status string, action AppointmentAction) (string, bool) {
	switch action {
	case ActionCancel:
		if TerminalStatus(status) {
			return "", false
		}
		return StatusCancelled, true
	case ActionReschedule:
		if TerminalStatus(status) {
			return "", false
		}
		return StatusRescheduled, true
	}
	edges, known := appointmentEdges[status]
	if !known {
		return "", false
	}
	next, ok := edges[action]
	return next, ok
}

// ActionForStatus maps a requested target status onto the lifecycle
// action that produces it, so a plain status PATCH still goes through
// the transition table.
func ActionForStatus(target string) (AppointmentAction, bool) {
	switch target {
	case StatusReviewed:
		return ActionReview, true
	case StatusAssigned:
		return ActionAssign, true
	case StatusConfirmed:
		return ActionConfirm, true
	case StatusInProgress:
		return ActionStart, true
	case StatusCompleted:
		return ActionComplete, true
	case StatusBilled:
		return ActionBill, true
	case StatusClosed:
		return ActionClose, true
	case StatusCancelled:
		return ActionCancel, true
	case StatusRescheduled:
		return ActionReschedule, true
	}
	return "", false
}

// ValidAppointmentType reports whether t is a known appointment type.
func ValidAppointmentType(t string) bool {
	switch t {
	case TypeOPD, TypeTeleConsult, TypeEmergency, TypeLabTest, TypeFollowUp, TypeHomeVisit:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Appointment is the unit the operations workflow moves through the
// lifecycle. Status is only ever written by the workflow package;
// Version backs the optimistic lock that serializes transitions.
type Appointment struct {
	gorm.Model
	PatientID    uint  `json:"patient_id" gorm:"column:patient_id;index:idx_patient_status"`
	HospitalID   uint  `json:"hospital_id" gorm:"column:hospital_id;index"`
	DepartmentID *uint `json:"department_id" gorm:"column:department_id"`
	DoctorID     *uint `json:"doctor_id" gorm:"column:doctor_id;index"`

	AppointmentType string    `json:"appointment_type" gorm:"column:appointment_type;default:OPD" example:"OPD"`
	AppointmentDate time.Time `json:"appointment_date" gorm:"column:appointment_date;index:idx_status_date,priority:2"`
	AppointmentTime string    `json:"appointment_time" gorm:"column:appointment_time;size:5" example:"10:00"`
	Status          string    `json:"status" gorm:"column:status;index:idx_patient_status;index:idx_status_date,priority:1;default:REQUESTED"`

	Reason   string `json:"reason" gorm:"column:reason;type:text"`
	Priority string `json:"priority" gorm:"column:priority;default:MEDIUM" example:"MEDIUM"`

	ReviewedBy      *uint      `json:"reviewed_by" gorm:"column:reviewed_by;index"`
	ReviewedAt      *time.Time `json:"reviewed_at" gorm:"column:reviewed_at"`
	OperationsNotes string     `json:"operations_notes" gorm:"column:operations_notes;type:text"`

	ConsultationFee    *float64 `json:"consultation_fee" gorm:"column:consultation_fee"`
	PlatformCommission float64  `json:"platform_commission" gorm:"column:platform_commission;default:0"`

	IsWalkIn bool   `json:"is_walk_in" gorm:"column:is_walk_in;default:false"`
	Notes    string `json:"notes" gorm:"column:notes;type:text"`

	// Bumped on every transition; the optimistic-lock predicate in the
	// workflow package compares against it.
	Version uint `json:"version" gorm:"column:version;default:0"`

	Patient    Patient    `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	Hospital   Hospital   `json:"hospital,omitempty" gorm:"foreignKey:HospitalID"`
	Department Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	Doctor     Doctor     `json:"doctor,omitempty" gorm:"foreignKey:DoctorID"`
}
