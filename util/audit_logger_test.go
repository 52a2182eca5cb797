package util

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureAuditOutput swaps the audit logger for one writing into a buffer.
func captureAuditOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetAuditLoggerForTest(log.New(&buf, "[AUDIT] ", 0))
	t.Cleanup(func() {
		SetAuditLoggerForTest(log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.Lmsgprefix))
	})
	return &buf
}

func TestLogResourceActionWritesStructuredLine(t *testing.T) {
	buf := captureAuditOutput(t)

	LogResourceAction(ActionAppointmentAssign, 7, "Appointment", 31, "203.0.113.7", map[string]interface{}{
		"doctor_id": 12,
	})

	out := buf.String()
	assert.Contains(t, out, "Action=APPOINTMENT_ASSIGNED")
	assert.Contains(t, out, "UserID=7")
	assert.Contains(t, out, "Resource=Appointment/31")
	assert.Contains(t, out, "IP=203.0.113.7")
}

func TestLogAuditEventSanitizesControlCharacters(t *testing.T) {
	buf := captureAuditOutput(t)

	LogAuditEvent(AuditEvent{
		Action:  ActionLoginFailure,
		Email:   "evil\nuser@example.com",
		IP:      "198.51.100.9",
		Message: "bad\tcreds",
	})

	out := buf.String()
	assert.NotContains(t, out, "evil\nuser")
	assert.Contains(t, out, "evil user@example.com")
	assert.Contains(t, out, "bad creds")
}

func TestLogAuditEventTruncatesLongValues(t *testing.T) {
	buf := captureAuditOutput(t)

	long := strings.Repeat("x", 300)
	LogAuditEvent(AuditEvent{
		Action:  ActionEndpointCall,
		Message: long,
	})

	out := buf.String()
	assert.Contains(t, out, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 201))
}
