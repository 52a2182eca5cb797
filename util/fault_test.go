package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAsFault(t *testing.T) {
	f, ok := AsFault(NotFound("appointment"))
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, f.Kind)
	assert.Equal(t, "appointment not found", f.Message)

	wrapped := fmt.Errorf("loading appointment: %w", Forbidden("nope"))
	f, ok = AsFault(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindAuthorization, f.Kind)

	_, ok = AsFault(errors.New("plain error"))
	assert.False(t, ok)
}

func TestInvalidTransitionMessage(t *testing.T) {
	f := InvalidTransition("COMPLETED", "start")
	assert.Equal(t, KindInvalidStateTransition, f.Kind)
	assert.Equal(t, "cannot start from status COMPLETED", f.Message)
}

func respondWith(t *testing.T, err error) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	gin.SetMode(gin.ReleaseMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, err)

	var body APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   FaultKind
	}{
		{Invalid("bad payload"), http.StatusBadRequest, KindValidation},
		{Forbidden("not yours"), http.StatusForbidden, KindAuthorization},
		{InvalidTransition("CLOSED", "cancel"), http.StatusConflict, KindInvalidStateTransition},
		{IntegrityViolation("doctor belongs elsewhere"), http.StatusConflict, KindReferentialIntegrity},
		{NotFound("hospital"), http.StatusNotFound, KindNotFound},
		{Unauthenticated("token expired"), http.StatusUnauthorized, KindAuthentication},
	}
	for _, tc := range cases {
		w, body := respondWith(t, tc.err)
		assert.Equal(t, tc.status, w.Code, "kind %s", tc.kind)
		assert.Equal(t, string(tc.kind), body.Kind)
		assert.False(t, body.Success)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	w, body := respondWith(t, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body.Msg)
	assert.NotContains(t, body.Error, "10.0.0.5")
}

func TestRespondErrorCarriesFieldMessages(t *testing.T) {
	_, body := respondWith(t, InvalidFields("invalid payload", map[string]string{
		"appointment_date": "must be formatted YYYY-MM-DD",
	}))
	assert.Equal(t, "must be formatted YYYY-MM-DD", body.Fields["appointment_date"])
}
