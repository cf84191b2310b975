package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalid("x"), http.StatusBadRequest},
		{ErrUnauthenticated("x"), http.StatusUnauthorized},
		{ErrForbidden("x"), http.StatusForbidden},
		{ErrNotFound("x"), http.StatusNotFound},
		{ErrConflict("x"), http.StatusConflict},
		{ErrUnavailable("x", errors.New("down")), http.StatusServiceUnavailable},
		{ErrInternal("x", errors.New("boom")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrNotFound("x")), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.err), tc.err.Error())
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrUnavailable("store unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeUnavailable))
	assert.False(t, Is(err, CodeInternal))
}

func TestRespondHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, errors.New("dial tcp 10.0.0.1:3306: secret detail"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestRespondValidationFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, ErrValidation([]FieldError{{Field: "date", Message: "bad"}, {Field: "preacher", Message: "required"}}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code   string       `json:"code"`
			Fields []FieldError `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_ARGUMENT", body.Error.Code)
	assert.Len(t, body.Error.Fields, 2)
}
