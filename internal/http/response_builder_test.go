package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/auth"
	"contas/internal/core"
)

func TestResponseBuilder(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewResponse().Status(http.StatusCreated).Header("X-Test", "1").JSON(map[string]int{"id": 7}).Write(rr)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, "1", rr.Header().Get("X-Test"))
		assert.JSONEq(t, `{"id":7}`, rr.Body.String())
	})

	t.Run("raw attachment", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewResponse().Bytes("application/json", []byte(`{}`)).Attachment("backup.json").Write(rr)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `attachment; filename="backup.json"`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, `{}`, rr.Body.String())
	})

	t.Run("no body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewResponse().Status(http.StatusNoContent).Write(rr)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("unencodable body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewResponse().JSON(make(chan int)).Write(rr)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", badRequest("invalid id %q", "x"), http.StatusBadRequest},
		{"validation", &core.ValidationError{Fields: []string{"description"}}, http.StatusUnprocessableEntity},
		{"no recurring", fmt.Errorf("plan: %w", core.ErrNoRecurring), http.StatusUnprocessableEntity},
		{"duplicate", &core.DuplicateNameError{Level: core.LevelGroup, Name: "PESSOAL"}, http.StatusConflict},
		{"not found", &core.NotFoundError{Kind: "payable", Key: "9"}, http.StatusNotFound},
		{"malformed file", &core.ImportFormatError{Source: "backup", Err: errors.New("eof")}, http.StatusBadRequest},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(tt.err).Write(rr)
			assert.Equal(t, tt.want, rr.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rr.Body.String(), "disk on fire")
			}
		})
	}

	rr := httptest.NewRecorder()
	FromError(&core.ValidationError{Fields: []string{"description", "amount"}}).Write(rr)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"description", "amount"}, body.Fields)

	rr = httptest.NewRecorder()
	FromError(auth.ErrInvalidToken).Write(rr)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
}
