package http

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func withRouteParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"ESTRUTURA"}`},
		{name: "empty body", body: ``, wantErr: true},
		{name: "unknown field", body: `{"name":"x","nome":"y"}`, wantErr: true},
		{name: "two documents", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "not json", body: `name=x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ESTRUTURA", p.Name)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "1718000000000", want: 1718000000000},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.raw)
			id, err := parseID(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPathParamUnescapes(t *testing.T) {
	r := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), "group", "CART%C3%95ES%20")
	assert.Equal(t, "CARTÕES", pathParam(r, "group"))
}

func TestParseFilter(t *testing.T) {
	f := parseFilter(url.Values{
		"period": {" month "},
		"status": {"overdue"},
		"group":  {"ESTRUTURA\x00"},
		"search": {"  energia "},
	})
	assert.Equal(t, core.PeriodMonth, f.Period)
	assert.Equal(t, core.StatusOverdue, f.Status)
	assert.Equal(t, "ESTRUTURA", f.Group)
	assert.Equal(t, "energia", f.Search)

	assert.Equal(t, core.Filter{}, parseFilter(url.Values{}))
}

func TestParseMonthParams(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	p, err := parseMonthParams(url.Values{}, today)
	require.NoError(t, err)
	assert.Equal(t, MonthParams{Year: 2024, Month: 3}, p)

	p, err = parseMonthParams(url.Values{"year": {"2025"}, "month": {"12"}}, today)
	require.NoError(t, err)
	assert.Equal(t, MonthParams{Year: 2025, Month: 12}, p)

	_, err = parseMonthParams(url.Values{"month": {"dez"}}, today)
	assert.ErrorIs(t, err, errBadRequest)
}

func TestReadUpload(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"accounts":[]}`))
		data, err := readUpload(httptest.NewRecorder(), r)
		require.NoError(t, err)
		assert.Equal(t, `{"accounts":[]}`, string(data))
	})

	t.Run("blank body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  \n"))
		_, err := readUpload(httptest.NewRecorder(), r)
		assert.ErrorIs(t, err, errBadRequest)
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "contas.xlsx")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("PK\x03\x04"))
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		data, err := readUpload(httptest.NewRecorder(), r)
		require.NoError(t, err)
		assert.Equal(t, []byte("PK\x03\x04"), data)
	})

	t.Run("multipart without file part", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("mode", "append"))
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		_, err := readUpload(httptest.NewRecorder(), r)
		assert.True(t, errors.Is(err, errBadRequest))
	})
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "a\tb", sanitizeInput("  a\tb\x07 "))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))
	r.Header.Set("Authorization", "Bearer  abc.def ")
	assert.Equal(t, "abc.def", bearerToken(r))
	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, bearerToken(r))
}
