package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentSession)

	l.InfoContext(context.Background(), "hello", FieldPayableID, int64(7))
	assert.Contains(t, buf.String(), "component=session")
	assert.Contains(t, buf.String(), "payable_id=7")

	buf.Reset()
	l.WithComponent(ComponentTaxonomy).Warn("careful")
	assert.Contains(t, buf.String(), "component=taxonomy")
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithPayable(1, "Água", 10.5, "2024-06-10").
		WithClassification("ESTRUTURA", "", "123").
		WithError(errors.New("boom")).
		WithError(nil).
		WithOperation(OpCreate)

	keys := make([]string, 0, len(f))
	for _, a := range f {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{
		FieldPayableID, FieldDescription, FieldAmount, FieldDueDate,
		FieldGroup, FieldCode, FieldError, FieldOperation,
	}, keys)
	assert.Len(t, f.Args(), len(f))

	var buf bytes.Buffer
	bufferLogger(&buf, ComponentSession).Info("created", f.Args()...)
	assert.Contains(t, buf.String(), "payable_id=1 description=Água amount=10.5")
}

func TestLoggerComponentIsNotRepeated(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentSession).With(FieldRequestID, "r1")

	l.WithComponent(ComponentTaxonomy).Info("moved")
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="))
	assert.Contains(t, out, "component=taxonomy")
	assert.Contains(t, out, "request_id=r1")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentWorker, Format: "json", Writer: &buf})
	l.Info("synced", FieldCount, 2)
	assert.Contains(t, buf.String(), `"component":"worker"`)
	assert.Contains(t, buf.String(), `"count":2`)
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentHTTP)

	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "abc" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, ComponentHTTP, got.Component())
	got.Info("inside")
	assert.Contains(t, buf.String(), "request_id=abc")
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentSession))
	sl.LogPayableCreated(context.Background(), 3, "Luz", 50, "2024-06-01", "ESTRUTURA", "Energia", "")
	assert.Contains(t, buf.String(), "Payable created")
	assert.Contains(t, buf.String(), "operation=create")

	buf.Reset()
	sl.LogChange(context.Background(), "Change committed", "c1", "delete_group", 4)
	assert.Contains(t, buf.String(), "change_id=c1")
	assert.Contains(t, buf.String(), "count=4")

	buf.Reset()
	sl.LogPersistenceFailure(context.Background(), errors.New("disk full"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "operation=persist")
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodGet, "/api/payables", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusNotFound, 3, "192.0.2.1")
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, http.StatusInternalServerError, 3, "192.0.2.1")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("dropped") })
}
