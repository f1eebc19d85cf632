// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses. Handlers
// build a response fluently and write it once, so status, headers and body
// stay consistent across endpoints.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"contas/internal/auth"
	"contas/internal/core"
	"contas/internal/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	body        any
	raw         []byte
	contentType string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Bytes sets a raw body with its content type.
func (b *ResponseBuilder) Bytes(contentType string, content []byte) *ResponseBuilder {
	b.contentType = contentType
	b.raw = content
	b.body = nil
	return b
}

// Attachment marks the body as a download with the given file name.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.raw != nil {
		w.Header().Set("Content-Type", b.contentType)
		w.WriteHeader(b.statusCode)
		_, _ = w.Write(b.raw)
		return
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Response encoding failed", log.FieldError, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnauthorizedError creates a 401 response with a bearer challenge.
func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).
		Header("WWW-Authenticate", `Bearer realm="contas"`)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FromError maps a domain error to its response. Unknown errors become 500
// and never leak their text.
func FromError(err error) *ResponseBuilder {
	var (
		validation *core.ValidationError
		duplicate  *core.DuplicateNameError
		notFound   *core.NotFoundError
		format     *core.ImportFormatError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	case errors.As(err, &validation):
		return NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(ErrorBody{Error: "validation failed", Details: validation.Error(), Fields: validation.Fields})
	case errors.Is(err, core.ErrNoRecurring):
		return NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(ErrorBody{Error: "no recurring payables", Details: err.Error()})
	case errors.As(err, &duplicate):
		return NewResponse().Status(http.StatusConflict).
			JSON(ErrorBody{Error: "name already exists", Details: duplicate.Error()})
	case errors.As(err, &notFound):
		return NewResponse().Status(http.StatusNotFound).
			JSON(ErrorBody{Error: "not found", Details: notFound.Error()})
	case errors.As(err, &format):
		return NewResponse().Status(http.StatusBadRequest).
			JSON(ErrorBody{Error: "malformed file", Details: format.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedError(err.Error())
	default:
		return InternalServerError("internal error")
	}
}
