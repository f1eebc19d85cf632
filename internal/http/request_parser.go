// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"contas/internal/core"
)

const (
	maxJSONBody   = 1 << 20  // 1 MiB
	maxUploadBody = 20 << 20 // 20 MiB
)

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON document into v. Unknown fields are
// rejected so typos in field names surface instead of being ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("body must hold a single JSON document")
	}
	return nil
}

// pathParam returns an unescaped route parameter. Taxonomy names carry
// spaces and accents.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return sanitizeInput(v)
	}
	return sanitizeInput(raw)
}

// parseID reads the numeric {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// parseFilter builds a listing filter from query parameters. Missing
// parameters mean "all".
func parseFilter(q url.Values) core.Filter {
	return core.Filter{
		Period: core.Period(strings.TrimSpace(q.Get("period"))),
		Status: core.Status(strings.TrimSpace(q.Get("status"))),
		Group:  sanitizeInput(q.Get("group")),
		Search: sanitizeInput(q.Get("search")),
	}
}

// MonthParams holds a target year and month.
type MonthParams struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// parseMonthParams reads year and month from the query, defaulting to the
// month of today.
func parseMonthParams(q url.Values, today core.Date) (MonthParams, error) {
	params := MonthParams{Year: today.Year(), Month: today.Month()}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, badRequest("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, badRequest("invalid month %q", v)
		}
		params.Month = m
	}
	return params, nil
}

// readUpload returns the uploaded file. Multipart requests carry it in the
// "file" part; any other content type is taken as the raw file.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBody); err != nil {
			return nil, badRequest("invalid multipart form: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, badRequest("missing file part")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, badRequest("read upload: %v", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, badRequest("empty upload")
	}
	return data, nil
}
