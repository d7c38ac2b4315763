package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"osbridge/internal/apperr"
	"osbridge/pkg/problems"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func statusFor(err error) (int, string) {
	switch apperr.ClassOf(err) {
	case apperr.ClassNotFound:
		return http.StatusNotFound, "not-found"
	case apperr.ClassBadRequest:
		return http.StatusBadRequest, "bad-request"
	case apperr.ClassConflict:
		return http.StatusConflict, "conflict"
	case apperr.ClassAuthorizationDenied:
		return http.StatusForbidden, "forbidden"
	case apperr.ClassOutOfRange:
		return http.StatusRequestedRangeNotSatisfiable, "out-of-range"
	case apperr.ClassNotImplemented:
		return http.StatusNotImplemented, "not-implemented"
	default:
		return http.StatusServiceUnavailable, "backend-unavailable"
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status, slug := statusFor(err)
	if status >= 500 {
		a.log.Errorw("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:   problems.Type(slug),
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	})
}

func pageParams(r *http.Request, defaultLimit int64) (offset, limit int64) {
	offset = queryInt64(r, "offset", 0)
	limit = queryInt64(r, "limit", defaultLimit)
	return offset, limit
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.ClassBadRequest, err, "invalid request body")
	}
	return nil
}
