package handlers

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/obs"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

var log logger.Logger = logger.New("api")

// SetLogger replaces the handler logger.
func SetLogger(l logger.Logger) { log = l }

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Code: codeForStatus(status), Message: msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Anything unrecognised is logged and hidden behind a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, err.Error())
	case domain.IsConflict(err):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		log.Errorf("req_id=%s method=%s path=%s err=%v", obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// decodeJSON reads exactly one JSON object with no unknown fields.
// An empty body leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func pathZone(w http.ResponseWriter, r *http.Request) (domain.Zone, bool) {
	zone, err := domain.ParseZone(chi.URLParam(r, "zone"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return zone, true
}

// queryZone parses an optional ?zone= filter.
func queryZone(w http.ResponseWriter, r *http.Request) (domain.Zone, bool) {
	raw := r.URL.Query().Get("zone")
	if raw == "" {
		return "", true
	}
	zone, err := domain.ParseZone(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return zone, true
}

// queryStates parses ?state=a,b or repeated ?state= values with parse.
func queryStates[T any](w http.ResponseWriter, r *http.Request, parse func(string) (T, error)) ([]T, bool) {
	var out []T
	for _, v := range r.URL.Query()["state"] {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, err := parse(part)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return nil, false
			}
			out = append(out, st)
		}
	}
	return out, true
}
