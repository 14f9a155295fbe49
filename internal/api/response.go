package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/campuslf/lostfound/internal/apperr"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindUnauthorized:      http.StatusForbidden,
	apperr.KindAlreadyClaimed:    http.StatusConflict,
	apperr.KindAlreadyProcessed:  http.StatusConflict,
	apperr.KindAlreadyScanned:    http.StatusConflict,
	apperr.KindDisputeExists:     http.StatusConflict,
	apperr.KindSelfClaim:         http.StatusUnprocessableEntity,
	apperr.KindInvalidTransition: http.StatusUnprocessableEntity,
	apperr.KindInvalidCode:       http.StatusNotFound,
	apperr.KindValidation:        http.StatusBadRequest,
}

// serviceError writes a service error with the status for its kind. Internal
// errors are logged and their details withheld.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"error": "internal error",
			"kind":  string(apperr.KindInternal),
		})
		return
	}

	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	jsonResponse(w, status, map[string]string{"error": msg, "kind": string(kind)})
}

// decodeJSON decodes a JSON request body into the given target. An empty body
// leaves target untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses the named path parameter as a positive ID.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}
