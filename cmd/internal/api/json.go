package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/auth"
	"campus/cmd/internal/enrollment"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

// writeDomainError maps a domain error onto the response taxonomy. Anything
// it does not recognize is an infrastructure fault and comes back as a
// generic 500, never as a domain status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Forbidden")
	case identity.IsInvalidInput(err), catalog.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "User already exists with this email")
	case enrollment.IsAlreadyEnrolled(err):
		writeError(w, http.StatusConflict, "already_enrolled", "Already enrolled in this course")
	case enrollment.IsNotEnrolled(err):
		writeError(w, http.StatusConflict, "not_enrolled", "Not enrolled in this course")
	case identity.IsNotFound(err), catalog.IsNotFound(err), enrollment.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", notFoundMessage(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func notFoundMessage(err error) string {
	var oe enrollment.OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		switch oe.Msg {
		case "course":
			return "Course not found"
		case "student":
			return "Student not found"
		case "instructor":
			return "Instructor not found"
		}
	}
	var nf identity.NotFoundError
	if errors.As(err, &nf) {
		return "User not found"
	}
	if catalog.IsNotFound(err) {
		return "Course not found"
	}
	return "Not found"
}
