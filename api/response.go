package api

import (
	"encoding/json"
	"net/http"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrCodeBadRequest  ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnf("failed to encode response: %v", err)
	}
}

func Text(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// EngineError maps an engine error to a response by its juju error kind.
func EngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.NotFound):
		Error(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, errors.AlreadyExists):
		Error(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, errors.NotValid):
		Error(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, errors.MethodNotAllowed):
		Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		log.Errorf("internal error: %s", errors.ErrorStack(err))
		Error(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
