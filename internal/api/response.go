// Package api holds the response envelope shared by the HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

// SuccessResponse is the {"data": ...} envelope.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the {"error": ...} envelope. Code is the domain error code
// when there is one, so clients can branch without parsing the message.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeAlreadyExists:    http.StatusConflict,
	domain.ErrCodeConflict:         http.StatusConflict,
	domain.ErrCodeInvalidOperation: http.StatusUnprocessableEntity,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps err to a status by its domain code. Anything that is
// not a DomainError is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err in the error envelope. Errors without a domain code
// are logged and reported as "internal error" so driver and SDK messages stay
// server side.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		log.Printf("api: unhandled error: %v", err)
		JSON(w, status, ErrorResponse{Error: "internal error"})
		return
	}
	JSON(w, status, ErrorResponse{Error: err.Error(), Code: domainErr.Code})
}
