package services

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureCode tags a pipeline error with its caller-facing class.
type FailureCode string

const (
	CodeValidation   FailureCode = "validation_error"
	CodeDuplicate    FailureCode = "duplicate_record"
	CodeCollaborator FailureCode = "collaborator_unavailable"
	CodeRetrieval    FailureCode = "retrieval_failed"
	CodePersistence  FailureCode = "persistence_failed"
	CodeNotFound     FailureCode = "not_found"
	CodeInternal     FailureCode = "internal_error"
)

// PipelineError is the typed error the service layer returns to handlers.
type PipelineError struct {
	Code      FailureCode
	Operation string
	Message   string
	Cause     error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("services: op=%s code=%s", e.Operation, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func pipeErr(code FailureCode, op, msg string, cause error) *PipelineError {
	return &PipelineError{Code: code, Operation: op, Message: msg, Cause: cause}
}

// CodeOf extracts the failure code, defaulting to internal_error.
func CodeOf(err error) FailureCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// HTTPStatusOf maps a pipeline error onto the API status code.
func HTTPStatusOf(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDuplicate:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCollaborator:
		return http.StatusBadGateway
	case CodeRetrieval, CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
