package services

import "errors"

type ErrorCode string

const (
	ErrorInvalidAnswer       ErrorCode = "invalid_answer"
	ErrorFlowState           ErrorCode = "flow_state"
	ErrorMissingEmail        ErrorCode = "missing_email"
	ErrorAuthExpired         ErrorCode = "auth_expired"
	ErrorNetwork             ErrorCode = "network"
	ErrorLocationUnavailable ErrorCode = "location_unavailable"
	ErrorNotFound            ErrorCode = "not_found"
	ErrorInternal            ErrorCode = "internal"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidAnswerError(msg string) error { return &ServiceError{Code: ErrorInvalidAnswer, Message: msg} }
func NewFlowStateError(msg string) error     { return &ServiceError{Code: ErrorFlowState, Message: msg} }
func NewMissingEmailError(msg string) error  { return &ServiceError{Code: ErrorMissingEmail, Message: msg} }
func NewAuthExpiredError(msg string) error   { return &ServiceError{Code: ErrorAuthExpired, Message: msg} }
func NewNetworkError(msg string) error       { return &ServiceError{Code: ErrorNetwork, Message: msg} }
func NewNotFoundError(msg string) error      { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewInternalError(msg string) error      { return &ServiceError{Code: ErrorInternal, Message: msg} }

func NewLocationUnavailableError(msg string) error {
	return &ServiceError{Code: ErrorLocationUnavailable, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err is a ServiceError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	if se, ok := AsServiceError(err); ok {
		return se.Code == code
	}
	return false
}
