package errutil

import "fmt"

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BaseError struct {
	Code    CoreStatus `json:"code"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) Status() CoreStatus {
	return e.Code
}

func (e BaseError) JSON() interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.messageWithErr(),
			"details": e.Details,
		},
	}
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.messageWithErr())
}

func (e BaseError) messageWithErr() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func New(code CoreStatus, message string, err error, opts ...Option) error {
	be := BaseError{Code: code, Message: message, Err: err}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func BadRequest(msg string, err error, opts ...Option) error {
	return New(StatusBadRequest, msg, err, opts...)
}

func ValidationFailed(msg string, err error, opts ...Option) error {
	return New(StatusValidationFailed, msg, err, opts...)
}

func NotFound(msg string, err error, opts ...Option) error {
	return New(StatusNotFound, msg, err, opts...)
}

func Conflict(msg string, err error, opts ...Option) error {
	return New(StatusConflict, msg, err, opts...)
}

func UnprocessableEntity(msg string, err error, opts ...Option) error {
	return New(StatusUnprocessableEntity, msg, err, opts...)
}

func Timeout(msg string, err error, opts ...Option) error {
	return New(StatusTimeout, msg, err, opts...)
}

func Internal(msg string, err error, opts ...Option) error {
	return New(StatusInternal, msg, err, opts...)
}

func BadGateway(msg string, err error, opts ...Option) error {
	return New(StatusBadGateway, msg, err, opts...)
}
