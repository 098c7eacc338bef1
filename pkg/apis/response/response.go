package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type responseError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

func (re *responseError) Error() string {
	if re == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", re.Code, re.Message)
}

func (re *responseError) Unwrap() error {
	return re.Err
}

// MultiError is the body of every failed request. It is safe for concurrent
// use, the zero value is empty.
type MultiError struct {
	mtx    sync.Mutex
	errors []error
}

func NewMultiError(errs ...error) *MultiError {
	return &MultiError{errors: errs}
}

func (e *MultiError) Add(errs ...error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.errors = append(e.errors, errs...)
}

func (e *MultiError) Len() int {
	if e == nil {
		return 0
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return len(e.errors)
}

// Errors returns a copy of the collected errors.
func (e *MultiError) Errors() []error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return append([]error(nil), e.errors...)
}

// MarshalJSON renders every error as {code, message}. An error without a code
// in its chain is reported with code 0.
func (e *MultiError) MarshalJSON() ([]byte, error) {
	errs := e.Errors()
	out := make([]*responseError, 0, len(errs))
	for _, err := range errs {
		var re *responseError
		if !errors.As(err, &re) {
			re = &responseError{Message: err.Error()}
		}
		out = append(out, re)
	}
	return json.Marshal(map[string][]*responseError{"errors": out})
}

func (e *MultiError) UnmarshalJSON(data []byte) error {
	var body struct {
		Errors []*responseError `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	for _, re := range body.Errors {
		e.Add(re)
	}
	return nil
}

func (e *MultiError) Error() string {
	errs := e.Errors()
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func newError(code ErrCode, args ...interface{}) *responseError {
	return &responseError{Code: code, Message: fmt.Sprintf(messages[code], args...)}
}

// wrap keeps cause reachable through errors.Is and puts its text in the
// message.
func wrap(code ErrCode, cause error) *responseError {
	re := newError(code, cause.Error())
	re.Err = cause
	return re
}

func ErrRequestBody(cause error) *responseError {
	return wrap(ErrCodeRequestBody, cause)
}

func ErrUnknownDeviceType(deviceType string) *responseError {
	return newError(ErrCodeUnknownDeviceType, deviceType)
}

func ErrResourceNotFound(resource string) *responseError {
	return newError(ErrCodeResourceNotFound, resource)
}

func ErrMethodNotAllowed(method string) *responseError {
	return newError(ErrCodeMethodNotAllowed, method)
}

func ErrMalformedFrame(cause error) *responseError {
	return wrap(ErrCodeMalformedFrame, cause)
}

func ErrChecksum(cause error) *responseError {
	return wrap(ErrCodeChecksum, cause)
}

func ErrUnsupportedFunction(cause error) *responseError {
	return wrap(ErrCodeUnsupportedFunction, cause)
}

func ErrExchange(cause error) *responseError {
	return wrap(ErrCodeExchange, cause)
}

func ErrDeviceException(cause error) *responseError {
	return wrap(ErrCodeDeviceException, cause)
}

func ErrInvalidValue(cause error) *responseError {
	return wrap(ErrCodeInvalidValue, cause)
}
