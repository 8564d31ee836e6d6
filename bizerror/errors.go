package bizerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrInvalidCredential = errors.New("invalid phone or pin")
	ErrAccountLocked     = errors.New("account is locked, try again later")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrAccountUnapproved = errors.New("account is not approved yet")
	ErrTooManyRequests   = errors.New("too many requests")

	ErrInvalidState = errors.New("invalid state for this operation")
	ErrConflict     = errors.New("conflict with existing record")
)

// BizError carries its own HTTP rendering.
type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message}
}

// ErrCapacityExceeded names the site and date which rejected a new assignment.
type ErrCapacityExceeded struct {
	SiteName string
	Date     string
	Limit    int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("%s is already at capacity (%d workers) for %s", e.SiteName, e.Limit, e.Date)
}
func (e *ErrCapacityExceeded) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "assignment.capacity_exceeded", Message: e.Error(),
		Data: map[string]interface{}{"site": e.SiteName, "date": e.Date, "limit": e.Limit}}
}
