package weave

import (
	"fmt"
	"net/http"
)

// Code - числовой код ошибки протокола Weave, уходит клиенту в теле ответа.
type Code int

const (
	CodeInvalidProtocol      Code = 1
	CodeInvalidUsername      Code = 3
	CodeNoOverwrite          Code = 4
	CodeUseridPathMismatch   Code = 5
	CodeJSONParse            Code = 6
	CodeMissingPassword      Code = 7
	CodeInvalidWbo           Code = 8
	CodeWeakPassword         Code = 9
	CodeFunctionNotSupported Code = 11
	CodeInvalidCollection    Code = 13
)

// Error - отказ протокола с готовым HTTP-статусом.
type Error struct {
	Code   Code
	Status int
	// Message не уходит клиенту, только в лог.
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("weave error %d (%d): %s", e.Code, e.Status, e.Message)
}

// NewError строит ошибку со статусом по умолчанию для кода.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Status: defaultStatus(code), Message: msg}
}

func defaultStatus(code Code) int {
	switch code {
	case CodeMissingPassword, CodeUseridPathMismatch:
		return http.StatusUnauthorized
	case CodeNoOverwrite:
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadRequest
	}
}

// Частые ошибки.
var (
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "authentication failed"}
	ErrNotFound     = &Error{Status: http.StatusNotFound, Message: "not found"}
	ErrUnavailable  = &Error{Status: http.StatusServiceUnavailable, Message: "storage unavailable"}
	ErrTooLarge     = &Error{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
)
