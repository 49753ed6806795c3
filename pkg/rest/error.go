package rest

import (
	"fmt"
	"net/http"
)

// Error is the terminal error value of the query layer. Once produced
// it short-circuits all further processing in the request and is
// surfaced verbatim to the client with its status code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func badRequest(format string, args ...any) *Error {
	return &Error{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func forbidden() *Error {
	return &Error{Code: http.StatusForbidden, Message: "API access denied."}
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func internalError(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: err.Error()}
}
