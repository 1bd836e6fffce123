// Package handlers implements the REST surface of the deadline engine.  Each
// handler owns one resource, binds and validates the request, delegates to
// the domain layer, and translates domain errors to HTTP statuses through
// the shared error-code mapping.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError writes a structured error response, mapping the error code to
// an HTTP status.  Internal details (stack, cause chain) never leak: only
// the code and message cross the wire.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)

	message := err.Error()
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		message = ae.Message
		if ae.Detail != "" {
			message = message + ": " + ae.Detail
		}
	}
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    string(code),
		Message: message,
	})
}

// respondBindError wraps a gin binding failure as a bad-request error.
func respondBindError(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
}
