package api

import (
	"net/http"

	"github.com/compozy/storepulse/engine/core"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusOf maps an error to its HTTP status
func StatusOf(err error) int {
	switch core.CodeOf(err) {
	case core.ErrorCodeInvalidInput:
		return http.StatusBadRequest
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err with its route and writes the mapped response
func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	l := loggerFrom(c)
	if status >= http.StatusInternalServerError {
		l.Error("Request failed", "route", c.FullPath(), "error", err)
	} else {
		l.Debug("Request rejected", "route", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message: core.MessageOf(err),
		Code:    string(core.CodeOf(err)),
	})
}
