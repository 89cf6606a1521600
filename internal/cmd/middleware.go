package cmd

import (
	"net/http"

	"github.com/gogf/gf/v2/errors/gcode"
	"github.com/gogf/gf/v2/errors/gerror"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"

	"github.com/NikGor/archie-backend/core/errors"
)

const internalErrorMessage = "Internal server error"

// ErrorResponse body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MiddlewareHandlerResponse writes the handler response as plain JSON, or an
// ErrorResponse with the status mapped from the error code.
func MiddlewareHandlerResponse(r *ghttp.Request) {
	r.Middleware.Next()

	// There's custom buffer content, it then exits current handler.
	if r.Response.BufferLength() > 0 || r.Response.Writer.BytesWritten() > 0 {
		return
	}

	err := r.GetError()
	if err == nil {
		r.Response.WriteJson(r.GetHandlerResponse())
		return
	}

	status, detail := errorResponse(err)
	if status >= http.StatusInternalServerError {
		g.Log().Errorf(r.Context(), "%s %s failed: %+v", r.Method, r.URL.Path, err)
	}
	r.Response.ClearBuffer()
	r.Response.WriteHeader(status)
	r.Response.WriteJson(ErrorResponse{Detail: detail})
}

// errorResponse maps err to a status and the detail shown to the caller.
// Causes of server errors stay in the log.
func errorResponse(err error) (int, string) {
	if appErr := errors.GetAppError(err); appErr != nil {
		if !appErr.Code.IsClientError() && appErr.Message == "" {
			return appErr.Code.HTTPStatusCode(), internalErrorMessage
		}
		return appErr.Code.HTTPStatusCode(), appErr.Message
	}

	switch gerror.Code(err) {
	case gcode.CodeValidationFailed, gcode.CodeInvalidParameter, gcode.CodeMissingParameter, gcode.CodeInvalidRequest:
		return http.StatusBadRequest, err.Error()
	case gcode.CodeNotFound:
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, internalErrorMessage
}
