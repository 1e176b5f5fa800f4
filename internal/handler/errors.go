package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-orders/internal/domain/order"
)

// Error codes of the API error body.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInvalidReference  = "invalid_reference"
	CodeCrossTenant       = "cross_tenant_reference"
	CodeValidation        = "validation_error"
	CodeIllegalState      = "illegal_state"
	CodeIllegalTransition = "illegal_transition"
	CodeInternal          = "internal"
)

// errBadRequest marks request bodies that are not valid JSON for the route.
var errBadRequest = errors.New("malformed request body")

type apiError struct {
	status  int
	code    string
	message string
	field   string
}

func classify(err error) apiError {
	var (
		notFound   *order.NotFoundError
		validation *order.ValidationError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return apiError{status: http.StatusBadRequest, code: CodeBadRequest, message: err.Error()}
	case errors.As(err, &notFound):
		return apiError{status: http.StatusNotFound, code: CodeNotFound, message: notFound.Error()}
	case errors.As(err, &validation):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			code:    CodeValidation,
			message: validation.Reason,
			field:   validation.Field,
		}
	case errors.Is(err, order.ErrInvalidReference):
		return apiError{status: http.StatusUnprocessableEntity, code: CodeInvalidReference, message: err.Error()}
	case errors.Is(err, order.ErrCrossTenantReference):
		return apiError{status: http.StatusUnprocessableEntity, code: CodeCrossTenant, message: err.Error()}
	case errors.Is(err, order.ErrIllegalState):
		return apiError{status: http.StatusConflict, code: CodeIllegalState, message: err.Error()}
	case errors.Is(err, order.ErrIllegalTransition):
		return apiError{status: http.StatusConflict, code: CodeIllegalTransition, message: err.Error()}
	case errors.Is(err, order.ErrNotFound):
		return apiError{status: http.StatusNotFound, code: CodeNotFound, message: err.Error()}
	default:
		return apiError{status: http.StatusInternalServerError, code: CodeInternal, message: "internal server error"}
	}
}

// writeError maps err to its HTTP status and error body. Unclassified errors
// are logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	if ae.status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeAPIError(w, ae)
}

func writeAPIError(w http.ResponseWriter, ae apiError) {
	writeJSON(w, ae.status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(ae.code)
		e.FieldStart("message")
		e.Str(ae.message)
		if ae.field != "" {
			e.FieldStart("field")
			e.Str(ae.field)
		}
		e.ObjEnd()
	})
}
