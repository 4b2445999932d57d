// Package api implements the HTTP surface (C11): Gin handlers for every
// endpoint, request validation, and the one error-mapping chokepoint every
// handler funnels through.
package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/medibrief/api/internal/apperr"
)

// fail writes err as the appropriate status + {message, errors?} body, with
// any Extra fields of the error merged in. Every handler that returns early
// on error calls this exactly once, so error mapping never drifts
// per-endpoint (§7).
func fail(c *gin.Context, err error) {
	e := apperr.As(err)
	if len(e.Extra) == 0 {
		c.AbortWithStatusJSON(apperr.Status(e.Kind), apperr.Body{Message: e.Message, Errors: e.Fields})
		return
	}
	body := gin.H{"message": e.Message}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	for k, v := range e.Extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(apperr.Status(e.Kind), body)
}

// bind decodes and validates the request body, translating validator field
// errors into apperr's {field, message} shape instead of Gin's raw error
// string.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]apperr.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apperr.FieldError{
					Field:   fe.Field(),
					Message: fieldErrorMessage(fe),
				})
			}
			return apperr.Validation("request validation failed", fields...)
		}
		return apperr.Validation(err.Error())
	}
	return nil
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is shorter than the minimum length of " + fe.Param()
	case "max":
		return "is longer than the maximum length of " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
