package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var localDayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RegisterValidators adds the custom binding tags used by API payloads.
// Must run before the router starts serving.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("localday", func(fl validator.FieldLevel) bool {
			return localDayPattern.MatchString(fl.Field().String())
		})
	}
}
