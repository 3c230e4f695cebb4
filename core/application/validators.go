package application

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/njia/core"
)

var (
	appStatusTag  = "appstatus"
	appStatusText = "invalid application status"
)

// RegisterValidators registers the application validations on validate.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOfValidation(validate, translator, appStatusTag, appStatusText, Statuses)
}
