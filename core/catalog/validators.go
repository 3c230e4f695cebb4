package catalog

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/njia/core"
)

var (
	streamTag  = "stream"
	streamText = "unknown stream"

	itemTypeTag  = "itemtype"
	itemTypeText = "invalid item type"
)

// RegisterValidators registers the catalog validations on validate.
// streams are the stream keys of the quiz bank.
func RegisterValidators(validate *validator.Validate, translator ut.Translator, streams []string) {
	core.RegisterOneOfValidation(validate, translator, streamTag, streamText, streams)

	kinds := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		kinds = append(kinds, string(k))
	}
	core.RegisterOneOfValidation(validate, translator, itemTypeTag, itemTypeText, kinds)
}
