// Package validation checks configuration and API input.
//
// Struct tag validation runs go-playground/validator and converts failures
// into an INVALID_INPUT AppError whose details list every failing field:
//
//	type SwitchRequest struct {
//	    Kind string `json:"kind" validate:"required"`
//	}
//	err := validation.Validate(req)
//
// Rules that span fields are collected programmatically:
//
//	v := validation.New()
//	v.Required("tts.script", cfg.TTS.Script)
//	err := v.Validate()
package validation
