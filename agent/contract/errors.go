package contract

import "errors"

var (
	ErrUnknownTool            = errors.New("unknown tool")
	ErrDuplicateTool          = errors.New("duplicate tool registration")
	ErrInvalidSideEffectClass = errors.New("irreversible tool is not whitelisted")
	ErrSchemaViolation        = errors.New("arguments violate tool schema")
	ErrMissingRequiredEntity  = errors.New("required entity is missing from request")
	ErrUnclassified           = errors.New("request could not be classified")
	ErrValidation             = errors.New("validation failed")
)
