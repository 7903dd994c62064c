package engine

import (
	"errors"

	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/resolve"
	"tilecraft.ai/internal/wang"
)

// RequestError is a request the engine refuses before resolving.
type RequestError struct {
	Code string
	Msg  string
}

func (e *RequestError) Error() string { return e.Msg }

// Code maps an error to its protocol code.
func Code(err error) string {
	var re *RequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return re.Code
	case errors.Is(err, wang.ErrSchema):
		return protocol.ErrSchema
	case errors.Is(err, resolve.ErrUnsatisfiable):
		return protocol.ErrUnsatisfiable
	default:
		return protocol.ErrInternal
	}
}
