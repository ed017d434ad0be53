package httpdto

import apperrors "globalgigs/pkg/errors"

// Response is the {success, data, error, code} envelope every action returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// FromError classifies err into a failed Response.
func FromError(err error) Response[any] {
	return NewErrorResponse(apperrors.Message(err), apperrors.Kind(err))
}
