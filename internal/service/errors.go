package service

import (
	"errors"
	"strings"
)

// 业务错误分类, api 层根据这些错误决定 HTTP 状态码。
// 具体原因通过 fmt.Errorf("%w: 原因", ErrXxx) 附加。
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)

var kinds = []error{ErrUnauthorized, ErrNotFound, ErrInvalidRequest, ErrValidation, ErrConflict, ErrInternal}

// Reason 返回给用户看的原因, 去掉分类前缀。内部错误不暴露细节。
func Reason(err error) string {
	if errors.Is(err, ErrInternal) {
		return ErrInternal.Error()
	}
	msg := err.Error()
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			msg = strings.TrimPrefix(msg, kind.Error()+": ")
			break
		}
	}
	return msg
}
