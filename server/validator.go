package server

import (
	"fmt"
	"unicode/utf8"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/types"
)

// RequestValidator checks the size and shape of federate-supplied data
// before a request reaches the federation. Semantic checks (known classes,
// ownership, time) stay with the federation.
type RequestValidator interface {
	// ValidateName checks a federate, federate type or object instance name.
	ValidateName(field, name string) error

	ValidateTag(tag []byte) error

	// ValidateHandles checks the length of a handle list and that no handle repeats.
	ValidateHandles(field string, handles []uint64) error

	ValidateAttributeValues(values []types.AttributeValue) error
	ValidateParameterValues(values []types.ParameterValue) error
}

type requestValidator struct {
	logger logger.Logger
}

// NewRequestValidator creates the default request validator.
func NewRequestValidator(logger logger.Logger) RequestValidator {
	return &requestValidator{logger: logger}
}

func (v *requestValidator) ValidateName(field, name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NewValidationError(field, name, fmt.Sprintf(ErrMsgNameTooLong, MaxNameLength))
	}
	if !utf8.ValidString(name) {
		return NewValidationError(field, name, "must be valid UTF-8")
	}
	return nil
}

func (v *requestValidator) ValidateTag(tag []byte) error {
	if len(tag) > MaxTagLength {
		return NewValidationError("tag", len(tag), fmt.Sprintf(ErrMsgTagTooLong, MaxTagLength))
	}
	return nil
}

func (v *requestValidator) ValidateHandles(field string, handles []uint64) error {
	if len(handles) > MaxHandlesPerRequest {
		return NewValidationError(field, len(handles), fmt.Sprintf(ErrMsgTooManyHandles, MaxHandlesPerRequest))
	}
	seen := make(map[uint64]struct{}, len(handles))
	for _, h := range handles {
		if _, dup := seen[h]; dup {
			return NewValidationError(field, h, fmt.Sprintf(ErrMsgDuplicateHandle, h))
		}
		seen[h] = struct{}{}
	}
	return nil
}

func (v *requestValidator) ValidateAttributeValues(values []types.AttributeValue) error {
	handles := make([]uint64, len(values))
	for i, av := range values {
		if len(av.Value) > MaxValueLength {
			return NewValidationError(fmt.Sprintf("values[%d].value", i), len(av.Value), fmt.Sprintf(ErrMsgValueTooLong, MaxValueLength))
		}
		handles[i] = uint64(av.Attribute)
	}
	return v.ValidateHandles("values", handles)
}

func (v *requestValidator) ValidateParameterValues(values []types.ParameterValue) error {
	handles := make([]uint64, len(values))
	for i, pv := range values {
		if len(pv.Value) > MaxValueLength {
			return NewValidationError(fmt.Sprintf("values[%d].value", i), len(pv.Value), fmt.Sprintf(ErrMsgValueTooLong, MaxValueLength))
		}
		handles[i] = uint64(pv.Parameter)
	}
	return v.ValidateHandles("values", handles)
}
