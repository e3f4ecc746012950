package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domain "user-file-service/internal/domain/user"
	pkgerrors "user-file-service/pkg/errors"
)

// userInput is the typed view of a Payload checked by the validator.
// Pointers distinguish an absent field from a zero value.
type userInput struct {
	FirstName  *string  `json:"firstName" validate:"required,min=1"`
	SecondName *string  `json:"secondName" validate:"required,min=1"`
	Age        *float64 `json:"age" validate:"required,integer,min=0,max=99"`
	City       *string  `json:"city" validate:"omitnil,min=1"`
}

// payloadFields lists the validated fields in reporting order with the JSON
// type each must have.
var payloadFields = []struct {
	name string
	kind string
}{
	{"firstName", "string"},
	{"secondName", "string"},
	{"age", "number"},
	{"city", "string"},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("integer", isInteger); err != nil {
		panic(err)
	}
	return v
}

// isInteger accepts whole numbers only.
func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsInf(v, 0) && !math.IsNaN(v) && v == math.Trunc(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// validatePayload checks p and returns its typed view, or a
// *pkgerrors.ValidationError with one violation per failing field.
func (uc *Usecase) validatePayload(p Payload) (*userInput, error) {
	var in userInput
	violations := make(map[string]pkgerrors.Violation)

	targets := map[string]any{
		"firstName":  &in.FirstName,
		"secondName": &in.SecondName,
		"age":        &in.Age,
		"city":       &in.City,
	}
	for _, f := range payloadFields {
		raw, ok := p[f.name]
		if !ok {
			continue
		}
		if isNull(raw) || json.Unmarshal(raw, targets[f.name]) != nil {
			violations[f.name] = pkgerrors.Violation{
				Field:   f.name,
				Rule:    f.kind,
				Message: fmt.Sprintf("%s must be a %s", f.name, f.kind),
			}
		}
	}

	if err := uc.validate.Struct(in); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, err
		}
		for _, fe := range validationErrors {
			if _, seen := violations[fe.Field()]; seen {
				continue
			}
			violations[fe.Field()] = pkgerrors.Violation{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: formatViolation(fe),
			}
		}
	}

	if len(violations) == 0 {
		return &in, nil
	}

	ordered := make([]pkgerrors.Violation, 0, len(violations))
	for _, f := range payloadFields {
		if v, ok := violations[f.name]; ok {
			ordered = append(ordered, v)
		}
	}
	return nil, pkgerrors.NewValidationError(ordered...)
}

// formatViolation converts a validator field error into a human-readable message.
func formatViolation(fe validator.FieldError) string {
	numeric := fe.Kind() != reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "integer":
		return fmt.Sprintf("%s must be an integer", fe.Field())
	case "min":
		if numeric {
			return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// toUser combines a system id with the validated fields. Unknown payload
// fields are carried over as-is; a payload "id" never overrides the system id.
func (in *userInput) toUser(id int64, p Payload) domain.User {
	u := domain.User{
		ID:         id,
		FirstName:  *in.FirstName,
		SecondName: *in.SecondName,
		Age:        int(*in.Age),
		City:       in.City,
	}
	for k, v := range p {
		if domain.IsKnownField(k) {
			continue
		}
		if u.Extra == nil {
			u.Extra = make(map[string]json.RawMessage)
		}
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, v); err != nil {
			continue
		}
		u.Extra[k] = compacted.Bytes()
	}
	return u
}
