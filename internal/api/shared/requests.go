package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds request bodies; engine commands are small.
const MaxBodyBytes = 64 << 10

// Global validator instance for reuse. Field names in errors are the JSON
// names clients send.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON decodes a single JSON object from the request body into v,
// rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// ValidateRequest validates the given struct using the validator package.
func ValidateRequest(v interface{}) error {
	// Check if the object implements the Validate interface
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}

	return validate.Struct(v)
}
