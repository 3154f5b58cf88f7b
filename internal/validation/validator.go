package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/go-playground/validator/v10"
)

// FieldError collects struct validation failures keyed by JSON field name.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewFieldError builds a single-field error.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Fields: map[string]string{field: message}}
}

// AsFieldError unwraps a *FieldError from err.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom tags registered:
// slug, ulid, link (absolute URL or site-relative path) and weburl.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return ids.ValidateSlug(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("ulid", func(fl validator.FieldLevel) bool {
			return ids.IsULID(fl.Field().String())
		})
		_ = v.RegisterValidation("link", func(fl validator.FieldLevel) bool {
			return ValidateLink(fl.Field().String(), fl.FieldName()) == nil
		})
		_ = v.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
			return ValidateURL(fl.Field().String(), fl.FieldName(), false) == nil
		})
		instance = v
	})
	return instance
}

// Struct validates s and converts failures into a *FieldError.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return &FieldError{Fields: fields}
}

// fieldPath drops the root struct name from the namespace: "Page.sections[0].type" -> "sections[0].type".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "slug":
		return "must contain only lowercase letters, digits and single hyphens"
	case "ulid":
		return "must be a valid ULID"
	case "link":
		return "must be an http(s) URL or a path starting with /"
	case "weburl":
		return "must be an absolute http(s) URL"
	case "hexcolor":
		return "must be a hex colour such as #1a2b3c"
	case "latitude", "longitude":
		return "must be a valid " + fe.Tag()
	case "gte", "lte":
		return fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
