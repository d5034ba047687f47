// Package validators checks decoded request bodies.
package validators

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	appErr "github.com/designwheel/engine/pkg/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// New returns the shared validator. Field names in errors follow json tags.
func New() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		instance = v
	})
	return instance
}

// Struct validates s and reports the first failing field as an invalid AppError.
func Struct(s any) error {
	err := New().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return appErr.Newf(appErr.CodeInvalid, "%s failed %s validation", fe.Field(), fe.Tag()).
			WithMeta("field", fe.Field()).
			WithMeta("rule", fe.Tag())
	}
	return appErr.Wrap(err, appErr.CodeInvalid, "invalid request")
}
