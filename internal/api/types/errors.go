package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	appErr "github.com/designwheel/engine/pkg/errors"
)

func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		return &APIError{Code: string(e.Code), Message: e.Message, Details: details(e.Meta)}
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}

// details flattens error metadata into a stable "k=v; k=v" string.
func details(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, "; ")
}
