package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Failure categories reported by Category.
const (
	CategoryTransient = "transient"
	CategoryTool      = "tool"
	CategoryData      = "data"
	CategoryInternal  = "internal"
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category maps an error onto the failure taxonomy: download and timeout
// problems are transient, tool failures (including missing tool output) are
// tool errors, bad job inputs are data errors.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return CategoryTransient
	case errors.Is(err, ErrExternalTool):
		return CategoryTool
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return CategoryData
	default:
		return CategoryInternal
	}
}

// Hint suggests the operator's next step for a failed job.
func Hint(err error) string {
	switch Category(err) {
	case CategoryTransient:
		return "source unreachable or tool timed out; resubmit after the next restart"
	case CategoryTool:
		return "inspect the tool output and the logged directory listing"
	case CategoryData:
		return "the job input is invalid; the user must resubmit"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
