package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaStrategy = "strategy"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaState    = "state"

	StageConfig       = "config"
	StageBrowser      = "browser"
	StageLogin        = "login"
	StageAttendance   = "attendance"
	StageLocation     = "location"
	StageVerification = "verification"
	StageScreenshot   = "screenshot"
	StagePageText     = "page_text"
	StageNavigation   = "navigation"
	StageInteraction  = "interaction"
	StageStorage      = "storage"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeConfig          = "config"
	CodeAuth            = "auth"
	CodeNotFound        = "not_found"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeActionFailed    = "action_failed"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

func ConfigError(field string, err error) error {
	return Wrap("config", CodeConfig, err, map[string]any{
		MetaField:  field,
		MetaReason: "missing_or_invalid",
		MetaStage:  StageConfig,
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or
// CodeInternal when the chain carries none. Outer codes win so callers can
// reclassify a lower-level failure.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// ReasonOf walks the chain and returns the first reason recorded.
func ReasonOf(err error) string {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return ""
		}

		if reason, ok := appErr.Metadata[MetaReason].(string); ok && reason != "" {
			return reason
		}

		err = appErr.Err
	}

	return ""
}

func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}
