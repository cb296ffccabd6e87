package model

import (
	"errors"
	"strings"
)

// ErrorCode is the closed set of health error classifications
type ErrorCode string

const (
	ErrCodeNotAvailable     ErrorCode = "NOT_AVAILABLE"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeNoData           ErrorCode = "NO_DATA"
	ErrCodeUnknown          ErrorCode = "UNKNOWN"
)

// IsValid reports whether c is one of the four known codes
func (c ErrorCode) IsValid() bool {
	switch c {
	case ErrCodeNotAvailable, ErrCodePermissionDenied, ErrCodeNoData, ErrCodeUnknown:
		return true
	}
	return false
}

// HealthError is a classified health layer failure
type HealthError struct {
	Code    ErrorCode
	Message string
}

// NewHealthError creates a HealthError
func NewHealthError(code ErrorCode, message string) *HealthError {
	return &HealthError{Code: code, Message: message}
}

func (e *HealthError) Error() string {
	return e.Message
}

// HealthErrorInfo is the normalized view of any failure
type HealthErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// coder is implemented by vendor errors carrying a string code
type coder interface {
	Code() string
}

// NormalizeError classifies an arbitrary failure value.
//
// Structured codes are trusted first. Otherwise the message text is matched
// against a handful of substrings; vendor SDKs do not emit codes
// consistently, so that fallback is best-effort only.
func NormalizeError(v any) HealthErrorInfo {
	switch e := v.(type) {
	case nil:
		return HealthErrorInfo{Code: ErrCodeUnknown, Message: "Unknown error"}
	case string:
		return HealthErrorInfo{Code: classifyMessage(e), Message: e}
	case error:
		var he *HealthError
		if errors.As(e, &he) {
			return HealthErrorInfo{Code: he.Code, Message: he.Message}
		}

		var c coder
		if errors.As(e, &c) {
			if code := ErrorCode(c.Code()); code.IsValid() {
				msg := e.Error()
				if msg == "" {
					msg = string(code)
				}
				return HealthErrorInfo{Code: code, Message: msg}
			}
		}

		return HealthErrorInfo{Code: classifyMessage(e.Error()), Message: e.Error()}
	}
	return HealthErrorInfo{Code: ErrCodeUnknown, Message: "Unknown error"}
}

// Classify turns any failure into a *HealthError
func Classify(v any) *HealthError {
	info := NormalizeError(v)
	return NewHealthError(info.Code, info.Message)
}

// CodeOf returns the classification of err, or "" when err is nil
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return NormalizeError(err).Code
}

func classifyMessage(message string) ErrorCode {
	text := strings.ToLower(message)
	switch {
	case strings.Contains(text, "permission"), strings.Contains(text, "not authorized"):
		return ErrCodePermissionDenied
	case strings.Contains(text, "not available"), strings.Contains(text, "unavailable"):
		return ErrCodeNotAvailable
	case strings.Contains(text, "no data"), strings.Contains(text, "empty"):
		return ErrCodeNoData
	default:
		return ErrCodeUnknown
	}
}

// UserMessage returns the fixed, non-technical sentence shown for info
func UserMessage(info HealthErrorInfo) string {
	switch info.Code {
	case ErrCodeNotAvailable:
		return "Health data is not available on this device."
	case ErrCodePermissionDenied:
		return "Permission denied. Please enable Health permissions and try again."
	case ErrCodeNoData:
		return "No health data found for the selected range."
	default:
		return "Something went wrong while reading health data."
	}
}
