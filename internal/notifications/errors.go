package notifications

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("notification failed [%s] status %d: %v", e.Type, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout":
		return true
	case "rate_limit":
		return true
	case "auth", "client", "circuit_open":
		return false
	default:
		return e.StatusCode >= 500
	}
}

// Bot API failures render as "telegram: <description> (<code>)".
var apiCodeSuffix = regexp.MustCompile(`\((\d{3})\)\s*$`)

func categorizeSendError(err error) *NotificationError {
	var notifErr *NotificationError
	if errors.As(err, &notifErr) {
		return notifErr
	}

	code := 0
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	} else if m := apiCodeSuffix.FindStringSubmatch(err.Error()); m != nil {
		code, _ = strconv.Atoi(m[1])
	}

	errType := "network"
	if code > 0 {
		errType = categorizeHTTPError(code)
	}
	return &NotificationError{
		Type:       errType,
		StatusCode: code,
		Underlying: err,
	}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
