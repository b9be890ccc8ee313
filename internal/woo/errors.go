package woo

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
)

// APIError is a non-2xx response from WordPress or WooCommerce.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("woocommerce: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("woocommerce: %d: %s", e.Status, e.Message)
}

// UserMessage returns the upstream message suitable for display.
func (e *APIError) UserMessage() string { return e.Message }

// UpstreamStatus returns the HTTP status WordPress answered with.
func (e *APIError) UpstreamStatus() int { return e.Status }

// Detail is the part of the error safe to echo to API clients.
func (e *APIError) Detail() any {
	return map[string]any{"code": e.Code, "status": e.Status}
}

// NotFound reports whether the upstream answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// DecodeError is a 2xx response whose body did not have the expected shape.
type DecodeError struct {
	Call string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Call, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var tagRe = regexp.MustCompile(`<[^>]*>`)

// cleanMessage strips the HTML markup WordPress puts in error messages.
func cleanMessage(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	var wpErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wpErr); err == nil {
		e.Code = wpErr.Code
		e.Message = cleanMessage(wpErr.Message)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
