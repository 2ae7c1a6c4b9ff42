package http

import (
	"net/http"
	"strings"

	"spendlog/internal/device"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isMutation reports whether the method changes stored records.
func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// limiterKey buckets requests by device when the header names one, and by
// client address otherwise.
func limiterKey(extractIP func(*http.Request) string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id := device.Normalize(r.Header.Get(device.HeaderName)); id != "" {
			return "device:" + id
		}
		return "ip:" + extractIP(r)
	}
}
