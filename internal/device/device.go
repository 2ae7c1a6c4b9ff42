// Package device resolves the anonymous device identifier that scopes every
// expense operation.
//
// The identifier is a partition key, not a credential: any caller presenting
// the same value sees the same records.
package device

import (
	"net/http"
	"strings"
	"unicode"

	"spendlog/internal/core"
)

// HeaderName is the request header carrying the device identifier.
const HeaderName = "X-Device-ID"

// BodyField is the payload field consulted when the header is absent.
const BodyField = "deviceId"

// MaxLength bounds the accepted identifier length.
const MaxLength = 128

// BodyLookup returns a raw payload field by name; it is satisfied by the
// HTTP request body parser.
type BodyLookup interface {
	Get(key string) string
}

// Resolve returns the device identifier from the header, falling back to the
// deviceId body field. body may be nil for requests without a payload.
func Resolve(header http.Header, body BodyLookup) (string, error) {
	if id := Normalize(header.Get(HeaderName)); id != "" {
		return id, nil
	}
	if body != nil {
		if id := Normalize(body.Get(BodyField)); id != "" {
			return id, nil
		}
	}
	return "", core.ErrMissingDeviceID
}

// Normalize trims whitespace, drops control characters and truncates to MaxLength.
func Normalize(raw string) string {
	id := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	id = strings.TrimSpace(id)
	if r := []rune(id); len(r) > MaxLength {
		id = string(r[:MaxLength])
	}
	return id
}
