package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fields is a flat, stringly-typed view of one callback body. Processors
// deliver either JSON or form-encoded notifications, sometimes with numeric
// values; everything is normalised to strings before interpretation.
type Fields map[string]string

// Contact field resolution order. Processors are inconsistent about which
// field carries the customer contact, so resolution probes an ordered
// candidate list and takes the first non-empty match. The order is policy:
// plain names first, client-prefixed variants, delivery variants, then the
// capitalized spellings some gateway versions emit.
var (
	EmailFieldOrder = []string{"email", "clientEmail", "deliveryEmail", "Email", "ClientEmail"}
	PhoneFieldOrder = []string{"phone", "clientPhone", "deliveryPhone", "Phone", "ClientPhone"}
)

// First returns the first non-empty value among the named fields.
func (f Fields) First(names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(f[name]); v != "" {
			return v
		}
	}
	return ""
}

// ParseCallbackBody normalises a callback request body into Fields,
// accepting JSON, urlencoded and multipart form transports.
func ParseCallbackBody(r *http.Request, body []byte) (Fields, error) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/json") || looksLikeJSON(body) {
		return parseJSONFields(body)
	}
	return parseFormFields(r, body)
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func parseJSONFields(body []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse callback json: %w", err)
	}
	fields := make(Fields, len(raw))
	for key, value := range raw {
		fields[key] = stringify(value)
	}
	return fields, nil
}

func parseFormFields(r *http.Request, body []byte) (Fields, error) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, fmt.Errorf("parse callback form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse callback form: %w", err)
	}
	fields := make(Fields, len(r.Form))
	for key, values := range r.Form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return stringify(v[0])
	default:
		return fmt.Sprintf("%v", v)
	}
}
