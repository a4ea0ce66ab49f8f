// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// path IDs, date query parameters, and size-limited JSON bodies.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tempo/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// PathID extracts a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidInput, name, raw)
	}
	return id, nil
}

// DecodeJSON parses the request body into dst, rejecting unknown fields and
// oversized payloads.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidInput, err)
	}
	return nil
}

// QueryDate parses a "2006-01-02" query parameter, returning fallback when
// the parameter is absent.
func QueryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q, want YYYY-MM-DD", core.ErrInvalidInput, name, raw)
	}
	return d, nil
}

// QueryString returns a trimmed query parameter or its fallback.
func QueryString(r *http.Request, name, fallback string) string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	return raw
}

// ClientIP extracts the client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if comma := strings.IndexByte(ip, ','); comma >= 0 {
			ip = ip[:comma]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
