package http

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tempo/internal/core"
)

func TestPathID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.SetPathValue("id", tt.raw)

			got, err := PathID(r, "id")
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidInput) {
					t.Fatalf("want ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PathID: %v", err)
			}
			if got != tt.want {
				t.Errorf("PathID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var dst struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(r, &dst); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestQueryDate(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := httptest.NewRequest("GET", "/?from=2025-06-03", nil)
	got, err := QueryDate(r, "from", fallback)
	if err != nil {
		t.Fatalf("QueryDate: %v", err)
	}
	if want := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("QueryDate = %v, want %v", got, want)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if got, _ := QueryDate(r, "from", fallback); !got.Equal(fallback) {
		t.Errorf("missing param = %v, want fallback", got)
	}

	r = httptest.NewRequest("GET", "/?from=03-06-2025", nil)
	if _, err := QueryDate(r, "from", fallback); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("bad date: want ErrInvalidInput, got %v", err)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want first forwarded address", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.2")
	if got := ClientIP(r); got != "198.51.100.2" {
		t.Errorf("ClientIP = %q, want X-Real-IP", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if got := ClientIP(r); got != r.RemoteAddr {
		t.Errorf("ClientIP = %q, want RemoteAddr %q", got, r.RemoteAddr)
	}
}
