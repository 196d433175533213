package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc_UsesFirstForwardedFor(t *testing.T) {
	fn := DefaultKeyFunc(nil, false)

	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := fn(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestDefaultKeyFunc_FallsThroughHeaderList(t *testing.T) {
	fn := DefaultKeyFunc(nil, false)

	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.Header.Set("Client-Ip", " 9.9.9.9 ")

	if got := fn(r); got != "9.9.9.9" {
		t.Fatalf("expected Client-Ip value, got %q", got)
	}
}

func TestDefaultKeyFunc_CustomHeaderOrder(t *testing.T) {
	fn := DefaultKeyFunc([]string{"X-Client", "X-Forwarded-For"}, false)

	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.Header.Set("X-Client", "client-123")
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := fn(r); got != "client-123" {
		t.Fatalf("expected header key, got %q", got)
	}
}

func TestDefaultKeyFunc_DefaultsToUnknown(t *testing.T) {
	fn := DefaultKeyFunc(nil, false)

	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "unknown" {
		t.Fatalf("expected unknown sentinel, got %q", got)
	}
}

func TestDefaultKeyFunc_RemoteAddrWhenEnabled(t *testing.T) {
	fn := DefaultKeyFunc(nil, true)

	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
}
