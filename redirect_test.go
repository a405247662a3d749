package goSSO

import (
	"errors"
	"net/url"
	"testing"
)

func TestValidateReturnURL(t *testing.T) {
	allowed := []string{"biz-a.example.com", "portal.example.com:8443"}

	valid := []string{
		"https://biz-a.example.com/cb",
		"http://biz-a.example.com/cb?x=1",
		"https://BIZ-A.example.com/cb",
		"https://portal.example.com:8443/login",
	}
	for _, raw := range valid {
		if _, err := validateReturnURL(raw, allowed); err != nil {
			t.Fatalf("expected %q to pass, got %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"/relative/path",
		"ftp://biz-a.example.com/cb",
		"javascript:alert(1)",
		"https://evil.example.net/cb",
		"https://biz-a.example.com.evil.net/cb",
		"https://portal.example.com:9999/login",
	}
	for _, raw := range invalid {
		if _, err := validateReturnURL(raw, allowed); !errors.Is(err, ErrInvalidReturnURL) {
			t.Fatalf("expected %q to fail with ErrInvalidReturnURL, got %v", raw, err)
		}
	}
}

func TestAppendQueryParam(t *testing.T) {
	u, err := url.Parse("https://biz-a.example.com/cb?keep=1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	out := appendQueryParam(u, "ticket", "abc123")

	parsed, err := url.Parse(out)
	if err != nil {
		t.Fatalf("result does not parse: %v", err)
	}
	if parsed.Query().Get("keep") != "1" {
		t.Fatal("existing query must be preserved")
	}
	if parsed.Query().Get("ticket") != "abc123" {
		t.Fatal("ticket parameter missing")
	}
	if u.RawQuery != "keep=1" {
		t.Fatal("input url must not be mutated")
	}
}
