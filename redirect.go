package goSSO

import (
	"net/url"
	"strings"
)

// validateReturnURL enforces the open-redirect allow-list: absolute URL,
// http or https, host on the configured list. Host comparison is
// case-insensitive and includes the port when one is present in the
// allow-list entry.
func validateReturnURL(raw string, allowedHosts []string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrInvalidReturnURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidReturnURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidReturnURL
	}
	if u.Host == "" {
		return nil, ErrInvalidReturnURL
	}

	host := strings.ToLower(u.Host)
	bare := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		a := strings.ToLower(allowed)
		if a == host || a == bare {
			return u, nil
		}
	}
	return nil, ErrInvalidReturnURL
}

// appendQueryParam returns u with an extra query parameter, preserving any
// existing query string.
func appendQueryParam(u *url.URL, key, value string) string {
	out := *u
	q := out.Query()
	q.Set(key, value)
	out.RawQuery = q.Encode()
	return out.String()
}
