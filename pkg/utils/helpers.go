package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseBaseURL parses an API base URL, requiring an http or https scheme and a host
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL: missing host")
	}

	return u, nil
}

func IsValidBaseURL(raw string) bool {
	_, err := ParseBaseURL(raw)
	return err == nil
}
