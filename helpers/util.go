package helpers

import (
	"errors"
	"net/url"
	"strings"
)

// ParseProductURL parses an absolute http(s) url and returns it with its hostname
func ParseProductURL(raw string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", errors.New("url must use http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, "", errors.New("url has no host")
	}
	return u, host, nil
}
