package utils

import (
	"fmt"
	"net/url"
)

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", rawURL)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", rawURL)
	}

	return nil
}
