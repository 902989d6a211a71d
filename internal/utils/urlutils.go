package utils

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL ensures a raw target has a scheme and a host, defaulting to
// http:// when none is given, and strips fragments.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL '%s': %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL '%s' has no host", rawURL)
	}
	u.Fragment = ""
	return u.String(), nil
}

// IsValidURL reports whether rawURL parses as an absolute http(s) URL.
func IsValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// ExtractBaseDomain returns the registered domain (eTLD+1) of a URL, e.g.
// "app.internal.example.co.uk" -> "example.co.uk". Falls back to the raw
// hostname when the public suffix list cannot resolve it (IPs, localhost).
func ExtractBaseDomain(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL '%s': %w", urlString, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("URL '%s' has no host", urlString)
	}
	eTLDPlusOne, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return eTLDPlusOne, nil
}

// ModifyURLQueryParam returns urlString with paramName set to paramValue,
// adding the parameter when absent. Other parameters are preserved.
func ModifyURLQueryParam(urlString, paramName, paramValue string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL '%s': %w", urlString, err)
	}
	query := u.Query()
	query.Set(paramName, paramValue)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

