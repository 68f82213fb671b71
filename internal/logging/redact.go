// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package logging

import (
	"net/url"
	"strings"
)

// SanitizeToken masks a session token, showing only first and last 4 characters.
// Appliance session IDs are short-lived but still grant full API access while
// valid, so they never appear whole in a log line.
//
// Example: "3bBaE4JQ9Zp27kAxT..." -> "3bBa...AxT9"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactURL strips any userinfo from a URL before it is logged.
// Target base URLs are operator-supplied and may embed credentials.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}

// SanitizeError removes credential-shaped content from error strings.
// Transport errors can echo request bodies; anything matching a sensitive
// pattern is replaced wholesale rather than partially scrubbed.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"sid",
		"token",
		"authorization",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "error withheld (contained credential material)"
		}
	}

	return truncateString(err, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
