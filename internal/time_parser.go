// internal/time_parser.go
// ------------------------
// Helpers for parsing the time formats that show up in rate-limit and
// Retry-After headers. Servers are not consistent: Retry-After may be an
// integer number of seconds, an HTTP date, or a duration string like "1s"
// or "6m0s"; reset timestamps may be absolute UNIX seconds or a delta in
// seconds. Everything here parses defensively and reports failure rather
// than guessing.
package internal

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseDurationStr converts strings like "1s" or "6m0s" into a duration.
func ParseDurationStr(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.HasSuffix(s, "s") && !strings.Contains(s, "m") {
		val := strings.TrimSuffix(s, "s")
		if sec, err := strconv.Atoi(val); err == nil {
			return time.Duration(sec) * time.Second, true
		}
	}

	var minutes, seconds int
	if n, err := fmt.Sscanf(s, "%dm%ds", &minutes, &seconds); n == 2 && err == nil {
		return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, true
	}

	return 0, false
}

// ParseRetryAfter interprets a Retry-After header value: integer seconds,
// an HTTP date, or a duration string. Negative results are clamped to zero.
func ParseRetryAfter(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if sec, err := strconv.Atoi(s); err == nil {
		if sec < 0 {
			sec = 0
		}
		return time.Duration(sec) * time.Second, true
	}

	if t, ok := parseHTTPDate(s); ok {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return ParseDurationStr(s)
}

// parseHTTPDate accepts the formats http.ParseTime knows plus RFC 1123
// variants with a named or numeric non-GMT zone, which some servers emit.
func parseHTTPDate(s string) (time.Time, bool) {
	if t, err := http.ParseTime(s); err == nil {
		return t, true
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseResetTime interprets a rate-limit reset header value as a point in
// time. Values larger than a year's worth of seconds are treated as an
// absolute UNIX timestamp; smaller values as seconds from now.
func ParseResetTime(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	const yearSecs = 365 * 24 * 60 * 60
	if n > yearSecs {
		return time.Unix(n, 0), true
	}
	if n < 0 {
		n = 0
	}
	return now.Add(time.Duration(n) * time.Second), true
}

// IsInFuture checks if a time is in the future relative to now.
func IsInFuture(t, now time.Time) bool {
	return t.After(now)
}

// ParseIntHeader parses a non-negative integer header value, returning -1
// for absent or unparseable values.
func ParseIntHeader(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
