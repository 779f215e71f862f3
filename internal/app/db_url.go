package app

import (
	"net/url"
	"strings"
)

// normalizeDBURL appends disable_prepared_binary_result=yes when the toggle
// asks for it and the DSN does not set it already. Some pgbouncer setups
// need the flag to keep prepared statements working through the pooler.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	if !disablePreparedBinaryResult {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}
	q := u.Query()
	if q.Get("disable_prepared_binary_result") != "" {
		return raw
	}
	q.Set("disable_prepared_binary_result", "yes")
	u.RawQuery = q.Encode()
	return u.String()
}

// dbNameFromURL extracts the database name from either URL-style or
// key=value DSNs; empty string when it cannot tell.
func dbNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u != nil && u.Scheme != "" {
		if name := strings.Trim(u.Path, "/ "); name != "" {
			return name
		}
	}
	for _, kv := range strings.Fields(raw) {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || key != "dbname" {
			continue
		}
		if name := strings.Trim(val, `"' `); name != "" {
			return name
		}
	}
	return ""
}
