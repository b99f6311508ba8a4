// Package platforms normalizes heterogeneous scraper output into canonical
// video and profile records, one adapter per supported platform.
package platforms

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// imageURLPattern is the last-resort scan for an image URL embedded in text
var imageURLPattern = regexp.MustCompile(`https?://[^\s"']+\.(?:jpg|jpeg|png|webp)[^\s"']*`)

// decodeItem unmarshals one raw actor item into a generic map. Malformed
// items decode to an empty map so extraction stays total.
func decodeItem(raw json.RawMessage) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

// dig walks a dotted path through nested maps and arrays. Numeric segments
// index into arrays. Returns nil when any segment is missing, out of range
// or applied to the wrong shape.
func dig(m map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var current interface{} = m
	for _, part := range parts {
		switch node := current.(type) {
		case map[string]interface{}:
			current = node[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}

// pickString returns the first non-empty string among the given paths
func pickString(m map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if s, ok := dig(m, path).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// pickInt64 returns the first present numeric value among the given paths.
// Raw schemas disagree on number encoding, so strings are parsed too.
func pickInt64(m map[string]interface{}, paths ...string) int64 {
	for _, path := range paths {
		switch v := dig(m, path).(type) {
		case float64:
			return int64(v)
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// largestImage returns the URL of the widest entry in an image resource
// list shaped like [{"url": ..., "width": ...}, ...]
func largestImage(m map[string]interface{}, path string) string {
	list, ok := dig(m, path).([]interface{})
	if !ok {
		return ""
	}
	var best string
	var bestWidth float64 = -1
	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		url, _ := obj["url"].(string)
		if url == "" {
			url, _ = obj["src"].(string)
		}
		if url == "" {
			continue
		}
		width, _ := obj["width"].(float64)
		if width > bestWidth {
			bestWidth = width
			best = url
		}
	}
	return best
}

// scanImageURL extracts the first image URL embedded in free text
func scanImageURL(text string) string {
	return imageURLPattern.FindString(text)
}

// pickTime returns the first parseable timestamp among the given paths.
// Accepts RFC3339 strings, unix seconds and unix milliseconds.
func pickTime(m map[string]interface{}, paths ...string) *time.Time {
	for _, path := range paths {
		switch v := dig(m, path).(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return &t
			}
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return unixTime(n)
			}
		case float64:
			return unixTime(int64(v))
		}
	}
	return nil
}

func unixTime(n int64) *time.Time {
	// Millisecond epochs are 13 digits
	if n > 1e12 {
		n /= 1000
	}
	if n <= 0 {
		return nil
	}
	t := time.Unix(n, 0).UTC()
	return &t
}
