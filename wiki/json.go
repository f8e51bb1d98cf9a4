package wiki

import (
	"fmt"
	"strconv"
)

// Accessors for decoded API responses. Missing keys and type mismatches yield
// zero values so callers can walk optional structure without checks at every step.

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

// hasKey reports presence regardless of value; the API marks flags like
// "missing" with an empty string
func hasKey(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}

// getText reads a content field that is either a plain string or a legacy {"*": "..."} object
func getText(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case map[string]interface{}:
		return getString(v, "*")
	}
	return ""
}

// firstRevision returns the first revision record of a page
func firstRevision(page map[string]interface{}) map[string]interface{} {
	revs := getSlice(page, "revisions")
	if len(revs) == 0 {
		return nil
	}
	rev, _ := revs[0].(map[string]interface{})
	return rev
}

// revisionContent reads revision text from either the legacy "*" field or the main slot
func revisionContent(rev map[string]interface{}) string {
	if rev == nil {
		return ""
	}
	if s, ok := rev["*"].(string); ok {
		return s
	}
	if s, ok := rev["content"].(string); ok {
		return s
	}
	main := getMap(getMap(rev, "slots"), "main")
	if s, ok := main["*"].(string); ok {
		return s
	}
	return getString(main, "content")
}

// formatValue renders a decoded JSON scalar as a request parameter
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
