package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// wrapper keys seen in legacy exports, e.g. {"$oid": "..."} or {"_id": "..."}
var idWrapperKeys = []string{"$oid", "_id", "id", "$id", "ID"}

// NormalizeID canonicalizes an identifier into its comparable string form.
// It never fails: absent or unusable input normalizes to "", which never
// matches a real id.
func NormalizeID(ref interface{}) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()
	return normalize(ref, 0)
}

// SameID reports whether a and b name the same entity.
func SameID(a, b interface{}) bool {
	na := NormalizeID(a)
	return na != "" && na == NormalizeID(b)
}

func normalize(ref interface{}, depth int) string {
	if depth > 4 || ref == nil {
		return ""
	}
	switch v := ref.(type) {
	case string:
		return normalizeString(v, depth)
	case *string:
		if v == nil {
			return ""
		}
		return normalizeString(*v, depth)
	case uuid.UUID:
		if v == uuid.Nil {
			return ""
		}
		return v.String()
	case *uuid.UUID:
		if v == nil || *v == uuid.Nil {
			return ""
		}
		return v.String()
	case []byte:
		return normalizeString(string(v), depth)
	case json.RawMessage:
		return normalizeString(string(v), depth)
	case map[string]interface{}:
		return normalizeWrapped(v, depth)
	case map[string]string:
		m := make(map[string]interface{}, len(v))
		for k, s := range v {
			m[k] = s
		}
		return normalizeWrapped(m, depth)
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return ""
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return ""
		}
		return normalizeString(v.String(), depth)
	}

	rv := reflect.ValueOf(ref)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		return normalize(rv.Elem().Interface(), depth+1)
	}
	return ""
}

func normalizeString(s string, depth int) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "undefined" {
		return ""
	}

	// {"$oid":"..."} and friends
	if strings.HasPrefix(s, "{") {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return ""
		}
		return normalizeWrapped(m, depth+1)
	}

	// ObjectId("...") as printed by mongo shells
	if strings.HasPrefix(s, "ObjectId(") && strings.HasSuffix(s, ")") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "ObjectId("), ")")
		return normalizeString(strings.Trim(inner, `"'`), depth+1)
	}

	// quoted JSON string
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return normalizeString(inner, depth+1)
		}
	}

	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	if isHexObjectID(s) {
		return strings.ToLower(s)
	}
	return s
}

func normalizeWrapped(m map[string]interface{}, depth int) string {
	for _, key := range idWrapperKeys {
		if inner, ok := m[key]; ok {
			if out := normalize(inner, depth+1); out != "" {
				return out
			}
		}
	}
	return ""
}

func isHexObjectID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
