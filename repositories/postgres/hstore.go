package postgres

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var hstoreEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func hstoreQuote(s string) string {
	return `"` + hstoreEscaper.Replace(s) + `"`
}

// EncodeHstore renders values as an hstore literal: "key"=>"value" pairs
// separated by ", ", keys sorted.
func EncodeHstore(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = hstoreQuote(k) + "=>" + hstoreQuote(values[k])
	}
	return strings.Join(pairs, ", ")
}

// EncodeHstoreValues renders business values. nil becomes an unquoted NULL.
func EncodeHstoreValues(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		v, ok := hstoreScalar(values[k])
		if !ok {
			pairs[i] = hstoreQuote(k) + "=>NULL"
			continue
		}
		pairs[i] = hstoreQuote(k) + "=>" + hstoreQuote(v)
	}
	return strings.Join(pairs, ", ")
}

func hstoreScalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		return t.Format("2006-01-02T15:04:05.000Z07:00"), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}
