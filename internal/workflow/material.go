package workflow

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Field values are compared as plain JSON-decoded values: strings for text
// fields, a nil entry means the field is explicitly null. A key absent from
// the patch map means no update was intended for that field, so it is never
// considered changed.

// MaterialFields is the fixed, ordered set of fields whose modification
// invalidates an open approval. Everything else (watchers, attachments,
// messages, cost) never triggers invalidation.
var MaterialFields = []string{"title", "description", "priority_code", "category"}

// IsMaterialChange reports whether the patch modifies at least one material
// field relative to the persisted values in old. Nil-to-value and
// value-to-nil both count as changes.
func IsMaterialChange(old, patch map[string]any) bool {
	for _, field := range MaterialFields {
		newVal, present := patch[field]
		if !present {
			continue
		}
		if !valuesEqual(old[field], newVal) {
			return true
		}
	}
	return false
}

// ChangedFields returns every key present in patch whose value differs from
// old, material or not, in a stable order (material fields first, in
// MaterialFields order, then the remaining patch keys sorted). Used for
// audit payloads.
func ChangedFields(old, patch map[string]any) []string {
	var changed []string
	seen := make(map[string]bool, len(patch))

	for _, field := range MaterialFields {
		newVal, present := patch[field]
		if !present {
			continue
		}
		seen[field] = true
		if !valuesEqual(old[field], newVal) {
			changed = append(changed, field)
		}
	}

	rest := make([]string, 0, len(patch))
	for key := range patch {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		if !valuesEqual(old[key], patch[key]) {
			changed = append(changed, key)
		}
	}

	return changed
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	// JSON decodes numbers as float64 while persisted costs round-trip as
	// decimal strings. When either side is a number, compare numerically so
	// an unchanged amount is not reported as a diff.
	if isNumber(a) || isNumber(b) {
		da, aok := asDecimal(a)
		db, bok := asDecimal(b)
		if aok && bok {
			return da.Equal(db)
		}
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, int, int64, json.Number:
		return true
	}
	return false
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
