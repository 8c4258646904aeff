package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"leadtracker_backend/platform/phone"
	"leadtracker_backend/platform/sanitize"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// Text returns sanitized single-line text. Null-like spreadsheet tokens
// ("nan", "None") become empty.
func Text(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}
	cleaned := sanitize.Text(s)
	if isNullish(cleaned) {
		return ""
	}
	return cleaned
}

// NameKey is the comparison key for customer names: width-folded,
// case-folded and whitespace-collapsed.
func NameKey(name string) string {
	return cases.Fold().String(width.Fold.String(sanitize.Text(name)))
}

// Phone returns the display form of a phone number (E.164 when valid)
// and its duplicate-detection key.
func Phone(raw any, region string) (display, key string) {
	text := Text(raw)
	if text == "" {
		return "", ""
	}
	display, _ = phone.Normalize(text, region)
	return display, phone.Key(text, region)
}

// Bool interprets yes/no style input. Unrecognized input is false and
// reported as coerced.
func Bool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case nil:
		return false, false
	case bool:
		return v, false
	case *bool:
		if v == nil {
			return false, false
		}
		return *v, false
	case float64:
		return v != 0, false
	case int:
		return v != 0, false
	}

	s := strings.ToLower(Text(raw))
	switch s {
	case "":
		return false, false
	case "是", "有", "施工", "y", "yes", "true", "1", "✓", "√":
		return true, false
	case "否", "无", "不施工", "n", "no", "false", "0", "×":
		return false, false
	}
	return false, true
}
