package dataprocessing

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// Shipping is the subset of a listing's shipping record the analyses use.
type Shipping struct {
	FreeShipping bool
	Mode         string
	LogisticType string
}

// ParseTags decodes a tag list that may arrive as a bracketed literal
// ("['good_quality_thumbnail', 'cuota-simple-3']"), a JSON array or a
// plain comma separated string. An empty input yields an empty list.
func ParseTags(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "[]" || s == "()" {
		return []string{}, nil
	}
	if s[0] == '(' && s[len(s)-1] == ')' {
		s = "[" + s[1:len(s)-1] + "]"
	}
	if s[0] != '[' {
		parts := strings.Split(s, ",")
		tags := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				tags = append(tags, p)
			}
		}
		return tags, nil
	}

	var items []interface{}
	if err := yaml.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("parse tag list %q: %w", truncate(raw, 64), err)
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tags = append(tags, fmt.Sprint(item))
	}
	return tags, nil
}

// ParseShipping decodes a shipping record written as a mapping literal,
// e.g. "{'free_shipping': True, 'mode': 'me2', 'logistic_type': 'fulfillment'}".
func ParseShipping(raw string) (Shipping, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Shipping{}, fmt.Errorf("parse shipping: empty value")
	}
	var fields map[string]interface{}
	if err := yaml.Unmarshal([]byte(s), &fields); err != nil {
		return Shipping{}, fmt.Errorf("parse shipping %q: %w", truncate(raw, 64), err)
	}
	if fields == nil {
		return Shipping{}, fmt.Errorf("parse shipping %q: not a mapping", truncate(raw, 64))
	}

	var sh Shipping
	switch v := fields["free_shipping"].(type) {
	case bool:
		sh.FreeShipping = v
	case string:
		sh.FreeShipping = strings.EqualFold(v, "true")
	}
	sh.Mode = literalString(fields["mode"])
	sh.LogisticType = literalString(fields["logistic_type"])
	return sh, nil
}

// literalString maps the Python None sentinel and YAML null to "".
func literalString(v interface{}) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if s == "None" {
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
