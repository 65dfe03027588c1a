package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrBadAssignment = errors.New("expected key=value")
	ErrUnknownKey    = errors.New("unknown config key")
)

// Keys lists the settable config keys in alphabetical order.
func Keys() []string {
	fields, err := fieldsOf(Config{})
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies key=value assignments to the stored config. Values are read
// according to the key's type; the result is validated before it is written.
func (m *Manager) Set(assignments ...string) error {
	fields, err := fieldsOf(m.Get())
	if err != nil {
		return err
	}

	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("%w, got %q", ErrBadAssignment, a)
		}
		current, known := fields[key]
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		raw, err := encodeLike(current, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		fields[key] = raw
	}

	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return m.UpdateFromJSON(string(doc))
}

func fieldsOf(cfg Config) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fields, nil
}

// encodeLike encodes value as the same JSON kind as current.
func encodeLike(current json.RawMessage, value string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(current))
	switch {
	case strings.HasPrefix(trimmed, `"`):
		return json.Marshal(value)
	case trimmed == "true" || trimmed == "false":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("want true or false, got %q", value)
		}
		return json.Marshal(b)
	default:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("want an integer, got %q", value)
		}
		return json.Marshal(n)
	}
}
