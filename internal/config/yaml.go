package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// normalizeDocument parses JSON or YAML into a generic tree, rewrites
// numeric durations to strings and returns JSON bytes for the strict
// decoder.
func normalizeDocument(path string, data []byte) ([]byte, error) {
	format := formatFor(path)

	var v any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	default:
		// UseNumber keeps large ids such as chat_id exact.
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		if dec.More() {
			return nil, errors.New("invalid config: trailing data")
		}
	}
	if v == nil {
		return []byte("{}"), nil
	}

	j, err := json.Marshal(normalizeValue("", v))
	if err != nil {
		return nil, fmt.Errorf("%s->json: %w", format, err)
	}
	return j, nil
}

// normalizeValue stringifies map keys (YAML allows non-string keys) and
// turns numbers under duration keys into millisecond strings.
func normalizeValue(key string, in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			ks := fmt.Sprint(k)
			m[ks] = normalizeValue(ks, v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeValue(k, v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeValue("", x[i])
		}
		return x
	case int:
		if durationKeys[key] {
			return strconv.Itoa(x)
		}
		return x
	case json.Number:
		if durationKeys[key] {
			return x.String()
		}
		return x
	case float64:
		if durationKeys[key] && x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return x
	default:
		return in
	}
}
