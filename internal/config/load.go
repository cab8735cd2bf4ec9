package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a pipeline file from path. Files ending in .yaml or .yml are
// decoded as YAML; everything else as JSON.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(b)
	default:
		return DecodeJSON(b)
	}
}

// DecodeJSON decodes a pipeline from JSON bytes.
func DecodeJSON(b []byte) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	p.normalizeSteps()
	return p, nil
}

// DecodeYAML decodes a pipeline from YAML bytes. Nested step values are
// normalized so they look exactly like their JSON-decoded counterparts to the
// step compiler.
func DecodeYAML(b []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	for i, s := range p.Steps {
		p.Steps[i] = Options(normalizeYAML(map[string]any(s)).(map[string]any))
	}
	p.normalizeSteps()
	return p, nil
}

// normalizeSteps guarantees every step is a non-nil map.
func (p *Pipeline) normalizeSteps() {
	for i, s := range p.Steps {
		if s == nil {
			p.Steps[i] = Options{}
		}
	}
}

// normalizeYAML converts map[any]any nodes (which yaml can still produce for
// non-string keys) into map[string]any, recursively.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeYAML(vv)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return m
	case []any:
		for i, vv := range t {
			t[i] = normalizeYAML(vv)
		}
		return t
	default:
		return v
	}
}

// ApplyEnv fills zero-valued runtime and metrics settings from environment
// variables (12-factor style). Explicit file values always win.
//
//	PHAETON_BATCH_SIZE, PHAETON_WORKERS, METRICS_BACKEND, PUSHGATEWAY_URL,
//	DOGSTATSD_ADDR
//
// getenv is injected so tests stay hermetic; pass os.Getenv in production.
func (p *Pipeline) ApplyEnv(getenv func(string) string) {
	p.Runtime.BatchSize = pickInt(p.Runtime.BatchSize, getenvInt(getenv, "PHAETON_BATCH_SIZE", 0))
	p.Runtime.Workers = pickInt(p.Runtime.Workers, getenvInt(getenv, "PHAETON_WORKERS", 0))
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = getenv("METRICS_BACKEND")
	}
	if p.Metrics.PushgatewayURL == "" {
		p.Metrics.PushgatewayURL = getenv("PUSHGATEWAY_URL")
	}
	if p.Metrics.StatsdAddr == "" {
		p.Metrics.StatsdAddr = getenv("DOGSTATSD_ADDR")
	}
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(getenv func(string) string, k string, def int) int {
	if s := getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
