// Package config defines the canonical, file-serializable configuration model
// for phaeton pipelines. A pipeline file names a delimited source, the clean
// and quarantine sinks, an ordered list of step descriptions, and the runtime
// knobs of the batch scheduler.
//
// Step descriptions are deliberately untyped: each is an Options bag with a
// required "action" key and action-specific parameters. They are read once by
// the step compiler (internal/transformer) and never touched again.
//
// Example (trimmed):
//
//	{
//	  "job":    "customers_clean",
//	  "source": { "path": "in/customers.csv", "comma": "," },
//	  "output": { "path": "out/clean.csv", "quarantine": "out/rejected.csv" },
//	  "steps": [
//	    { "action": "keep",  "col": "status", "match": "active", "mode": "exact" },
//	    { "action": "cast",  "col": "age",    "type": "int" },
//	    { "action": "dedupe" }
//	  ],
//	  "runtime": { "batch_size": 10000, "workers": 0 }
//	}
package config

import (
	"encoding/json"
	"strconv"
)

// Pipeline describes a full cleaning run. It is the top-level object decoded
// from a pipeline file (JSON or YAML).
type Pipeline struct {
	// Job is a logical name used for metrics labels and the run ledger.
	Job string `json:"job" yaml:"job"`

	Source Source `json:"source" yaml:"source"`
	Output Output `json:"output" yaml:"output"`

	// Steps is the ordered list of step descriptions.
	Steps []Options `json:"steps" yaml:"steps"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// Source identifies the delimited input file.
type Source struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" yaml:"path"`

	// Comma is the field delimiter; only the first rune is used. Default ",".
	Comma string `json:"comma" yaml:"comma"`

	// Encoding names the source character encoding ("utf-8" by default).
	// Values reported by the probe ("windows-1252", "utf-16le", ...) are
	// accepted as-is.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Output names the sinks of a run.
type Output struct {
	// Path receives the header row and every kept record.
	Path string `json:"path" yaml:"path"`

	// Quarantine optionally receives discarded records plus a trailing
	// _phaeton_reason column. Empty means discarded rows are only counted.
	Quarantine string `json:"quarantine" yaml:"quarantine"`
}

// RuntimeConfig controls batching and parallelism of the scheduler.
type RuntimeConfig struct {
	// BatchSize is the number of rows per parallel chunk; 0 means default.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// Workers is the worker pool size; 0 means all logical cores.
	Workers int `json:"workers" yaml:"workers"`
	// Limit caps the number of rows read; 0 means unlimited.
	Limit int `json:"limit" yaml:"limit"`
}

// LedgerConfig selects the optional run ledger backend.
type LedgerConfig struct {
	// Kind is "sqlite", "postgres", or empty (no ledger).
	Kind string `json:"kind" yaml:"kind"`
	// DSN is passed to the backend driver.
	DSN string `json:"dsn" yaml:"dsn"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is "pushgateway", "datadog", "none", or empty.
	Backend string `json:"backend" yaml:"backend"`
	// PushgatewayURL is the base URL of the Pushgateway.
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	// StatsdAddr is the DogStatsD address, e.g. "127.0.0.1:8125".
	StatsdAddr string `json:"statsd_addr" yaml:"statsd_addr"`
}

// Options is a small helper to fetch typed values from arbitrary decoded maps
// without introducing reflection-heavy binding. It performs only minimal type
// coercion and returns provided defaults when a key is absent or of an
// unexpected type.
//
// Options carries step descriptions, whose shape varies by action.
type Options map[string]any

// Action returns the step's "action" value, or "" when absent.
func (o Options) Action() string {
	return o.String("action", "")
}

// Has reports whether key is present with a non-nil value.
func (o Options) Has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, while YAML integers decode as int, so both are
// accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Float returns the numeric value for key as float64, or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object.
// Scalar values (numbers, bools) are rendered with FormatScalar; nested
// objects and lists are ignored. Returns an empty map when the key is missing
// or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := FormatScalar(vv); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Scalars returns the value for key as a list of strings. A single scalar
// yields a one-element list; a list yields every scalar element. Strings,
// numbers and bools are all normalized through FormatScalar. ok is false when
// the key is missing or holds something that is neither a scalar nor a list
// of scalars.
func (o Options) Scalars(key string) (vals []string, ok bool) {
	v, present := o[key]
	if !present || v == nil {
		return nil, false
	}
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			s, ok := FormatScalar(x)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case []string:
		return vv, true
	default:
		s, ok := FormatScalar(v)
		if !ok {
			return nil, false
		}
		return []string{s}, true
	}
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// FormatScalar renders a decoded scalar as the string a CSV field holding the
// same value would contain: integral numbers lose their ".0", bools become
// "true"/"false". Non-scalars report ok=false.
func FormatScalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null object
// decodes to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
