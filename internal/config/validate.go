// Package config provides configuration models and helpers for pipelines.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests. Checks
// that need the source header (column resolution, regex compilation) belong
// to the step compiler, not here.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "output.path",
// "steps[1].col"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Known vocabularies. They are shared with the step compiler so the linter
// and the compiler never disagree on what is valid.
var (
	RowActions    = []string{"keep", "discard", "prune", "scrub", "cast", "fill", "dedupe", "align", "map", "hash"}
	HeaderActions = []string{"rename", "headers"}
	MatchModes    = []string{"exact", "contains", "startswith", "endswith", "regex"}
	ScrubModes    = []string{"trim", "lower", "upper", "html", "numeric_only", "currency", "email"}
	CastTypes     = []string{"int", "float", "bool", "str"}
	FillMethods   = []string{"fixed", "ffill"}
	HeaderStyles  = []string{"snake", "kebab", "camel", "pascal", "constant"}
)

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers decide whether to treat warnings
// as fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and ledger entries will use the default job name",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateOutput(p.Output, p.Source)...)
	issues = append(issues, ValidateSteps(p.Steps)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateLedger(p.Ledger)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.path",
			Message:  "source.path must not be empty",
		})
	}
	if n := len([]rune(s.Comma)); n > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.comma",
			Message:  fmt.Sprintf("comma %q has %d runes; only the first is used", s.Comma, n),
		})
	}
	return issues
}

func validateOutput(o Output, s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(o.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must not be empty",
		})
		return issues
	}
	if o.Path == s.Path {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must differ from source.path",
		})
	}
	if o.Quarantine != "" && o.Quarantine == o.Path {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.quarantine",
			Message:  "output.quarantine must differ from output.path",
		})
	}
	return issues
}

// ValidateSteps lints step descriptions without a header. Unknown actions are
// warnings: the compiler skips them so older or newer pipeline files keep
// working.
func ValidateSteps(steps []Options) []Issue {
	var issues []Issue

	if len(steps) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "steps",
			Message:  "no steps configured; records will be copied as-is",
		})
		return issues
	}

	for i, st := range steps {
		path := fmt.Sprintf("steps[%d]", i)
		action := st.Action()
		if strings.TrimSpace(action) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".action",
				Message:  "step action must not be empty",
			})
			continue
		}
		if !oneOf(action, RowActions) && !oneOf(action, HeaderActions) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".action",
				Message:  fmt.Sprintf("unknown action %q; it will be skipped", action),
			})
			continue
		}

		requireCol := func() {
			if st.String("col", "") == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".col",
					Message:  fmt.Sprintf("%s step requires a column", action),
				})
			}
		}
		checkEnum := func(key, def string, allowed []string) {
			if v := st.String(key, def); !oneOf(v, allowed) {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + "." + key,
					Message:  fmt.Sprintf("unknown %s %q (allowed: %s)", key, v, strings.Join(allowed, ", ")),
				})
			}
		}

		switch action {
		case "keep", "discard":
			requireCol()
			if vals, ok := st.Scalars("match"); !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".match",
					Message:  "match must be a scalar or a list of scalars",
				})
			} else if len(vals) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".match",
					Message:  "match must not be empty",
				})
			}
			if m := st.String("mode", "exact"); !oneOf(m, MatchModes) {
				// Not fatal: the engine quarantines each row with a reason.
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".mode",
					Message:  fmt.Sprintf("unknown match mode %q; every row will be quarantined", m),
				})
			}
		case "scrub":
			requireCol()
			checkEnum("mode", "trim", ScrubModes)
		case "cast":
			requireCol()
			checkEnum("type", "str", CastTypes)
		case "fill":
			requireCol()
			checkEnum("method", "fixed", FillMethods)
			if st.String("method", "fixed") == "fixed" {
				if _, ok := FormatScalar(st.Any("value")); !ok {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Path:     path + ".value",
						Message:  "fixed fill requires a scalar value",
					})
				}
			}
		case "align":
			requireCol()
			if len(st.StringSlice("ref")) == 0 && st.String("ref_file", "") == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".ref",
					Message:  "align step has an empty reference list; it will never match",
				})
			}
			if th := st.Float("threshold", 0.85); th < 0 || th > 1 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".threshold",
					Message:  fmt.Sprintf("threshold %v outside [0,1]", th),
				})
			}
		case "map":
			requireCol()
			if len(st.StringMap("mapping")) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".mapping",
					Message:  "map step requires a non-empty mapping object",
				})
			}
		case "hash":
			if st.String("col", "") == "" && len(st.StringSlice("cols")) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".col",
					Message:  "hash step requires col or cols",
				})
			}
			if st.String("salt", "") == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".salt",
					Message:  "hash step has no salt; digests are vulnerable to dictionary lookup",
				})
			}
		case "rename":
			if len(st.StringMap("mapping")) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".mapping",
					Message:  "rename step requires a non-empty mapping object",
				})
			}
		case "headers":
			checkEnum("style", "", HeaderStyles)
		}
	}

	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.Limit < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.limit",
			Message:  "limit must not be negative",
		})
	}
	return issues
}

func validateLedger(l LedgerConfig) []Issue {
	var issues []Issue
	if l.Kind == "" {
		return nil
	}
	if !oneOf(l.Kind, []string{"sqlite", "postgres"}) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "ledger.kind",
			Message:  fmt.Sprintf("unknown ledger kind %q; ensure a matching backend is registered", l.Kind),
		})
	}
	if strings.TrimSpace(l.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.dsn",
			Message:  "ledger.dsn must not be empty when ledger.kind is set",
		})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url (or PUSHGATEWAY_URL)",
			}}
		}
		return nil
	case "datadog":
		if m.StatsdAddr == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires statsd_addr (or DOGSTATSD_ADDR)",
			}}
		}
		return nil
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		}}
	}
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
