package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "customers",
		Source: Source{Path: "in.csv"},
		Output: Output{Path: "out.csv", Quarantine: "bad.csv"},
		Steps: []Options{
			{"action": "keep", "col": "status", "match": "active"},
			{"action": "cast", "col": "age", "type": "int"},
		},
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	issues := ValidatePipeline(validPipeline())
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_MissingPaths(t *testing.T) {
	p := validPipeline()
	p.Source.Path = ""
	p.Output.Path = ""

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "source.path", "must not be empty") {
		t.Fatalf("expected source.path error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "output.path", "must not be empty") {
		t.Fatalf("expected output.path error; got %+v", issues)
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false")
	}
}

func TestValidatePipeline_OutputCollisions(t *testing.T) {
	p := validPipeline()
	p.Output.Path = "in.csv"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "output.path", "must differ") {
		t.Fatalf("expected collision with source to be an error")
	}

	p = validPipeline()
	p.Output.Quarantine = p.Output.Path
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "output.quarantine", "must differ") {
		t.Fatalf("expected quarantine collision to be an error")
	}
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name string
		step Options
		sev  IssueSeverity
		path string
		msg  string
	}{
		{"empty action", Options{"col": "a"}, SeverityError, "steps[0].action", "must not be empty"},
		{"unknown action", Options{"action": "explode"}, SeverityWarning, "steps[0].action", "will be skipped"},
		{"keep without col", Options{"action": "keep", "match": "x"}, SeverityError, "steps[0].col", "requires a column"},
		{"keep object match", Options{"action": "keep", "col": "a", "match": map[string]any{}}, SeverityError, "steps[0].match", "scalar"},
		{"keep empty match list", Options{"action": "keep", "col": "a", "match": []any{}}, SeverityError, "steps[0].match", "must not be empty"},
		{"unknown match mode", Options{"action": "discard", "col": "a", "match": "x", "mode": "fuzzy"}, SeverityWarning, "steps[0].mode", "quarantined"},
		{"bad scrub mode", Options{"action": "scrub", "col": "a", "mode": "shout"}, SeverityError, "steps[0].mode", "unknown mode"},
		{"bad cast type", Options{"action": "cast", "col": "a", "type": "date"}, SeverityError, "steps[0].type", "unknown type"},
		{"bad fill method", Options{"action": "fill", "col": "a", "method": "bfill"}, SeverityError, "steps[0].method", "unknown method"},
		{"fixed fill without value", Options{"action": "fill", "col": "a"}, SeverityError, "steps[0].value", "scalar value"},
		{"align threshold", Options{"action": "align", "col": "a", "ref": []any{"x"}, "threshold": 1.5}, SeverityError, "steps[0].threshold", "outside"},
		{"align empty ref", Options{"action": "align", "col": "a"}, SeverityWarning, "steps[0].ref", "never match"},
		{"map without mapping", Options{"action": "map", "col": "a"}, SeverityError, "steps[0].mapping", "non-empty mapping"},
		{"hash without cols", Options{"action": "hash", "salt": "s"}, SeverityError, "steps[0].col", "col or cols"},
		{"hash without salt", Options{"action": "hash", "col": "a"}, SeverityWarning, "steps[0].salt", "no salt"},
		{"rename without mapping", Options{"action": "rename"}, SeverityError, "steps[0].mapping", "rename step"},
		{"headers bad style", Options{"action": "headers", "style": "title"}, SeverityError, "steps[0].style", "unknown style"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issues := ValidateSteps([]Options{tc.step})
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidateSteps_Empty(t *testing.T) {
	issues := ValidateSteps(nil)
	if !hasIssue(t, issues, SeverityWarning, "steps", "copied as-is") {
		t.Fatalf("expected warning for empty steps; got %+v", issues)
	}
}

func TestValidateRuntimeLedgerMetrics(t *testing.T) {
	p := validPipeline()
	p.Runtime = RuntimeConfig{BatchSize: -1, Workers: -2, Limit: -3}
	p.Ledger = LedgerConfig{Kind: "oracle"}
	p.Metrics = MetricsConfig{Backend: "statsd"}

	issues := ValidatePipeline(p)
	for _, want := range []struct {
		sev  IssueSeverity
		path string
	}{
		{SeverityError, "runtime.batch_size"},
		{SeverityError, "runtime.workers"},
		{SeverityError, "runtime.limit"},
		{SeverityWarning, "ledger.kind"},
		{SeverityError, "ledger.dsn"},
		{SeverityWarning, "metrics.backend"},
	} {
		if !hasIssue(t, issues, want.sev, want.path, "") {
			t.Errorf("missing %s at %s; got %+v", want.sev, want.path, issues)
		}
	}
}

func TestValidateMetrics_BackendSettings(t *testing.T) {
	cases := []struct {
		m    MetricsConfig
		path string
	}{
		{MetricsConfig{Backend: "pushgateway"}, "metrics.pushgateway_url"},
		{MetricsConfig{Backend: "datadog"}, "metrics.statsd_addr"},
	}
	for _, c := range cases {
		p := validPipeline()
		p.Metrics = c.m
		if !hasIssue(t, ValidatePipeline(p), SeverityError, c.path, "requires") {
			t.Errorf("%s: expected error at %s", c.m.Backend, c.path)
		}
	}

	p := validPipeline()
	p.Metrics = MetricsConfig{Backend: "datadog", StatsdAddr: "127.0.0.1:8125"}
	for _, iss := range ValidatePipeline(p) {
		if iss.Path == "metrics.statsd_addr" {
			t.Fatalf("unexpected issue %+v", iss)
		}
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "steps[2].col", Message: "boom"}
	if got := iss.Error(); got != "error at steps[2].col: boom" {
		t.Fatalf("Error() = %q", got)
	}
}
