package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"phaeton/internal/config"
)

// loadPipeline reads a pipeline file and fills unset runtime and metrics
// settings from the environment.
func loadPipeline(path string) (config.Pipeline, error) {
	p, err := config.Load(path)
	if err != nil {
		return config.Pipeline{}, err
	}
	p.ApplyEnv(os.Getenv)
	return p, nil
}

// reportIssues prints lint findings to w and fails when any is an error.
func reportIssues(w io.Writer, path string, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
